package config

import (
	"strings"
	"testing"
	"time"

	"github.com/ayusman/chainfit/internal/face"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHAINFIT_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name      string
		got, want any
	}{
		{"width", cfg.Width, 1280},
		{"height", cfg.Height, 720},
		{"active fps", cfg.ActiveFPS, 15},
		{"idle fps", cfg.IdleFPS, 5},
		{"idle timeout", cfg.IdleTimeout, 2 * time.Second},
		{"detector idle", cfg.DetectorIdle, 30 * time.Second},
		{"topology", cfg.Topology, "facemesh"},
		{"opacity", cfg.Opacity, 1.0},
		{"log level", cfg.LogLevel, "info"},
		{"snapshot burst", cfg.SnapshotBurst, 3},
		{"chains dir", cfg.ChainsDir, "chains"},
		{"strict", cfg.Strict, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if !strings.HasPrefix(cfg.DBPath(), cfg.DataDir) {
		t.Errorf("DBPath() = %q, want under %q", cfg.DBPath(), cfg.DataDir)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CHAINFIT_DATA_DIR", t.TempDir())
	t.Setenv("CHAINFIT_ADDR", "127.0.0.1:9000")
	t.Setenv("CHAINFIT_ACTIVE_FPS", "30")
	t.Setenv("CHAINFIT_IDLE_TIMEOUT", "5s")
	t.Setenv("CHAINFIT_TOPOLOGY", "jawline")
	t.Setenv("CHAINFIT_OPACITY", "0.9")
	t.Setenv("CHAINFIT_STRICT", "true")
	t.Setenv("CHAINFIT_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.ActiveFPS != 30 || cfg.IdleTimeout != 5*time.Second {
		t.Errorf("ActiveFPS = %d, IdleTimeout = %v", cfg.ActiveFPS, cfg.IdleTimeout)
	}
	if cfg.Opacity != 0.9 || !cfg.Strict || cfg.LogLevel != "debug" {
		t.Errorf("Opacity = %v, Strict = %v, LogLevel = %q", cfg.Opacity, cfg.Strict, cfg.LogLevel)
	}

	topo, err := cfg.FaceTopology()
	if err != nil {
		t.Fatalf("FaceTopology() error = %v", err)
	}
	if topo != face.JawlineTopology {
		t.Errorf("FaceTopology() = %+v, want jawline", topo)
	}
}

func TestLoad_PortFallback(t *testing.T) {
	t.Setenv("CHAINFIT_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != "0.0.0.0:7070" {
		t.Errorf("Addr = %q, want 0.0.0.0:7070", cfg.Addr)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unparseable int", "CHAINFIT_WIDTH", "wide"},
		{"unparseable duration", "CHAINFIT_IDLE_TIMEOUT", "soon"},
		{"unparseable bool", "CHAINFIT_TRAY", "maybe"},
		{"opacity above one", "CHAINFIT_OPACITY", "1.5"},
		{"unknown topology", "CHAINFIT_TOPOLOGY", "ears"},
		{"unknown detector", "CHAINFIT_DETECTOR", "crystal-ball"},
		{"idle faster than active", "CHAINFIT_IDLE_FPS", "60"},
		{"bad log level", "CHAINFIT_LOG_LEVEL", "loud"},
		{"zero burst", "CHAINFIT_SNAPSHOT_BURST", "0"},
		{"short landmark override", "CHAINFIT_LANDMARKS", "152,234"},
		{"negative landmark", "CHAINFIT_LANDMARKS", "152,-1,454,4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CHAINFIT_DATA_DIR", t.TempDir())
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q should fail", tt.key, tt.value)
			}
		})
	}
}

func TestFaceTopology_Override(t *testing.T) {
	cfg := &Config{Topology: "facemesh", Landmarks: "152, 172, 397, 1"}

	topo, err := cfg.FaceTopology()
	if err != nil {
		t.Fatalf("FaceTopology() error = %v", err)
	}

	want := face.Topology{Chin: 152, LeftJaw: 172, RightJaw: 397, NoseTip: 1}
	if topo != want {
		t.Errorf("FaceTopology() = %+v, want %+v", topo, want)
	}
}
