// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/ayusman/chainfit/internal/face"
)

// Config holds every tunable of the service.
type Config struct {
	Addr      string `validate:"required"`
	DataDir   string `validate:"required"`
	ChainsDir string `validate:"required"`
	WebDir    string
	ExportDir string `validate:"required"`

	CameraID int `validate:"gte=0"`
	Width    int `validate:"gt=0"`
	Height   int `validate:"gt=0"`

	ActiveFPS       int           `validate:"gt=0,lte=60"`
	IdleFPS         int           `validate:"gt=0,ltefield=ActiveFPS"`
	IdleTimeout     time.Duration `validate:"gt=0"`
	MotionThreshold float64       `validate:"gt=0,lte=100"`

	Detector     string        `validate:"oneof=mediapipe mock"`
	DetectorIdle time.Duration `validate:"gt=0"`

	Topology string `validate:"oneof=facemesh jawline"`
	// Landmarks overrides the topology indices as "chin,left,right,nose".
	Landmarks string
	Opacity   float64 `validate:"gte=0,lte=1"`
	Strict    bool

	LogLevel string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFile  string

	SnapshotRate  float64 `validate:"gt=0"`
	SnapshotBurst int     `validate:"gte=1"`

	Tray bool
}

// Load reads a .env file if present, then CHAINFIT_* variables, and
// validates the result.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	p := &parser{}
	dataDir := getEnv("CHAINFIT_DATA_DIR", defaultDataDir())

	cfg := &Config{
		Addr:      getEnv("CHAINFIT_ADDR", defaultAddr()),
		DataDir:   dataDir,
		ChainsDir: getEnv("CHAINFIT_CHAINS_DIR", "chains"),
		WebDir:    getEnv("CHAINFIT_WEB_DIR", "web"),
		ExportDir: getEnv("CHAINFIT_EXPORT_DIR", filepath.Join(dataDir, "exports")),

		CameraID: p.int("CHAINFIT_CAMERA_ID", 0),
		Width:    p.int("CHAINFIT_WIDTH", 1280),
		Height:   p.int("CHAINFIT_HEIGHT", 720),

		ActiveFPS:       p.int("CHAINFIT_ACTIVE_FPS", 15),
		IdleFPS:         p.int("CHAINFIT_IDLE_FPS", 5),
		IdleTimeout:     p.duration("CHAINFIT_IDLE_TIMEOUT", 2*time.Second),
		MotionThreshold: p.float("CHAINFIT_MOTION_THRESHOLD", 1.0),

		Detector:     getEnv("CHAINFIT_DETECTOR", "mediapipe"),
		DetectorIdle: p.duration("CHAINFIT_DETECTOR_IDLE", 30*time.Second),

		Topology:  getEnv("CHAINFIT_TOPOLOGY", "facemesh"),
		Landmarks: getEnv("CHAINFIT_LANDMARKS", ""),
		Opacity:   p.float("CHAINFIT_OPACITY", 1.0),
		Strict:    p.bool("CHAINFIT_STRICT", false),

		LogLevel: strings.ToLower(getEnv("CHAINFIT_LOG_LEVEL", "info")),
		LogFile:  getEnv("CHAINFIT_LOG_FILE", ""),

		SnapshotRate:  p.float("CHAINFIT_SNAPSHOT_RATE", 1),
		SnapshotBurst: p.int("CHAINFIT_SNAPSHOT_BURST", 3),

		Tray: p.bool("CHAINFIT_TRAY", false),
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the landmark override.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.FaceTopology(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// FaceTopology resolves the named topology and applies any index override.
func (c *Config) FaceTopology() (face.Topology, error) {
	t, ok := face.TopologyByName(c.Topology)
	if !ok {
		return face.Topology{}, fmt.Errorf("unknown topology %q", c.Topology)
	}
	if c.Landmarks == "" {
		return t, nil
	}

	parts := strings.Split(c.Landmarks, ",")
	if len(parts) != 4 {
		return face.Topology{}, fmt.Errorf("landmarks %q: want chin,left,right,nose", c.Landmarks)
	}

	idx := make([]int, 4)
	for i, s := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || v < 0 {
			return face.Topology{}, fmt.Errorf("landmarks %q: bad index %q", c.Landmarks, s)
		}
		idx[i] = v
	}

	return face.Topology{Chin: idx[0], LeftJaw: idx[1], RightJaw: idx[2], NoseTip: idx[3]}, nil
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "chainfit.db")
}

func defaultAddr() string {
	// PORT is what most hosting platforms set.
	if port := os.Getenv("PORT"); port != "" {
		return "0.0.0.0:" + port
	}
	return "0.0.0.0:5000"
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chainfit"
	}
	return filepath.Join(home, ".chainfit")
}

func getEnv(k, d string) string {
	if val, ok := os.LookupEnv(k); ok {
		return val
	}
	return d
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func (p *parser) fail(k, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s=%q: %w", k, v, err)
	}
}

func (p *parser) int(k string, d int) int {
	v, ok := p.lookup(k)
	if !ok {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(k, v, err)
		return d
	}
	return n
}

func (p *parser) float(k string, d float64) float64 {
	v, ok := p.lookup(k)
	if !ok {
		return d
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(k, v, err)
		return d
	}
	return f
}

func (p *parser) bool(k string, d bool) bool {
	v, ok := p.lookup(k)
	if !ok {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(k, v, err)
		return d
	}
	return b
}

func (p *parser) duration(k string, d time.Duration) time.Duration {
	v, ok := p.lookup(k)
	if !ok {
		return d
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		p.fail(k, v, err)
		return d
	}
	return dur
}
