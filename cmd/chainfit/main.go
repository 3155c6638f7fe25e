package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/chainfit/internal/app"
	"github.com/ayusman/chainfit/internal/capture"
	"github.com/ayusman/chainfit/internal/catalog"
	"github.com/ayusman/chainfit/internal/compositor"
	"github.com/ayusman/chainfit/internal/config"
	"github.com/ayusman/chainfit/internal/detector"
	"github.com/ayusman/chainfit/internal/logger"
	"github.com/ayusman/chainfit/internal/pipeline"
	"github.com/ayusman/chainfit/internal/placement"
	"github.com/ayusman/chainfit/internal/server"
	"github.com/ayusman/chainfit/internal/store"
	"github.com/ayusman/chainfit/internal/tray"
)

// thumbnailCacheSize bounds the encoded gallery thumbnails kept in memory.
const thumbnailCacheSize = 64

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chainfit: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "chainfit: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("ChainFit stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	log.Info("ChainFit - chain try-on")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	// Catalog, with the last selection restored.
	assets, err := catalog.LoadDir(cfg.ChainsDir, st.Chains(), log)
	if err != nil {
		log.WithError(err).Warn("No chains loaded")
	}
	selector := catalog.NewSelector(assets)
	controls := placement.NewControls(app.Restore(st.Settings(), selector, log))

	var tr *tray.Tray
	if cfg.Tray {
		tr = tray.New()
		if a := selector.Active(); a != nil {
			tr.SetChain(a.Name)
		}
	}
	app.Persist(st.Settings(), selector, controls, log, func(a *catalog.Asset) {
		if tr != nil {
			tr.SetChain(a.Name)
		}
	})

	// Pipeline.
	topology, err := cfg.FaceTopology()
	if err != nil {
		return err
	}
	controller := pipeline.NewController(pipeline.Config{
		Topology:   topology,
		Compositor: compositor.New(compositor.WithOpacity(cfg.Opacity)),
		Strict:     cfg.Strict,
	}, controls, selector, log)
	hub := pipeline.NewHub()

	camera := capture.NewCamera(capture.Config{
		DeviceID: cfg.CameraID,
		Width:    cfg.Width,
		Height:   cfg.Height,
		FPS:      cfg.ActiveFPS,
	})

	application := app.New(app.Config{
		ActiveFPS:       cfg.ActiveFPS,
		IdleFPS:         cfg.IdleFPS,
		IdleTimeout:     cfg.IdleTimeout,
		MotionThreshold: cfg.MotionThreshold,
	}, camera, newDetector(cfg, log), controller, hub, log)
	defer application.Close()

	// A missing camera is reported by /api/health and can be retried from
	// the UI.
	if err := application.Start(); err != nil {
		log.WithError(err).Warn("Starting without camera")
	}

	thumbs, err := catalog.NewThumbnailer(catalog.DefaultThumbnailSize, thumbnailCacheSize)
	if err != nil {
		return fmt.Errorf("create thumbnailer: %w", err)
	}

	webDir := findWebDir(cfg.WebDir)
	if webDir != "" {
		log.WithField("dir", webDir).Info("Serving static files")
	}

	srv := server.New(server.Config{
		StaticDir:     webDir,
		Hub:           hub,
		Selector:      selector,
		Thumbnails:    thumbs,
		Controls:      controls,
		Camera:        application,
		SnapshotRate:  cfg.SnapshotRate,
		SnapshotBurst: cfg.SnapshotBurst,
		Log:           log,
	})

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).Info("Starting server")
		if err := srv.ListenAndServe(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	quit := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		var err error
		select {
		case err = <-serveErr:
		case s := <-sig:
			log.WithField("signal", s.String()).Info("Shutting down")
		case <-quit:
			log.Info("Quit from tray")
		}
		if tr != nil {
			tr.Quit()
		}
		done <- err
	}()

	if tr != nil {
		bindTray(tr, application, selector, hub, cfg, log)
		tr.OnQuit(func() { close(quit) })
		// Blocks on the main goroutine until Quit.
		tr.Run()
	}
	err = <-done

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
		log.WithError(shutdownErr).Warn("Server shutdown")
	}
	return err
}

// bindTray connects the tray menu to the running app. The camera label
// follows the app whether capture is toggled here or over HTTP.
func bindTray(tr *tray.Tray, application *app.App, selector *catalog.Selector, hub *pipeline.Hub, cfg *config.Config, log *logrus.Logger) {
	application.OnStateChange(tr.SetEnabled)
	tr.SetEnabled(application.Running())

	tr.OnToggle(func(enabled bool) bool {
		if !enabled {
			application.Stop()
			return false
		}
		if err := application.Start(); err != nil {
			log.WithError(err).Warn("Camera start from tray failed")
			return false
		}
		return true
	})
	tr.OnPrevious(func() {
		if _, err := selector.Previous(); err != nil {
			log.WithError(err).Debug("Previous chain")
		}
	})
	tr.OnNext(func() {
		if _, err := selector.Next(); err != nil {
			log.WithError(err).Debug("Next chain")
		}
	})
	tr.OnCapture(func() {
		path, err := pipeline.SaveSnapshot(cfg.ExportDir, hub.Latest())
		if err != nil {
			log.WithError(err).Warn("Capture failed")
			return
		}
		log.WithField("path", path).Info("Snapshot saved")
	})
	tr.OnOpen(func() {
		if err := openBrowser(browserURL(cfg.Addr)); err != nil {
			log.WithError(err).Warn("Failed to open browser")
		}
	})
}

// newDetector builds the configured detector, falling back to the mock when
// the MediaPipe helper is not installed.
func newDetector(cfg *config.Config, log *logrus.Logger) detector.Detector {
	if cfg.Detector == "mock" {
		log.Info("Using mock detector")
		return detector.NewMockDetector()
	}

	dcfg := detector.DefaultConfig()
	dcfg.IdleTimeout = cfg.DetectorIdle
	det, err := detector.NewMediaPipeDetector(dcfg, log)
	if err != nil {
		log.WithError(err).Warn("MediaPipe unavailable, using mock detector")
		return detector.NewMockDetector()
	}
	return det
}

// findWebDir resolves the static directory. A relative configured path is
// also tried one and two levels up, then under ~/.chainfit/web.
func findWebDir(configured string) string {
	candidates := []string{configured}
	if !filepath.IsAbs(configured) {
		candidates = append(candidates,
			filepath.Join("..", configured),
			filepath.Join("..", "..", configured),
		)
		if homeDir, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(homeDir, ".chainfit", "web"))
		}
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
