// Package app runs the capture loop that feeds camera frames and face
// detections into the placement pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/chainfit/internal/capture"
	"github.com/ayusman/chainfit/internal/detector"
	"github.com/ayusman/chainfit/internal/pipeline"
)

// Cadence defaults.
const (
	// IdleFPS is the frame rate when no face has been seen for a while.
	IdleFPS = 5
	// ActiveFPS is the frame rate while a face is in view.
	ActiveFPS = 15
	// IdleTimeout is how long without a face before dropping to IdleFPS.
	IdleTimeout = 2 * time.Second
)

// Config holds configuration options for the application.
type Config struct {
	ActiveFPS       int
	IdleFPS         int
	IdleTimeout     time.Duration
	MotionThreshold float64
}

func (c Config) withDefaults() Config {
	if c.ActiveFPS <= 0 {
		c.ActiveFPS = ActiveFPS
	}
	if c.IdleFPS <= 0 {
		c.IdleFPS = IdleFPS
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = IdleTimeout
	}
	if c.MotionThreshold <= 0 {
		c.MotionThreshold = 1.0 // 1% pixel change
	}
	return c
}

// Status is a point-in-time view of the capture loop.
type Status struct {
	Running bool   `json:"running"`
	Active  bool   `json:"active"`
	FPS     int    `json:"fps"`
	Frames  uint64 `json:"frames"`
	Error   string `json:"error,omitempty"`
}

// App owns the camera and the detector and drives the pipeline controller.
type App struct {
	config     Config
	camera     capture.Camera
	motion     *capture.MotionDetector
	detector   detector.Detector
	controller *pipeline.Controller
	hub        *pipeline.Hub
	log        *logrus.Logger

	detMu sync.RWMutex

	mu      sync.RWMutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error

	onState atomic.Pointer[func(running bool)]

	// Written by the render goroutine, read by the capture loop.
	lastFace atomic.Int64
	active   atomic.Bool
	frames   atomic.Uint64
}

// New creates a new App instance.
func New(config Config, camera capture.Camera, det detector.Detector, controller *pipeline.Controller, hub *pipeline.Hub, log *logrus.Logger) *App {
	if log == nil {
		log = logrus.StandardLogger()
	}
	config = config.withDefaults()

	return &App{
		config:     config,
		camera:     camera,
		motion:     capture.NewMotionDetector(config.MotionThreshold),
		detector:   det,
		controller: controller,
		hub:        hub,
		log:        log,
	}
}

// Start opens the camera and begins capturing. A failure to open the camera
// is returned and also kept as the persistent error reported by Err until a
// later Start succeeds.
func (a *App) Start() error {
	started, err := a.start()
	if started {
		a.notify(true)
	}
	return err
}

func (a *App) start() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return false, nil
	}

	if err := a.camera.Open(); err != nil {
		a.lastErr = fmt.Errorf("open camera: %w", err)
		a.log.WithError(err).Error("Camera unavailable")
		return false, a.lastErr
	}
	a.lastErr = nil

	// Start active so a face already in view renders at full rate.
	a.camera.SetFPS(a.config.ActiveFPS)
	a.active.Store(true)
	a.lastFace.Store(time.Now().UnixNano())

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	in := make(chan pipeline.Input)
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		defer close(in)
		a.runCapture(ctx, in)
	}()
	go func() {
		defer a.wg.Done()
		if err := a.controller.Run(ctx, in, a.emit); err != nil && !errors.Is(err, context.Canceled) {
			a.log.WithError(err).Error("Render loop stopped")
		}
	}()

	size := a.camera.Size()
	a.log.WithFields(logrus.Fields{
		"width":  size.X,
		"height": size.Y,
		"fps":    a.config.ActiveFPS,
	}).Info("Capture started")
	return true, nil
}

// Stop halts capture and closes the camera. The detector stays available
// for a later Start.
func (a *App) Stop() {
	if a.stop() {
		a.notify(false)
	}
}

func (a *App) stop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil {
		return false
	}

	a.cancel()
	a.wg.Wait()
	a.cancel = nil

	if err := a.camera.Close(); err != nil {
		a.log.WithError(err).Warn("Error closing camera")
	}
	a.motion.Reset()
	a.hub.Reset()
	a.active.Store(false)

	a.log.Info("Capture stopped")
	return true
}

// OnStateChange registers fn to be called after capture starts or stops,
// whoever triggered it. It replaces any earlier callback.
func (a *App) OnStateChange(fn func(running bool)) {
	if fn == nil {
		a.onState.Store(nil)
		return
	}
	a.onState.Store(&fn)
}

func (a *App) notify(running bool) {
	if fn := a.onState.Load(); fn != nil {
		(*fn)(running)
	}
}

// Close stops capture and releases the detector and motion state.
func (a *App) Close() error {
	a.Stop()
	a.motion.Close()

	if det := a.Detector(); det != nil {
		return det.Close()
	}
	return nil
}

// Running reports whether the capture loop is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cancel != nil
}

// Err returns the last camera failure, or nil.
func (a *App) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastErr
}

// Status summarizes the capture loop for health reporting.
func (a *App) Status() Status {
	s := Status{
		Running: a.Running(),
		Active:  a.active.Load(),
		Frames:  a.frames.Load(),
	}
	if s.Running {
		s.FPS = a.camera.FPS()
	}
	if err := a.Err(); err != nil {
		s.Error = err.Error()
	}
	return s
}

// SetDetector replaces the landmark detector.
func (a *App) SetDetector(d detector.Detector) {
	a.detMu.Lock()
	defer a.detMu.Unlock()
	a.detector = d
}

// Detector returns the landmark detector.
func (a *App) Detector() detector.Detector {
	a.detMu.RLock()
	defer a.detMu.RUnlock()
	return a.detector
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Hub returns the output hub rendered frames are published to.
func (a *App) Hub() *pipeline.Hub {
	return a.hub
}

// emit publishes a rendered frame and records face presence for the
// cadence switch.
func (a *App) emit(f *pipeline.Frame) {
	if f.Result.State == pipeline.StateFaceDetected {
		a.lastFace.Store(f.At.UnixNano())
	}
	a.frames.Add(1)
	a.hub.Publish(f)
}
