package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/chainfit/internal/capture"
	"github.com/ayusman/chainfit/internal/face"
	"github.com/ayusman/chainfit/internal/pipeline"
)

// nextMode decides the capture mode from the time of the last detected
// face. It returns the new mode and whether it changed.
func nextMode(active bool, lastFace, now time.Time, timeout time.Duration) (bool, bool) {
	recent := now.Sub(lastFace) <= timeout
	switch {
	case !active && recent:
		return true, true
	case active && !recent:
		return false, true
	default:
		return active, false
	}
}

// runCapture reads frames, detects faces and hands each frame to the
// controller over in.
//
// Loop logic:
//  1. Start in active mode (ActiveFPS)
//  2. Detect faces on every frame while active
//  3. After IdleTimeout without a face, drop to IdleFPS
//  4. While idle, only run the detector on frames with motion
//  5. A detected face switches back to active mode
func (a *App) runCapture(ctx context.Context, in chan<- pipeline.Input) {
	ticker := time.NewTicker(time.Second / time.Duration(a.config.ActiveFPS))
	defer ticker.Stop()

	var readErrs int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			// Log the first failure of a streak only.
			if readErrs == 0 {
				a.log.WithError(err).Warn("Error reading frame")
			}
			readErrs++
			continue
		}
		readErrs = 0

		input, ok := a.prepare(frame)
		frame.Close()
		if !ok {
			continue
		}

		select {
		case in <- input:
		case <-ctx.Done():
			return
		}

		a.updateCadence(ticker, input.At)
	}
}

// prepare converts the frame and runs detection.
func (a *App) prepare(frame *gocv.Mat) (pipeline.Input, bool) {
	now := time.Now()

	img, err := capture.ToRGBA(frame)
	if err != nil {
		a.log.WithError(err).Warn("Error converting frame")
		return pipeline.Input{}, false
	}

	var faces []face.Landmarks
	if a.shouldDetect(frame) {
		if det := a.Detector(); det != nil {
			faces, err = det.Detect(frame)
			if err != nil {
				// Render the background alone and try again next frame.
				a.log.WithError(err).Warn("Error detecting faces")
				faces = nil
			}
		}
	}

	return pipeline.Input{Frame: img, Faces: faces, At: now}, true
}

// shouldDetect gates the detector on motion while idle.
func (a *App) shouldDetect(frame *gocv.Mat) bool {
	if a.active.Load() {
		return true
	}
	moved, changed := a.motion.Detect(frame)
	if moved {
		a.log.WithField("changed_pct", changed).Debug("Motion while idle")
	}
	return moved
}

func (a *App) updateCadence(ticker *time.Ticker, now time.Time) {
	lastFace := time.Unix(0, a.lastFace.Load())
	active, changed := nextMode(a.active.Load(), lastFace, now, a.config.IdleTimeout)
	if !changed {
		return
	}

	a.active.Store(active)
	fps := a.config.IdleFPS
	if active {
		fps = a.config.ActiveFPS
	} else {
		// Fresh baseline for the idle motion gate.
		a.motion.Reset()
	}

	a.camera.SetFPS(fps)
	ticker.Reset(time.Second / time.Duration(fps))
	a.log.WithFields(logrus.Fields{"active": active, "fps": fps}).Info("Capture cadence changed")
}
