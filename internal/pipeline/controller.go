// Package pipeline turns a camera frame and its detected faces into a
// composited try-on frame.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"github.com/ayusman/chainfit/internal/catalog"
	"github.com/ayusman/chainfit/internal/compositor"
	"github.com/ayusman/chainfit/internal/face"
	"github.com/ayusman/chainfit/internal/placement"
)

// State reports whether a face was used for the frame.
type State string

const (
	StateNoFace       State = "no_face"
	StateFaceDetected State = "face_detected"
)

// ParamSource supplies the live placement parameters.
type ParamSource interface {
	Parameters() placement.Parameters
}

// AssetSource supplies the active overlay asset, or nil when none is ready.
type AssetSource interface {
	Active() *catalog.Asset
}

// Timing holds per-stage durations for one frame.
type Timing struct {
	Background time.Duration
	Measure    time.Duration
	Solve      time.Duration
	Composite  time.Duration
	Total      time.Duration
}

// Result describes what the controller did with one frame.
type Result struct {
	State     State               `json:"state"`
	Overlay   bool                `json:"overlay"`
	AssetID   string              `json:"asset_id,omitempty"`
	Metrics   face.Metrics        `json:"metrics"`
	Transform placement.Transform `json:"transform"`
	Err       error               `json:"-"`
	Timing    Timing              `json:"-"`
}

// Config holds controller settings. Zero values select the defaults.
type Config struct {
	Topology   face.Topology
	Profile    placement.Profile
	Compositor *compositor.Compositor
	// Strict panics when the landmark set does not fit the topology instead
	// of degrading to a background-only frame.
	Strict bool
}

// Controller runs landmark lookup, measurement, placement and compositing
// for each frame. It keeps no state between frames; parameters and the
// active asset are read from their sources on every call.
type Controller struct {
	topology face.Topology
	profile  placement.Profile
	comp     *compositor.Compositor
	strict   bool
	params   ParamSource
	assets   AssetSource
	log      *logrus.Logger
}

// NewController creates a Controller.
func NewController(cfg Config, params ParamSource, assets AssetSource, log *logrus.Logger) *Controller {
	if cfg.Topology == (face.Topology{}) {
		cfg.Topology = face.FaceMeshTopology
	}
	if cfg.Profile == (placement.Profile{}) {
		cfg.Profile = placement.CanonicalProfile
	}
	if cfg.Compositor == nil {
		cfg.Compositor = compositor.New()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Controller{
		topology: cfg.Topology,
		profile:  cfg.Profile,
		comp:     cfg.Compositor,
		strict:   cfg.Strict,
		params:   params,
		assets:   assets,
		log:      log,
	}
}

// Topology returns the landmark topology in use.
func (c *Controller) Topology() face.Topology {
	return c.topology
}

// Render composites one frame into a newly allocated buffer.
func (c *Controller) Render(frame image.Image, faces []face.Landmarks) (*image.RGBA, Result) {
	dst := image.NewRGBA(frame.Bounds())
	res := c.RenderInto(dst, frame, faces)
	return dst, res
}

// RenderInto overwrites dst with frame and draws the active asset on the
// first face, if any.
func (c *Controller) RenderInto(dst draw.Image, frame image.Image, faces []face.Landmarks) Result {
	start := time.Now()
	res := Result{State: StateNoFace}

	draw.Draw(dst, dst.Bounds(), frame, frame.Bounds().Min, draw.Src)
	res.Timing.Background = time.Since(start)

	if len(faces) == 0 {
		return finish(&res, start)
	}

	size := frame.Bounds().Size()

	t := time.Now()
	anchors, err := c.topology.Resolve(faces[0], size.X, size.Y)
	if err != nil {
		if errors.Is(err, face.ErrNoFace) {
			return finish(&res, start)
		}
		if c.strict {
			panic(fmt.Sprintf("pipeline: landmark set does not fit topology: %v", err))
		}
		c.log.WithFields(logrus.Fields{
			"landmarks": len(faces[0]),
			"required":  c.topology.Required(),
		}).WithError(err).Warn("Landmark set does not fit topology")
		res.Err = err
		return finish(&res, start)
	}

	res.State = StateFaceDetected
	res.Metrics = face.Measure(anchors)
	res.Timing.Measure = time.Since(t)

	var asset *catalog.Asset
	if c.assets != nil {
		asset = c.assets.Active()
	}
	if asset == nil {
		return finish(&res, start)
	}

	params := placement.DefaultParameters()
	if c.params != nil {
		params = c.params.Parameters()
	}

	t = time.Now()
	res.Transform = c.profile.Solve(res.Metrics, params, size.X, asset.Size())
	res.Timing.Solve = time.Since(t)

	// Landmarks are relative to the frame origin; dst may not start at zero.
	placed := res.Transform
	placed.AnchorX += float64(dst.Bounds().Min.X)
	placed.AnchorY += float64(dst.Bounds().Min.Y)

	t = time.Now()
	c.comp.Draw(dst, asset.Image, placed)
	res.Timing.Composite = time.Since(t)

	res.Overlay = true
	res.AssetID = asset.ID
	return finish(&res, start)
}

func finish(res *Result, start time.Time) Result {
	res.Timing.Total = time.Since(start)
	return *res
}

// Input is one captured frame with its detections.
type Input struct {
	Frame image.Image
	Faces []face.Landmarks
	At    time.Time
}

// Run renders inputs in delivery order and hands each result to emit. It
// returns nil when in is closed and the context error when ctx ends.
func (c *Controller) Run(ctx context.Context, in <-chan Input, emit func(*Frame)) error {
	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-in:
			if !ok {
				return nil
			}
			img, res := c.Render(item.Frame, item.Faces)
			seq++
			at := item.At
			if at.IsZero() {
				at = time.Now()
			}
			emit(&Frame{Seq: seq, At: at, Image: img, Result: res})
		}
	}
}
