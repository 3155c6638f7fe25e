// Package compositor draws a placed overlay onto a frame buffer.
package compositor

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ayusman/chainfit/internal/placement"
)

// Compositor draws overlay images with an affine transform.
type Compositor struct {
	interp  draw.Interpolator
	opacity float64
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithInterpolator sets the resampling kernel. The default is bilinear.
func WithInterpolator(interp draw.Interpolator) Option {
	return func(c *Compositor) {
		if interp != nil {
			c.interp = interp
		}
	}
}

// WithOpacity sets a uniform overlay opacity in [0,1]. Out of range values
// are clamped.
func WithOpacity(opacity float64) Option {
	return func(c *Compositor) {
		c.opacity = math.Min(math.Max(opacity, 0), 1)
	}
}

// New creates a Compositor.
func New(opts ...Option) *Compositor {
	c := &Compositor{
		interp:  draw.BiLinear,
		opacity: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Opacity returns the configured overlay opacity.
func (c *Compositor) Opacity() float64 {
	return c.opacity
}

// Matrix returns the source-to-destination transform for drawing src with
// bounds srcBounds under t.
//
// In overlay-local coordinates the image spans x in [-w/2, w/2) and y in
// [0, h), where w and h are the scaled size. That frame is rotated about the
// anchor and then moved to it.
func Matrix(t placement.Transform, srcBounds image.Rectangle) f64.Aff3 {
	sin, cos := math.Sincos(t.Rotation)
	s := t.Scale
	halfW := float64(srcBounds.Dx()) * s / 2

	// local = (s*(u-minX) - halfW, s*(v-minY))
	// dst   = anchor + R * local
	a, b := cos*s, -sin*s
	d, e := sin*s, cos*s

	minX, minY := float64(srcBounds.Min.X), float64(srcBounds.Min.Y)
	c := t.AnchorX - cos*halfW - a*minX - b*minY
	f := t.AnchorY - sin*halfW - d*minX - e*minY

	return f64.Aff3{a, b, c, d, e, f}
}

// Draw composites src onto dst under t. The transform is computed per call,
// so nothing carries over into later draws on the same buffer.
func (c *Compositor) Draw(dst draw.Image, src image.Image, t placement.Transform) {
	if dst == nil || src == nil || t.Scale <= 0 || c.opacity == 0 {
		return
	}

	sr := src.Bounds()
	if sr.Empty() {
		return
	}

	var opts *draw.Options
	if c.opacity < 1 {
		opts = &draw.Options{
			SrcMask: image.NewUniform(color.Alpha16{A: uint16(c.opacity * 0xffff)}),
		}
	}

	c.interp.Transform(dst, Matrix(t, sr), src, sr, draw.Over, opts)
}

// Bounds returns the unclipped destination rectangle covered by src under t.
func Bounds(t placement.Transform, srcBounds image.Rectangle) image.Rectangle {
	m := Matrix(t, srcBounds)
	corners := [4][2]float64{
		{float64(srcBounds.Min.X), float64(srcBounds.Min.Y)},
		{float64(srcBounds.Max.X), float64(srcBounds.Min.Y)},
		{float64(srcBounds.Min.X), float64(srcBounds.Max.Y)},
		{float64(srcBounds.Max.X), float64(srcBounds.Max.Y)},
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range corners {
		x := m[0]*p[0] + m[1]*p[1] + m[2]
		y := m[3]*p[0] + m[4]*p[1] + m[5]
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}

	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}
