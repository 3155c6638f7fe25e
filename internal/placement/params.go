// Package placement turns face metrics and user parameters into the transform
// that positions an overlay on the frame.
package placement

import (
	"math"
	"sync/atomic"
)

// Nominal parameter ranges, matching the adjustment sliders.
const (
	MinScale          = 0.5
	MaxScale          = 2.0
	ScaleStep         = 0.1
	MinVerticalOffset = -0.3
	MaxVerticalOffset = 0.5
	VerticalStep      = 0.05

	DefaultScale          = 1.0
	DefaultVerticalOffset = 0.2
)

// Parameters are the user-tunable placement settings.
type Parameters struct {
	// Scale multiplies the width-derived base scale.
	Scale float64 `json:"scale"`
	// VerticalOffset is the fraction of the rendered overlay height the
	// overlay is pulled upward by.
	VerticalOffset float64 `json:"vertical_offset"`
}

// DefaultParameters returns the initial slider positions.
func DefaultParameters() Parameters {
	return Parameters{
		Scale:          DefaultScale,
		VerticalOffset: DefaultVerticalOffset,
	}
}

// Clamp returns p limited to the nominal ranges. NaN values fall back to
// the defaults.
func (p Parameters) Clamp() Parameters {
	if math.IsNaN(p.Scale) {
		p.Scale = DefaultScale
	}
	if math.IsNaN(p.VerticalOffset) {
		p.VerticalOffset = DefaultVerticalOffset
	}
	p.Scale = math.Min(math.Max(p.Scale, MinScale), MaxScale)
	p.VerticalOffset = math.Min(math.Max(p.VerticalOffset, MinVerticalOffset), MaxVerticalOffset)
	return p
}

// Controls holds the live parameters shared between the adjustment surfaces
// and the frame loop. Every write replaces the whole value, so a reader never
// sees a scale from one update paired with an offset from another.
type Controls struct {
	v        atomic.Pointer[Parameters]
	onChange func(Parameters)
}

// NewControls creates Controls holding p, clamped to the nominal ranges.
func NewControls(p Parameters) *Controls {
	c := &Controls{}
	p = p.Clamp()
	c.v.Store(&p)
	return c
}

// OnChange registers a callback invoked after every committed update.
// It must be set before the Controls are shared.
func (c *Controls) OnChange(fn func(Parameters)) {
	c.onChange = fn
}

// Parameters returns the most recently committed parameters.
func (c *Controls) Parameters() Parameters {
	return *c.v.Load()
}

// Set replaces the parameters with p, clamped, and returns what was stored.
func (c *Controls) Set(p Parameters) Parameters {
	p = p.Clamp()
	c.v.Store(&p)
	if c.onChange != nil {
		c.onChange(p)
	}
	return p
}

// SetScale replaces the scale while keeping the current offset.
func (c *Controls) SetScale(scale float64) Parameters {
	return c.Update(func(p *Parameters) { p.Scale = scale })
}

// SetVerticalOffset replaces the offset while keeping the current scale.
func (c *Controls) SetVerticalOffset(offset float64) Parameters {
	return c.Update(func(p *Parameters) { p.VerticalOffset = offset })
}

// Reset restores the default parameters.
func (c *Controls) Reset() Parameters {
	return c.Set(DefaultParameters())
}

// Update applies fn to a copy of the current parameters and commits the
// clamped result, retrying if another writer got there first.
func (c *Controls) Update(fn func(p *Parameters)) Parameters {
	for {
		old := c.v.Load()
		next := *old
		fn(&next)
		next = next.Clamp()
		if c.v.CompareAndSwap(old, &next) {
			if c.onChange != nil {
				c.onChange(next)
			}
			return next
		}
	}
}
