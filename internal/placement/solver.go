package placement

import (
	"image"
	"math"

	"github.com/ayusman/chainfit/internal/face"
)

// MinDistance is the smallest face length or jaw width, in pixels, the solver
// will use. Degenerate landmarks are clamped up to it.
const MinDistance = 1e-3

// Transform places an overlay: its top-center edge sits at the anchor, scaled
// uniformly and rotated about the anchor.
type Transform struct {
	AnchorX  float64 `json:"anchor_x"`
	AnchorY  float64 `json:"anchor_y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
}

// RenderedSize returns the overlay size in pixels for an asset of the given
// intrinsic size.
func (t Transform) RenderedSize(asset image.Point) (w, h float64) {
	return float64(asset.X) * t.Scale, float64(asset.Y) * t.Scale
}

// Profile holds the constants of a placement formula.
type Profile struct {
	// DropRatio is the base drop below the chin as a fraction of face length.
	DropRatio float64
	// WidthDropGain scales the extra drop given to faces close to the camera.
	WidthDropGain float64
	// MaxWidthRatio caps the jaw-to-frame width ratio used for the extra drop.
	MaxWidthRatio float64
	// BaseWidthRatio is the overlay width as a multiple of jaw width.
	BaseWidthRatio float64
	// WidthGrowthGain widens the overlay further for close faces.
	WidthGrowthGain float64
	// ChinLift is the fixed share of face length added to the final anchor.
	ChinLift float64
}

// CanonicalProfile is the placement formula used by default.
var CanonicalProfile = Profile{
	DropRatio:       0.3,
	WidthDropGain:   0.8,
	MaxWidthRatio:   0.3,
	BaseWidthRatio:  1.4,
	WidthGrowthGain: 0.8,
	ChinLift:        0.15,
}

// Solve computes a transform with the canonical profile.
func Solve(m face.Metrics, p Parameters, frameWidth int, asset image.Point) Transform {
	return CanonicalProfile.Solve(m, p, frameWidth, asset)
}

// Solve computes the overlay transform for one face. It is a pure function
// of its arguments.
//
// The drop below the chin grows with face length, plus an extra share for
// faces whose jaw spans more of the frame, since those are closer to the
// camera. The overlay width tracks jaw width, growing faster than linear for
// close faces. The user's vertical offset then lifts the overlay by a
// fraction of its own rendered height.
func (pr Profile) Solve(m face.Metrics, p Parameters, frameWidth int, asset image.Point) Transform {
	faceLength := math.Max(m.FaceLength, MinDistance)
	jawWidth := math.Max(m.JawWidth, MinDistance)

	widthRatio := 0.0
	if frameWidth > 0 {
		widthRatio = jawWidth / float64(frameWidth)
	}

	drop := faceLength * pr.DropRatio
	drop += math.Min(widthRatio, pr.MaxWidthRatio) * faceLength * pr.WidthDropGain

	anchorX := m.JawMidpoint.X
	baseY := m.Chin.Y + drop

	targetWidth := jawWidth * (pr.BaseWidthRatio + widthRatio*pr.WidthGrowthGain)

	assetW := float64(asset.X)
	if assetW <= 0 {
		assetW = 1
	}
	scale := targetWidth / assetW * p.Scale

	overlayHeight := float64(asset.Y) * scale
	anchorY := baseY + faceLength*pr.ChinLift - overlayHeight*p.VerticalOffset

	return Transform{
		AnchorX:  anchorX,
		AnchorY:  anchorY,
		Scale:    scale,
		Rotation: m.JawAngle,
	}
}
