// Package testdata builds synthetic frames, overlay assets and landmark sets
// for tests.
package testdata

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ayusman/chainfit/internal/catalog"
	"github.com/ayusman/chainfit/internal/face"
)

var (
	Black = color.RGBA{A: 0xff}
	Red   = color.RGBA{R: 0xff, A: 0xff}
	Blue  = color.RGBA{B: 0xff, A: 0xff}
)

// Solid returns a w by h image filled with c.
func Solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// Gradient returns an opaque image whose pixels mostly differ from their
// neighbours, so byte comparisons catch any stray write.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 0xff})
		}
	}
	return img
}

// Asset returns a solid overlay asset.
func Asset(id string, w, h int, c color.RGBA) *catalog.Asset {
	a, err := catalog.NewAsset(id, id, id+".png", Solid(w, h, c))
	if err != nil {
		panic(fmt.Sprintf("testdata: %v", err))
	}
	return a
}

// FrontalAnchors is an upright face centred in the frame. On a 1000x1000
// frame the face is 100 px long and the jaw 200 px wide.
var FrontalAnchors = face.Anchors{
	Chin:     face.Point{X: 0.5, Y: 0.6},
	LeftJaw:  face.Point{X: 0.4, Y: 0.55},
	RightJaw: face.Point{X: 0.6, Y: 0.55},
	NoseTip:  face.Point{X: 0.5, Y: 0.5},
}

// FrontalLandmarks returns a full face-mesh landmark set for FrontalAnchors.
func FrontalLandmarks() face.Landmarks {
	return face.FaceMeshTopology.Synthesize(FrontalAnchors)
}

// ShortLandmarks returns a landmark set too small for the face-mesh topology.
func ShortLandmarks() face.Landmarks {
	return make(face.Landmarks, 100)
}
