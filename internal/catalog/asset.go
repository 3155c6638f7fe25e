// Package catalog loads overlay assets and tracks which one is active.
package catalog

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrEmptyImage is returned when an asset image has no pixels.
	ErrEmptyImage = errors.New("catalog: empty image")
	// ErrNoAssets is returned when selecting from an empty catalog.
	ErrNoAssets = errors.New("catalog: no assets")
	// ErrOutOfRange is returned when a selection index is outside the catalog.
	ErrOutOfRange = errors.New("catalog: index out of range")
	// ErrUnknownAsset is returned when no asset has the requested ID.
	ErrUnknownAsset = errors.New("catalog: unknown asset")
)

// Asset is a decoded overlay image. Assets are immutable once built; a new
// image means a new Asset.
type Asset struct {
	ID     string
	Name   string
	Source string
	Image  image.Image
}

// NewAsset builds an Asset, rejecting images with zero width or height.
func NewAsset(id, name, source string, img image.Image) (*Asset, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("asset %q: %w", name, ErrEmptyImage)
	}
	return &Asset{
		ID:     id,
		Name:   name,
		Source: source,
		Image:  img,
	}, nil
}

// Size returns the intrinsic pixel size of the asset.
func (a *Asset) Size() image.Point {
	return a.Image.Bounds().Size()
}
