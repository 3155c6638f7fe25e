package catalog

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultThumbnailSize bounds the longer side of a gallery thumbnail.
const DefaultThumbnailSize = 160

// Thumbnailer renders PNG gallery thumbnails and caches the encoded bytes
// by asset ID.
type Thumbnailer struct {
	size  int
	cache *lru.Cache[string, []byte]
}

// NewThumbnailer creates a Thumbnailer producing images that fit in a
// size by size box, caching up to capacity of them.
func NewThumbnailer(size, capacity int) (*Thumbnailer, error) {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	cache, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("thumbnail cache: %w", err)
	}
	return &Thumbnailer{size: size, cache: cache}, nil
}

// PNG returns the encoded thumbnail for a.
func (t *Thumbnailer) PNG(a *Asset) ([]byte, error) {
	if data, ok := t.cache.Get(a.ID); ok {
		return data, nil
	}

	thumb := imaging.Fit(a.Image, t.size, t.size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, fmt.Errorf("encode thumbnail %s: %w", a.Name, err)
	}

	data := buf.Bytes()
	t.cache.Add(a.ID, data)
	return data, nil
}

// Purge drops every cached thumbnail.
func (t *Thumbnailer) Purge() {
	t.cache.Purge()
}
