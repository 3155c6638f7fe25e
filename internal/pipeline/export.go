package pipeline

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ErrNoFrame is returned when exporting before any frame was rendered.
var ErrNoFrame = errors.New("pipeline: no frame rendered yet")

// SnapshotName returns the export filename for a capture taken at t.
func SnapshotName(t time.Time) string {
	return fmt.Sprintf("chain-fit-%d.png", t.UnixMilli())
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// SaveSnapshot writes f into dir under its SnapshotName and returns the path.
func SaveSnapshot(dir string, f *Frame) (string, error) {
	if f == nil || f.Image == nil {
		return "", ErrNoFrame
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, SnapshotName(f.At))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}

	if err := EncodePNG(file, f.Image); err != nil {
		file.Close()
		os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	return path, nil
}
