package catalog

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IDSource hands out stable IDs for assets. The store's chain repository
// satisfies it.
type IDSource interface {
	ChainID(name, source string, width, height int) (string, error)
}

type randomIDs struct{}

func (randomIDs) ChainID(string, string, int, int) (string, error) {
	return uuid.NewString(), nil
}

var extensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// LoadDir decodes every png/jpg/jpeg file in dir, in filename order. Files
// that fail to decode are logged and skipped. A nil ids assigns random IDs.
func LoadDir(dir string, ids IDSource, log *logrus.Logger) ([]*Asset, error) {
	if ids == nil {
		ids = randomIDs{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read chains dir: %w", err)
	}

	var assets []*Asset
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || !extensions[ext] {
			continue
		}

		path := filepath.Join(dir, e.Name())
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		entry := log.WithFields(logrus.Fields{"file": path})

		img, err := Decode(path)
		if err != nil {
			entry.WithError(err).Warn("Skipping chain image")
			continue
		}

		size := img.Bounds().Size()
		id, err := ids.ChainID(name, path, size.X, size.Y)
		if err != nil {
			return nil, fmt.Errorf("assign id for %s: %w", name, err)
		}

		a, err := NewAsset(id, name, path, img)
		if err != nil {
			entry.WithError(err).Warn("Skipping chain image")
			continue
		}
		assets = append(assets, a)
	}

	log.WithFields(logrus.Fields{"dir": dir, "count": len(assets)}).Info("Loaded chains")
	return assets, nil
}

// Decode reads an image from a file path or a base64 data URI.
func Decode(ref string) (image.Image, error) {
	if strings.HasPrefix(ref, "data:") {
		return decodeDataURI(ref)
	}

	img, err := imaging.Open(ref, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	return img, nil
}

func decodeDataURI(ref string) (image.Image, error) {
	header, payload, ok := strings.Cut(ref, ",")
	if !ok || !strings.HasSuffix(header, ";base64") || !strings.HasPrefix(header, "data:image/") {
		return nil, fmt.Errorf("decode data uri: unsupported header %q", header)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return img, nil
}

// DataURI encodes the asset as a PNG data URI.
func DataURI(a *Asset) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, a.Image); err != nil {
		return "", fmt.Errorf("encode %s: %w", a.Name, err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
