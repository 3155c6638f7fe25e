package detector

import (
	"fmt"
	"math"

	jsoniter "github.com/json-iterator/go"

	"github.com/ayusman/chainfit/internal/face"
)

// response is one line written by the face mesh service.
type response struct {
	Faces []jsonFace `json:"faces"`
	Error string     `json:"error,omitempty"`
}

type jsonFace struct {
	Points []jsonPoint `json:"points"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// decodeResponse parses a service reply into landmark sets, keeping at most
// maxFaces of them. Depth is dropped; placement only needs the image plane.
func decodeResponse(line []byte, maxFaces int) ([]face.Landmarks, error) {
	var resp response
	if err := jsoniter.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("face mesh service: %s", resp.Error)
	}

	faces := resp.Faces
	if maxFaces > 0 && len(faces) > maxFaces {
		faces = faces[:maxFaces]
	}

	result := make([]face.Landmarks, 0, len(faces))
	for i, f := range faces {
		lm := make(face.Landmarks, len(f.Points))
		for j, p := range f.Points {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
				return nil, fmt.Errorf("face %d point %d: non-finite coordinate", i, j)
			}
			lm[j] = face.Point{X: p.X, Y: p.Y}
		}
		result = append(result, lm)
	}

	return result, nil
}
