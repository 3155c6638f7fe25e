// Package face resolves named face-mesh landmarks into pixel space and derives
// the face measurements used to place an overlay.
package face

import (
	"errors"
	"fmt"
	"math"
)

// Face mesh sizes published by MediaPipe.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	MeshSize        = 468
	RefinedMeshSize = 478
)

var (
	// ErrNoFace is returned when the landmark set is empty. It is the normal
	// signal for a frame where the detector found nothing.
	ErrNoFace = errors.New("no face landmarks")

	// ErrIndexOutOfRange is returned when a topology index does not exist in the
	// supplied landmark set, which means the topology and detector disagree.
	ErrIndexOutOfRange = errors.New("landmark index out of range")
)

// Point is a 2D coordinate. Detector output is normalized to [0,1]; accessor
// output is in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Landmarks is the ordered landmark set for one face in one frame.
type Landmarks []Point

// Name identifies a landmark by meaning rather than by index.
type Name string

const (
	Chin     Name = "chin"
	LeftJaw  Name = "left_jaw"
	RightJaw Name = "right_jaw"
	NoseTip  Name = "nose_tip"
)

// Topology maps semantic landmark names to indices of the detector's mesh.
type Topology struct {
	Chin     int `json:"chin"`
	LeftJaw  int `json:"left_jaw"`
	RightJaw int `json:"right_jaw"`
	NoseTip  int `json:"nose_tip"`
}

// FaceMeshTopology is the canonical index choice: jaw corners at the widest
// point of the face outline.
var FaceMeshTopology = Topology{
	Chin:     152,
	LeftJaw:  234,
	RightJaw: 454,
	NoseTip:  4,
}

// JawlineTopology uses the lower jaw corners instead of the face outline.
var JawlineTopology = Topology{
	Chin:     152,
	LeftJaw:  172,
	RightJaw: 397,
	NoseTip:  4,
}

// TopologyByName returns a named topology. Unknown names return false.
func TopologyByName(name string) (Topology, bool) {
	switch name {
	case "", "facemesh":
		return FaceMeshTopology, true
	case "jawline":
		return JawlineTopology, true
	default:
		return Topology{}, false
	}
}

// Index returns the mesh index for name, or -1 if name is unknown.
func (t Topology) Index(name Name) int {
	switch name {
	case Chin:
		return t.Chin
	case LeftJaw:
		return t.LeftJaw
	case RightJaw:
		return t.RightJaw
	case NoseTip:
		return t.NoseTip
	default:
		return -1
	}
}

// Required returns the minimum landmark count the topology can read from.
func (t Topology) Required() int {
	return max(t.Chin, t.LeftJaw, t.RightJaw, t.NoseTip) + 1
}

// PointOf returns the pixel position of the named landmark for a frame of
// the given size.
func (t Topology) PointOf(lm Landmarks, name Name, width, height int) (Point, error) {
	if len(lm) == 0 {
		return Point{}, ErrNoFace
	}

	idx := t.Index(name)
	if idx < 0 || idx >= len(lm) {
		return Point{}, fmt.Errorf("%s at %d with %d landmarks: %w", name, idx, len(lm), ErrIndexOutOfRange)
	}

	p := lm[idx]
	return Point{X: p.X * float64(width), Y: p.Y * float64(height)}, nil
}

// Anchors holds the pixel positions of every landmark the placement needs.
type Anchors struct {
	Chin     Point `json:"chin"`
	LeftJaw  Point `json:"left_jaw"`
	RightJaw Point `json:"right_jaw"`
	NoseTip  Point `json:"nose_tip"`
}

// Resolve looks up all anchors at once. The first failing lookup is returned.
func (t Topology) Resolve(lm Landmarks, width, height int) (Anchors, error) {
	var a Anchors
	var err error

	if a.Chin, err = t.PointOf(lm, Chin, width, height); err != nil {
		return Anchors{}, err
	}
	if a.LeftJaw, err = t.PointOf(lm, LeftJaw, width, height); err != nil {
		return Anchors{}, err
	}
	if a.RightJaw, err = t.PointOf(lm, RightJaw, width, height); err != nil {
		return Anchors{}, err
	}
	if a.NoseTip, err = t.PointOf(lm, NoseTip, width, height); err != nil {
		return Anchors{}, err
	}

	return a, nil
}

// distance calculates the Euclidean distance between two points.
func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Synthesize builds a full-size landmark set with the given normalized anchors
// at this topology's indices and every other point at the frame center. It is
// used for fixtures and the mock detector.
func (t Topology) Synthesize(a Anchors) Landmarks {
	n := max(MeshSize, t.Required())
	lm := make(Landmarks, n)
	for i := range lm {
		lm[i] = Point{X: 0.5, Y: 0.5}
	}

	lm[t.Chin] = a.Chin
	lm[t.LeftJaw] = a.LeftJaw
	lm[t.RightJaw] = a.RightJaw
	lm[t.NoseTip] = a.NoseTip

	return lm
}
