package face

import "math"

// Metrics are the pixel-space measurements derived from one face.
type Metrics struct {
	// FaceLength is the nose tip to chin distance.
	FaceLength float64 `json:"face_length"`
	// JawWidth is the left to right jaw distance.
	JawWidth    float64 `json:"jaw_width"`
	JawMidpoint Point   `json:"jaw_midpoint"`
	// JawAngle is the jaw line angle in radians, positive when the right jaw
	// point sits lower in the frame than the left.
	JawAngle float64 `json:"jaw_angle"`
	Chin     Point   `json:"chin"`
}

// Measure derives face metrics from resolved anchors. Distances are reported
// as measured, including zero; callers that divide by them must clamp.
func Measure(a Anchors) Metrics {
	return Metrics{
		FaceLength: distance(a.NoseTip, a.Chin),
		JawWidth:   distance(a.LeftJaw, a.RightJaw),
		JawMidpoint: Point{
			X: (a.LeftJaw.X + a.RightJaw.X) / 2,
			Y: (a.LeftJaw.Y + a.RightJaw.Y) / 2,
		},
		JawAngle: math.Atan2(a.RightJaw.Y-a.LeftJaw.Y, a.RightJaw.X-a.LeftJaw.X),
		Chin:     a.Chin,
	}
}
