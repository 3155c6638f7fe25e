package face

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func frontalAnchors() Anchors {
	return Anchors{
		Chin:     Point{X: 0.5, Y: 0.6},
		NoseTip:  Point{X: 0.5, Y: 0.5},
		LeftJaw:  Point{X: 0.4, Y: 0.55},
		RightJaw: Point{X: 0.6, Y: 0.55},
	}
}

func TestTopology_PointOf(t *testing.T) {
	lm := FaceMeshTopology.Synthesize(frontalAnchors())

	tests := []struct {
		name   string
		point  Name
		width  int
		height int
		want   Point
	}{
		{name: "chin square frame", point: Chin, width: 1000, height: 1000, want: Point{X: 500, Y: 600}},
		{name: "nose tip square frame", point: NoseTip, width: 1000, height: 1000, want: Point{X: 500, Y: 500}},
		{name: "left jaw wide frame", point: LeftJaw, width: 1280, height: 720, want: Point{X: 512, Y: 396}},
		{name: "right jaw wide frame", point: RightJaw, width: 1280, height: 720, want: Point{X: 768, Y: 396}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FaceMeshTopology.PointOf(lm, tt.point, tt.width, tt.height)
			if err != nil {
				t.Fatalf("PointOf() error = %v", err)
			}
			if math.Abs(got.X-tt.want.X) > epsilon || math.Abs(got.Y-tt.want.Y) > epsilon {
				t.Errorf("PointOf() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTopology_PointOf_Unavailable(t *testing.T) {
	t.Run("empty set reports no face", func(t *testing.T) {
		_, err := FaceMeshTopology.PointOf(nil, Chin, 640, 480)
		if !errors.Is(err, ErrNoFace) {
			t.Errorf("expected ErrNoFace, got %v", err)
		}
	})

	t.Run("short set reports index out of range", func(t *testing.T) {
		short := make(Landmarks, 100)
		_, err := FaceMeshTopology.PointOf(short, LeftJaw, 640, 480)
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("expected ErrIndexOutOfRange, got %v", err)
		}
	})

	t.Run("unknown name reports index out of range", func(t *testing.T) {
		lm := FaceMeshTopology.Synthesize(frontalAnchors())
		_, err := FaceMeshTopology.PointOf(lm, Name("ear"), 640, 480)
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("expected ErrIndexOutOfRange, got %v", err)
		}
	})
}

func TestTopology_Required(t *testing.T) {
	if got := FaceMeshTopology.Required(); got != 455 {
		t.Errorf("FaceMeshTopology.Required() = %d, want 455", got)
	}
	if got := JawlineTopology.Required(); got != 398 {
		t.Errorf("JawlineTopology.Required() = %d, want 398", got)
	}
}

func TestTopologyByName(t *testing.T) {
	tests := []struct {
		name   string
		want   Topology
		wantOK bool
	}{
		{name: "", want: FaceMeshTopology, wantOK: true},
		{name: "facemesh", want: FaceMeshTopology, wantOK: true},
		{name: "jawline", want: JawlineTopology, wantOK: true},
		{name: "hands", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TopologyByName(tt.name)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("topology = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMeasure(t *testing.T) {
	t.Run("frontal face", func(t *testing.T) {
		a, err := FaceMeshTopology.Resolve(FaceMeshTopology.Synthesize(frontalAnchors()), 1000, 1000)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}

		m := Measure(a)

		if math.Abs(m.FaceLength-100) > epsilon {
			t.Errorf("FaceLength = %f, want 100", m.FaceLength)
		}
		if math.Abs(m.JawWidth-200) > epsilon {
			t.Errorf("JawWidth = %f, want 200", m.JawWidth)
		}
		if math.Abs(m.JawAngle) > epsilon {
			t.Errorf("JawAngle = %f, want 0", m.JawAngle)
		}
		if math.Abs(m.JawMidpoint.X-500) > epsilon || math.Abs(m.JawMidpoint.Y-550) > epsilon {
			t.Errorf("JawMidpoint = %+v, want (500, 550)", m.JawMidpoint)
		}
	})

	t.Run("tilted jaw", func(t *testing.T) {
		m := Measure(Anchors{
			LeftJaw:  Point{X: 0, Y: 0},
			RightJaw: Point{X: 100, Y: 100},
		})

		if math.Abs(m.JawAngle-math.Pi/4) > epsilon {
			t.Errorf("JawAngle = %f, want %f", m.JawAngle, math.Pi/4)
		}
	})

	t.Run("coincident nose and chin", func(t *testing.T) {
		m := Measure(Anchors{
			Chin:    Point{X: 10, Y: 10},
			NoseTip: Point{X: 10, Y: 10},
		})

		if m.FaceLength != 0 {
			t.Errorf("FaceLength = %f, want 0", m.FaceLength)
		}
	})

	t.Run("aspect ratio is applied before measuring", func(t *testing.T) {
		a, err := FaceMeshTopology.Resolve(FaceMeshTopology.Synthesize(frontalAnchors()), 2000, 1000)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}

		m := Measure(a)

		if math.Abs(m.JawWidth-400) > epsilon {
			t.Errorf("JawWidth = %f, want 400", m.JawWidth)
		}
		if math.Abs(m.FaceLength-100) > epsilon {
			t.Errorf("FaceLength = %f, want 100", m.FaceLength)
		}
	})
}
