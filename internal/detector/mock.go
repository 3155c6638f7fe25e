package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/chainfit/internal/face"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	faces []face.Landmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []face.Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]face.Landmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FrontalLandmarks returns a preset face looking straight at the camera,
// centred horizontally with the chin at 60% of the frame height.
func FrontalLandmarks() face.Landmarks {
	return face.FaceMeshTopology.Synthesize(face.Anchors{
		Chin:     face.Point{X: 0.5, Y: 0.6},
		LeftJaw:  face.Point{X: 0.4, Y: 0.55},
		RightJaw: face.Point{X: 0.6, Y: 0.55},
		NoseTip:  face.Point{X: 0.5, Y: 0.5},
	})
}

// TiltedLandmarks returns a preset face with the head rolled so the right
// jaw sits lower than the left.
func TiltedLandmarks() face.Landmarks {
	return face.FaceMeshTopology.Synthesize(face.Anchors{
		Chin:     face.Point{X: 0.48, Y: 0.62},
		LeftJaw:  face.Point{X: 0.4, Y: 0.52},
		RightJaw: face.Point{X: 0.6, Y: 0.58},
		NoseTip:  face.Point{X: 0.5, Y: 0.5},
	})
}
