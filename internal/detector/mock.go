package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	faces    []FaceLandmarks
	sequence [][]FaceLandmarks
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetSequence queues per-call results. Each Detect call consumes one entry;
// once the queue is drained Detect falls back to the faces set by SetFaces.
func (m *MockDetector) SetSequence(seq [][]FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = seq
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next queued result, the pre-configured faces, or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]FaceLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		next := m.sequence[0]
		m.sequence = m.sequence[1:]
		return next, nil
	}
	return m.faces, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// SyntheticFace returns a full face mesh with the nose tip at nose and the
// inner lips separated vertically by lipGap. Every other point sits on a
// small grid around the nose so that overlays have something to draw.
func SyntheticFace(nose Point3D, lipGap float64) FaceLandmarks {
	face := FaceLandmarks{
		Points: make([]Point3D, NumLandmarks),
		Score:  0.97,
	}

	for i := range face.Points {
		col := float64(i%22) - 11
		row := float64(i/22) - 11
		face.Points[i] = Point3D{
			X: nose.X + col*0.008,
			Y: nose.Y + row*0.01,
			Z: nose.Z,
		}
	}

	face.Points[NoseTip] = nose
	mouth := Point3D{X: nose.X, Y: nose.Y + 0.08, Z: nose.Z}
	face.Points[UpperLipInner] = Point3D{X: mouth.X, Y: mouth.Y - lipGap/2, Z: mouth.Z}
	face.Points[LowerLipInner] = Point3D{X: mouth.X, Y: mouth.Y + lipGap/2, Z: mouth.Z}

	return face
}

// MouthOpenFace returns a preset face with the mouth clearly open.
func MouthOpenFace(noseX, noseY float64) FaceLandmarks {
	return SyntheticFace(Point3D{X: noseX, Y: noseY}, 0.08)
}

// MouthClosedFace returns a preset face with the lips touching.
func MouthClosedFace(noseX, noseY float64) FaceLandmarks {
	return SyntheticFace(Point3D{X: noseX, Y: noseY}, 0.005)
}
