// Package detector provides face landmark detection interfaces and types for gesture drawing.
package detector

import "math"

// Face mesh landmark indices following the MediaPipe FaceMesh convention.
// Only the points the drawing pipeline depends on are named here.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	NoseTip       = 1
	UpperLipInner = 13
	LowerLipInner = 14

	// NumLandmarks is the size of the base face mesh.
	NumLandmarks = 468
	// NumRefinedLandmarks is the size of the mesh with iris refinement enabled.
	NumRefinedLandmarks = 478
)

// Point3D represents a landmark with normalized x, y in [0,1] and relative depth z.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// FaceLandmarks is the landmark set detected for a single face in one frame.
// Points are indexed by the face mesh convention.
type FaceLandmarks struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// Point returns the landmark at index i and whether it is present.
func (f *FaceLandmarks) Point(i int) (Point3D, bool) {
	if f == nil || i < 0 || i >= len(f.Points) {
		return Point3D{}, false
	}
	return f.Points[i], true
}

// Nose returns the nose tip landmark.
func (f *FaceLandmarks) Nose() (Point3D, bool) {
	return f.Point(NoseTip)
}

// Lips returns the inner upper and lower lip landmarks.
// ok is false if either is missing.
func (f *FaceLandmarks) Lips() (upper, lower Point3D, ok bool) {
	upper, okUpper := f.Point(UpperLipInner)
	lower, okLower := f.Point(LowerLipInner)
	return upper, lower, okUpper && okLower
}

// Primary returns the first face of a detection result, or nil if no face was found.
func Primary(faces []FaceLandmarks) *FaceLandmarks {
	if len(faces) == 0 {
		return nil
	}
	return &faces[0]
}
