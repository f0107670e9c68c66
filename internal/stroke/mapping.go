package stroke

import "github.com/ayusman/easel/internal/detector"

// Point is a position in surface pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Mapping converts normalized capture coordinates into pixels on one surface.
// The capture is shown to the user as a mirror, so x is reflected.
type Mapping struct {
	Width  int
	Height int
}

// Map returns the mirrored pixel position of a normalized landmark.
func (m Mapping) Map(p detector.Point3D) Point {
	return Point{
		X: (1 - p.X) * float64(m.Width),
		Y: p.Y * float64(m.Height),
	}
}
