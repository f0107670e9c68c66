package gesture

import (
	"github.com/ayusman/easel/internal/detector"
)

// DefaultAlpha is the reference smoothing factor for the pen position.
const DefaultAlpha = 0.22

// Smoother is a first-order exponential moving average over a tracked point.
// It is owned by one pipeline session; each session creates its own.
type Smoother struct {
	alpha   float64
	current detector.Point3D
	seeded  bool
}

// NewSmoother creates a Smoother with the given alpha.
// Alpha outside (0,1) falls back to DefaultAlpha.
func NewSmoother(alpha float64) *Smoother {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	return &Smoother{alpha: alpha}
}

// Alpha returns the smoothing factor.
func (s *Smoother) Alpha() float64 {
	return s.alpha
}

// Update feeds a raw sample and returns the new smoothed value.
// The first sample after construction or Reset seeds the filter unchanged.
func (s *Smoother) Update(raw detector.Point3D) detector.Point3D {
	if !s.seeded {
		s.current = raw
		s.seeded = true
		return s.current
	}

	s.current = detector.Point3D{
		X: s.current.X + s.alpha*(raw.X-s.current.X),
		Y: s.current.Y + s.alpha*(raw.Y-s.current.Y),
		Z: s.current.Z + s.alpha*(raw.Z-s.current.Z),
	}
	return s.current
}

// Current returns the smoothed value and whether the filter has been seeded.
func (s *Smoother) Current() (detector.Point3D, bool) {
	return s.current, s.seeded
}

// Reset discards the filter state; the next sample becomes the new seed.
func (s *Smoother) Reset() {
	s.current = detector.Point3D{}
	s.seeded = false
}

// Seeded reports whether a smoothed position exists.
func (s *Smoother) Seeded() bool {
	return s.seeded
}
