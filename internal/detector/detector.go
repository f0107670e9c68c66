package detector

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrUnavailable is returned when the landmark detector cannot be started.
var ErrUnavailable = errors.New("landmark detector unavailable")

// Detector defines the interface for face landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected face landmarks.
	// Returns an empty slice if no face is detected.
	Detect(frame *gocv.Mat) ([]FaceLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face landmark detection.
// It is the only configuration surface for every detector implementation.
type Config struct {
	// MaxFaces is the maximum number of faces to detect (default: 1).
	MaxFaces int

	// RefineLandmarks enables iris and lip refinement (478 points instead of 468).
	RefineLandmarks bool

	// MinDetectionConf is the minimum detection confidence threshold (0.0-1.0).
	MinDetectionConf float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxFaces:         1,
		RefineLandmarks:  true,
		MinDetectionConf: 0.6,
		MinTrackingConf:  0.6,
	}
}

// Normalize fills zero or out-of-range values with defaults.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.MaxFaces <= 0 {
		c.MaxFaces = def.MaxFaces
	}
	if c.MinDetectionConf <= 0 || c.MinDetectionConf > 1 {
		c.MinDetectionConf = def.MinDetectionConf
	}
	if c.MinTrackingConf <= 0 || c.MinTrackingConf > 1 {
		c.MinTrackingConf = def.MinTrackingConf
	}
	return c
}
