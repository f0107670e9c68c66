// Package gesture turns face landmarks into the signals that drive drawing:
// the mouth-open gate and a smoothed pen position.
package gesture

import (
	"github.com/ayusman/easel/internal/detector"
)

// DefaultMouthThreshold is the inner-lip distance, in normalized units,
// above which the mouth counts as open.
const DefaultMouthThreshold = 0.045

// State is the drawing gate derived from a single frame.
type State int

const (
	// NoSignal means no face was reported or the required landmarks are missing.
	NoSignal State = iota
	// Closed means the mouth is closed; the pen must be up.
	Closed
	// Open means the mouth is open; the pen may draw.
	Open
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "no_signal"
	}
}

// Classifier decides the drawing gate from lip geometry.
type Classifier struct {
	threshold float64
}

// NewClassifier creates a Classifier with the given mouth threshold.
// Non-positive thresholds fall back to DefaultMouthThreshold.
func NewClassifier(threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = DefaultMouthThreshold
	}
	return &Classifier{threshold: threshold}
}

// Threshold returns the configured mouth threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Classify returns Open if the 3-D distance between the inner lips is
// strictly greater than the threshold, Closed otherwise, and NoSignal for a
// nil face or one missing the lip landmarks.
func (c *Classifier) Classify(face *detector.FaceLandmarks) State {
	if face == nil {
		return NoSignal
	}

	upper, lower, ok := face.Lips()
	if !ok {
		return NoSignal
	}

	if detector.Distance(upper, lower) > c.threshold {
		return Open
	}
	return Closed
}
