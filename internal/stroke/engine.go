// Package stroke implements the pen state machine that turns smoothed
// positions into line segments on a drawing surface.
package stroke

import (
	"image/color"

	"github.com/ayusman/easel/internal/detector"
	"github.com/ayusman/easel/internal/gesture"
)

// InkColor is the fixed stroke color.
var InkColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}

// Surface is the drawing target the engine commits segments to.
// Implementations draw with round caps so consecutive segments join.
type Surface interface {
	DrawLine(from, to Point, width int, c color.RGBA)
	Size() (width, height int)
}

// Mode is the pen mode.
type Mode int

const (
	// PenUp means no stroke is in progress.
	PenUp Mode = iota
	// PenDown means the next point connects to the last one.
	PenDown
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	if m == PenDown {
		return "down"
	}
	return "up"
}

// PenState tracks stroke continuity.
type PenState struct {
	Active bool
	Last   *Point
}

// Segment is a committed line.
type Segment struct {
	From  Point `json:"from"`
	To    Point `json:"to"`
	Width int   `json:"width"`
}

// Transition describes the effect of one Step.
type Transition struct {
	Before  Mode
	After   Mode
	Drew    bool
	Segment Segment
}

// Engine is the pen state machine for one drawing session.
type Engine struct {
	surface Surface
	mapping Mapping
	brush   *Brush
	color   color.RGBA
	pen     PenState
}

// NewEngine creates an Engine drawing onto surface with the given brush.
// A nil brush uses the default size.
func NewEngine(surface Surface, brush *Brush) *Engine {
	if brush == nil {
		brush = NewBrush(DefaultBrushSize)
	}
	w, h := surface.Size()
	return &Engine{
		surface: surface,
		mapping: Mapping{Width: w, Height: h},
		brush:   brush,
		color:   InkColor,
	}
}

// Mapping returns the coordinate mapping for the drawing surface.
func (e *Engine) Mapping() Mapping {
	return e.mapping
}

// Pen returns a copy of the pen state.
func (e *Engine) Pen() PenState {
	p := e.pen
	if p.Last != nil {
		last := *p.Last
		p.Last = &last
	}
	return p
}

// Mode returns the current pen mode.
func (e *Engine) Mode() Mode {
	if e.pen.Active {
		return PenDown
	}
	return PenUp
}

// Step advances the pen for one frame. pos is the smoothed position and
// ok reports whether one exists. A segment is drawn only while the gate
// stays open across consecutive frames.
func (e *Engine) Step(gate gesture.State, pos detector.Point3D, ok bool) Transition {
	t := Transition{Before: e.Mode()}

	if gate != gesture.Open || !ok {
		e.LiftPen()
		t.After = PenUp
		return t
	}

	p := e.mapping.Map(pos)

	if e.pen.Active && e.pen.Last != nil {
		seg := Segment{From: *e.pen.Last, To: p, Width: e.brush.Size()}
		e.surface.DrawLine(seg.From, seg.To, seg.Width, e.color)
		t.Drew = true
		t.Segment = seg
	}

	e.pen.Active = true
	e.pen.Last = &p
	t.After = PenDown
	return t
}

// LiftPen ends the current stroke so the next one starts disconnected.
func (e *Engine) LiftPen() {
	e.pen = PenState{}
}
