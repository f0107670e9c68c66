package app

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/easel/internal/canvas"
	"github.com/ayusman/easel/internal/detector"
	"github.com/ayusman/easel/internal/gesture"
	"github.com/ayusman/easel/internal/persist"
	"github.com/ayusman/easel/internal/store"
	"github.com/ayusman/easel/internal/stroke"
)

// SessionConfig holds the tuning for one drawing session.
type SessionConfig struct {
	Width          int
	Height         int
	MouthThreshold float64
	SmoothingAlpha float64
}

// FrameResult is the outcome of processing one landmark frame.
type FrameResult struct {
	Seq        uint64
	State      gesture.State
	Cursor     *detector.Point3D
	Transition stroke.Transition
}

// FrameEvent is the published, JSON-friendly form of a FrameResult.
type FrameEvent struct {
	SessionID string          `json:"session_id"`
	Seq       uint64          `json:"seq"`
	State     string          `json:"state"`
	Pen       string          `json:"pen"`
	Cursor    *stroke.Point   `json:"cursor,omitempty"`
	Segment   *stroke.Segment `json:"segment,omitempty"`
	Brush     int             `json:"brush"`
	Timestamp int64           `json:"ts"`
}

// Session owns the drawing state for one run of the pipeline: the gate
// classifier, the smoothed pen position, the stroke engine, the raster and
// its persistence. Frames, clears and close are serialized.
type Session struct {
	id         string
	mu         sync.Mutex
	classifier *gesture.Classifier
	smoother   *gesture.Smoother
	engine     *stroke.Engine
	raster     *canvas.Raster
	brush      *stroke.Brush
	writer     *persist.Writer
	seq        uint64
	closed     bool
}

// NewSession creates a session and restores the stored drawing, if any, as
// the base layer. A nil repo keeps the drawing in memory only.
func NewSession(config SessionConfig, brush *stroke.Brush, repo persist.Repository) (*Session, error) {
	width, height := config.Width, config.Height
	if width <= 0 || height <= 0 {
		width, height = canvas.DefaultWidth, canvas.DefaultHeight
	}

	raster, err := canvas.NewRaster(width, height)
	if err != nil {
		return nil, fmt.Errorf("create raster: %w", err)
	}
	if brush == nil {
		brush = stroke.NewBrush(stroke.DefaultBrushSize)
	}

	s := &Session{
		id:         uuid.New().String(),
		classifier: gesture.NewClassifier(config.MouthThreshold),
		smoother:   gesture.NewSmoother(config.SmoothingAlpha),
		engine:     stroke.NewEngine(raster, brush),
		raster:     raster,
		brush:      brush,
	}

	if repo != nil {
		s.writer = persist.NewWriter(repo, store.DrawingKey, s.id)
		s.restore()
	}

	log.Printf("Drawing session %s started (%dx%d)", s.id, width, height)
	return s, nil
}

func (s *Session) restore() {
	data, ok, err := s.writer.Load()
	if err != nil {
		log.Printf("Could not load saved drawing: %v", err)
		return
	}
	if !ok {
		return
	}
	if err := s.raster.Restore(data); err != nil {
		s.writer.Degrade(err)
		return
	}
	log.Printf("Restored saved drawing (%d bytes)", len(data))
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// ProcessFrame runs one frame through classification, smoothing and the pen
// state machine, drawing and scheduling a save when a segment is committed.
// A detection error or an empty face list is treated as no signal.
func (s *Session) ProcessFrame(faces []detector.FaceLandmarks, detectErr error) FrameResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return FrameResult{State: gesture.NoSignal}
	}

	s.seq++
	res := FrameResult{Seq: s.seq}

	var face *detector.FaceLandmarks
	if detectErr == nil {
		face = detector.Primary(faces)
	}

	res.State = s.classifier.Classify(face)
	if res.State == gesture.NoSignal {
		// A reacquired face starts a fresh filter.
		s.smoother.Reset()
		res.Transition = s.engine.Step(res.State, detector.Point3D{}, false)
		return res
	}

	nose, ok := face.Nose()
	if !ok {
		s.smoother.Reset()
		res.State = gesture.NoSignal
		res.Transition = s.engine.Step(res.State, detector.Point3D{}, false)
		return res
	}

	pos := s.smoother.Update(nose)
	res.Cursor = &pos
	res.Transition = s.engine.Step(res.State, pos, true)

	if res.Transition.Drew && s.writer != nil {
		s.writer.Submit(s.raster.Snapshot())
	}
	return res
}

// Event converts a frame result into its published form.
func (s *Session) Event(res FrameResult) FrameEvent {
	ev := FrameEvent{
		SessionID: s.id,
		Seq:       res.Seq,
		State:     res.State.String(),
		Pen:       res.Transition.After.String(),
		Brush:     s.brush.Size(),
		Timestamp: time.Now().UnixMilli(),
	}
	if res.Cursor != nil {
		p := s.engine.Mapping().Map(*res.Cursor)
		ev.Cursor = &p
	}
	if res.Transition.Drew {
		seg := res.Transition.Segment
		ev.Segment = &seg
	}
	return ev
}

// LiftPen ends the current stroke without waiting for a frame.
func (s *Session) LiftPen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.LiftPen()
}

// Clear wipes the drawing, drops unsaved snapshots and schedules deletion of
// the stored copy without waiting on storage. Clearing an empty drawing is a
// no-op.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	s.raster.Clear()
	s.engine.LiftPen()
	if s.writer != nil {
		s.writer.Clear()
	}
	return nil
}

// DrawingPNG encodes the current drawing.
func (s *Session) DrawingPNG() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.raster.Encode()
}

// Size returns the drawing dimensions.
func (s *Session) Size() (int, int) {
	return s.raster.Size()
}

// Pen returns the current pen state.
func (s *Session) Pen() stroke.PenState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Pen()
}

// Degraded reports whether the drawing is no longer being saved.
func (s *Session) Degraded() bool {
	return s.writer == nil || s.writer.Degraded()
}

// Frames returns the number of frames processed.
func (s *Session) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Close saves the latest drawing and releases the session. Frames arriving
// afterwards are ignored.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.smoother.Reset()
	s.engine.LiftPen()

	if s.writer != nil {
		s.writer.Close()
	}
	return s.raster.Close()
}
