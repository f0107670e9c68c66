package app

import (
	"bytes"
	"errors"
	"image/png"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/easel/internal/capture"
	"github.com/ayusman/easel/internal/detector"
	"github.com/ayusman/easel/internal/store"
	"github.com/ayusman/easel/internal/stroke"
)

// failingDetector refuses to start, like a FaceMesh service whose model
// fails to load.
type failingDetector struct {
	*detector.MockDetector
}

func (failingDetector) Start() error {
	return errors.New("model failed to load")
}

// lifecycleDetector records Start and Close calls.
type lifecycleDetector struct {
	*detector.MockDetector
	started atomic.Int32
	closed  atomic.Int32
}

func (d *lifecycleDetector) Start() error {
	d.started.Add(1)
	return nil
}

func (d *lifecycleDetector) Close() error {
	d.closed.Add(1)
	return nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "easel.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestApp_StartFailsWithoutDetector(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cam := capture.NewMockCamera(nil, false)
	a := New(Config{Camera: cam, Detector: failingDetector{detector.NewMockDetector()}})
	defer a.Close()

	err := a.Start()
	if !errors.Is(err, ErrDetectionUnavailable) {
		t.Fatalf("Start() error = %v, want ErrDetectionUnavailable", err)
	}
	if a.Session() != nil {
		t.Error("no session should exist after a failed start")
	}
	if a.IsRunning() {
		t.Error("app should not be running")
	}
	if cam.IsOpen() {
		t.Error("camera should not be opened when the detector fails")
	}

	data, err := a.OverlayJPEG()
	if err != nil || len(data) == 0 {
		t.Errorf("OverlayJPEG() = %d bytes, %v; want inactive image", len(data), err)
	}
}

func TestApp_StartFailsWhenCameraUnavailable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cam := capture.NewMockCamera(nil, false)
	cam.SetOpenError(errors.New("no such device"))
	a := New(Config{Camera: cam, Detector: detector.NewMockDetector()})
	defer a.Close()

	if err := a.Start(); !errors.Is(err, ErrDetectionUnavailable) {
		t.Fatalf("Start() error = %v, want ErrDetectionUnavailable", err)
	}
	if a.Session() != nil {
		t.Error("no session should exist after a failed start")
	}
}

func TestApp_StartReleasesDetectorWhenCameraFails(t *testing.T) {
	cam := capture.NewMockCamera(nil, false)
	cam.SetOpenError(errors.New("no such device"))
	det := &lifecycleDetector{MockDetector: detector.NewMockDetector()}
	a := New(Config{Camera: cam, Detector: det})
	defer a.Close()

	if err := a.Start(); !errors.Is(err, ErrDetectionUnavailable) {
		t.Fatalf("Start() error = %v, want ErrDetectionUnavailable", err)
	}
	if det.started.Load() != 1 {
		t.Fatalf("detector started %d times, want 1", det.started.Load())
	}
	if det.closed.Load() != 1 {
		t.Errorf("detector closed %d times after failed start, want 1", det.closed.Load())
	}
	if a.IsRunning() {
		t.Error("app should not be running")
	}
}

func TestApp_DrawingPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s := newTestStore(t)
	cam := capture.NewBlankMockCamera(640, 480)
	defer cam.Release()

	mock := detector.NewMockDetector()
	mock.SetFaces([]detector.FaceLandmarks{detector.MouthOpenFace(0.4, 0.4)})

	a := New(Config{Store: s, Camera: cam, Detector: mock})
	defer a.Close()

	events, unsubscribe := a.Subscribe()
	defer unsubscribe()

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sessionID := a.Status().SessionID
	if sessionID == "" {
		t.Fatal("Status() should report a session id")
	}

	var drew bool
	deadline := time.After(5 * time.Second)
	for !drew {
		select {
		case ev := <-events:
			if ev.SessionID != sessionID {
				t.Fatalf("event for session %q, want %q", ev.SessionID, sessionID)
			}
			drew = ev.Segment != nil
		case <-deadline:
			t.Fatal("no segment drawn before timeout")
		}
	}

	waitUntil(t, 3*time.Second, func() bool {
		for _, fps := range cam.FPSHistory() {
			if fps == ActiveFPS {
				return true
			}
		}
		return false
	})

	jpeg, err := a.OverlayJPEG()
	if err != nil || len(jpeg) == 0 {
		t.Errorf("OverlayJPEG() = %d bytes, %v", len(jpeg), err)
	}

	a.Stop()

	if cam.IsOpen() {
		t.Error("camera should be closed after Stop")
	}
	if a.IsRunning() {
		t.Error("app should not be running after Stop")
	}

	d, err := s.Drawings().Get(store.DrawingKey)
	if err != nil {
		t.Fatalf("drawing not stored after Stop: %v", err)
	}
	if d.SessionID != sessionID {
		t.Errorf("stored SessionID = %q, want %q", d.SessionID, sessionID)
	}

	// Stopped: the stored drawing is served.
	data, err := a.DrawingPNG()
	if err != nil {
		t.Fatalf("DrawingPNG() error = %v", err)
	}
	if !bytes.Equal(data, d.Data) {
		t.Error("DrawingPNG() after Stop should return the stored drawing")
	}
}

func TestApp_DisableLiftsPen(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cam := capture.NewBlankMockCamera(640, 480)
	defer cam.Release()
	mock := detector.NewMockDetector()
	mock.SetFaces([]detector.FaceLandmarks{detector.MouthOpenFace(0.5, 0.5)})

	a := New(Config{Camera: cam, Detector: mock})
	defer a.Close()
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitUntil(t, 3*time.Second, func() bool { return a.Session().Pen().Active })

	a.SetEnabled(false)
	if a.Session().Pen().Active {
		t.Error("pen should be up after disabling")
	}

	frames := a.Status().Frames
	time.Sleep(300 * time.Millisecond)
	if got := a.Status().Frames; got != frames {
		t.Errorf("frames advanced while disabled: %d -> %d", frames, got)
	}
}

func TestApp_BrushSizePersists(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s := newTestStore(t)

	a := New(Config{Store: s, Camera: capture.NewMockCamera(nil, false), Detector: detector.NewMockDetector()})
	if got := a.BrushSize(); got != stroke.DefaultBrushSize {
		t.Errorf("BrushSize() = %d, want %d", got, stroke.DefaultBrushSize)
	}

	applied, clamped := a.SetBrushSize(99)
	if applied != stroke.MaxBrushSize || !clamped {
		t.Errorf("SetBrushSize(99) = %d, %v; want %d, true", applied, clamped, stroke.MaxBrushSize)
	}
	if got := a.StepBrushSize(-2); got != stroke.MaxBrushSize-2 {
		t.Errorf("StepBrushSize(-2) = %d, want %d", got, stroke.MaxBrushSize-2)
	}
	a.Close()

	b := New(Config{Store: s, Camera: capture.NewMockCamera(nil, false), Detector: detector.NewMockDetector()})
	defer b.Close()
	if got := b.BrushSize(); got != stroke.MaxBrushSize-2 {
		t.Errorf("reloaded BrushSize() = %d, want %d", got, stroke.MaxBrushSize-2)
	}
}

func TestApp_StoppedDrawingAndClear(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s := newTestStore(t)
	a := New(Config{Store: s, Camera: capture.NewMockCamera(nil, false), Detector: detector.NewMockDetector()})
	defer a.Close()

	data, err := a.DrawingPNG()
	if err != nil {
		t.Fatalf("DrawingPNG() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("blank drawing is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 480 {
		t.Errorf("blank drawing size = %dx%d, want 640x480", b.Dx(), b.Dy())
	}

	if err := s.Drawings().Put(&store.Drawing{Key: store.DrawingKey, Data: data}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := a.Clear(); err != nil {
			t.Fatalf("Clear() #%d error = %v", i+1, err)
		}
	}
	if ok, _ := s.Drawings().Exists(store.DrawingKey); ok {
		t.Error("Clear() should delete the stored drawing when stopped")
	}
}

func TestApp_SubscribeUnsubscribe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a := New(Config{Camera: capture.NewMockCamera(nil, false), Detector: detector.NewMockDetector()})
	defer a.Close()

	ch, unsubscribe := a.Subscribe()
	a.publish(FrameEvent{Seq: 7})

	select {
	case ev := <-ch:
		if ev.Seq != 7 {
			t.Errorf("Seq = %d, want 7", ev.Seq)
		}
	default:
		t.Fatal("event not delivered")
	}

	unsubscribe()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	unsubscribe()

	// Publishing with no subscribers must not block.
	a.publish(FrameEvent{Seq: 8})
}

func TestApp_RenderOverlayKeepsLatestFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a := New(Config{Camera: capture.NewMockCamera(nil, false), Detector: detector.NewMockDetector()})
	defer a.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	face := detector.MouthOpenFace(0.5, 0.5)
	cursor := face.Points[detector.NoseTip]
	a.renderOverlay(&frame, &face, &cursor)

	a.frameMu.RLock()
	n := len(a.latestJPEG)
	a.frameMu.RUnlock()
	if n == 0 {
		t.Error("renderOverlay should store an encoded frame")
	}
}
