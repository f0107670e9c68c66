// Package app runs the drawing pipeline: camera frames in, landmarks through
// the session, ink on the raster and a live tracking overlay out.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/easel/internal/canvas"
	"github.com/ayusman/easel/internal/capture"
	"github.com/ayusman/easel/internal/detector"
	"github.com/ayusman/easel/internal/persist"
	"github.com/ayusman/easel/internal/store"
	"github.com/ayusman/easel/internal/stroke"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while no face is in view.
	IdleFPS = 5
	// ActiveFPS is the frame rate while a face is tracked.
	ActiveFPS = 15
	// IdleTimeout is how long without a face before dropping back to IdleFPS.
	IdleTimeout = 2 * time.Second
	// OverlayQuality is the JPEG quality of the streamed overlay.
	OverlayQuality = 80
)

var (
	// ErrDetectionUnavailable is returned when the camera or the landmark
	// detector cannot be started.
	ErrDetectionUnavailable = errors.New("detection unavailable")
	// ErrSessionClosed is returned for operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// starter is implemented by detectors that need an explicit start-up check.
type starter interface {
	Start() error
}

// Config holds configuration options for the application.
type Config struct {
	Store         *store.Store
	CameraID      int
	CameraWidth   int
	CameraHeight  int
	Camera        capture.Camera
	Detector      detector.Detector
	DetectorConf  detector.Config
	Session       SessionConfig
	OverlayWidth  int
	OverlayHeight int
	BrushSize     int
}

// Status is a snapshot of the application state.
type Status struct {
	Running   bool   `json:"running"`
	Enabled   bool   `json:"enabled"`
	SessionID string `json:"session_id,omitempty"`
	Brush     int    `json:"brush"`
	Degraded  bool   `json:"persistence_degraded"`
	Frames    uint64 `json:"frames"`
}

// App is the main application that ties capture, detection and drawing together.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	overlay  *canvas.Overlay
	brush    *stroke.Brush
	settings *store.SettingsRepository

	// procMu is held for the duration of each processed frame.
	procMu sync.Mutex

	mu      sync.RWMutex
	enabled bool
	session *Session
	stopCh  chan struct{}
	doneCh  chan struct{}

	frameMu    sync.RWMutex
	latestJPEG []byte

	subMu   sync.Mutex
	subs    map[int]chan FrameEvent
	nextSub int
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	a := &App{
		config:  config,
		camera:  config.Camera,
		enabled: true,
		subs:    make(map[int]chan FrameEvent),
	}

	if a.camera == nil {
		a.camera = capture.NewCameraWithSize(config.CameraID, config.CameraWidth, config.CameraHeight)
	}

	a.detector = config.Detector
	if a.detector == nil {
		fm, err := detector.NewFaceMeshDetector(config.DetectorConf)
		if err != nil {
			log.Printf("FaceMesh not available: %v", err)
		} else {
			a.detector = fm
			log.Println("Using MediaPipe FaceMesh landmark detection")
		}
	}

	ow, oh := config.OverlayWidth, config.OverlayHeight
	if ow <= 0 || oh <= 0 {
		ow, oh = canvas.DefaultOverlayWidth, canvas.DefaultOverlayHeight
	}
	a.overlay = canvas.NewOverlay(ow, oh)

	size := config.BrushSize
	if size == 0 {
		size = stroke.DefaultBrushSize
	}
	if config.Store != nil {
		a.settings = config.Store.Settings()
		size = a.settings.GetInt(store.SettingBrushSize, size)
	}
	a.brush = stroke.NewBrush(size)

	return a
}

// SetEnabled pauses or resumes tracking. Pausing lifts the pen.
func (a *App) SetEnabled(enabled bool) {
	a.procMu.Lock()
	defer a.procMu.Unlock()

	a.mu.Lock()
	a.enabled = enabled
	session := a.session
	a.mu.Unlock()

	if !enabled && session != nil {
		session.LiftPen()
	}
	log.Printf("Tracking enabled: %v", enabled)
}

// IsEnabled returns whether tracking is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// IsRunning returns whether the pipeline is running.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Start opens the camera and detector, restores the saved drawing and
// begins processing frames. On failure no session is created and the
// overlay keeps showing the inactive image.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if a.detector == nil {
		return fmt.Errorf("%w: no landmark detector", ErrDetectionUnavailable)
	}
	if s, ok := a.detector.(starter); ok {
		if err := s.Start(); err != nil {
			return fmt.Errorf("%w: %v", ErrDetectionUnavailable, err)
		}
	}

	if err := a.camera.Open(); err != nil {
		a.detector.Close()
		return fmt.Errorf("%w: %v", ErrDetectionUnavailable, err)
	}
	a.camera.SetFPS(IdleFPS)

	var repo persist.Repository
	if a.config.Store != nil {
		repo = a.config.Store.Drawings()
	}
	session, err := NewSession(a.config.Session, a.brush, repo)
	if err != nil {
		a.camera.Close()
		a.detector.Close()
		return err
	}

	a.session = session
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(session, a.stopCh, a.doneCh)

	log.Println("Drawing pipeline started")
	return nil
}

// Stop halts the pipeline, saves the drawing and releases the camera and
// detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh, session := a.stopCh, a.doneCh, a.session
	a.stopCh, a.doneCh, a.session = nil, nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	<-doneCh

	if err := session.Close(); err != nil {
		log.Printf("Error closing session: %v", err)
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	if err := a.detector.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}

	a.overlay.Inactive()
	a.frameMu.Lock()
	a.latestJPEG = nil
	a.frameMu.Unlock()

	log.Println("Drawing pipeline stopped")
}

// Close stops the pipeline and releases the overlay.
func (a *App) Close() error {
	a.Stop()
	a.subMu.Lock()
	for id, ch := range a.subs {
		close(ch)
		delete(a.subs, id)
	}
	a.subMu.Unlock()
	return a.overlay.Close()
}

// Session returns the active session, or nil when stopped.
func (a *App) Session() *Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the landmark detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}

// BrushSize returns the current brush size.
func (a *App) BrushSize() int {
	return a.brush.Size()
}

// SetBrushSize clamps and applies a brush size and saves it.
func (a *App) SetBrushSize(size int) (applied int, clamped bool) {
	applied, clamped = a.brush.Set(size)
	a.saveBrush(applied)
	return applied, clamped
}

// StepBrushSize adjusts the brush size by delta within the allowed range.
func (a *App) StepBrushSize(delta int) int {
	size := a.brush.Step(delta)
	a.saveBrush(size)
	return size
}

func (a *App) saveBrush(size int) {
	if a.settings == nil {
		return
	}
	if err := a.settings.SetInt(store.SettingBrushSize, size); err != nil {
		log.Printf("Failed to save brush size: %v", err)
	}
}

// Clear erases the drawing and its stored copy. It works whether or not
// the pipeline is running.
func (a *App) Clear() error {
	if s := a.Session(); s != nil {
		err := s.Clear()
		if err == nil || !errors.Is(err, ErrSessionClosed) {
			return err
		}
	}
	if a.config.Store == nil {
		return nil
	}
	if err := a.config.Store.Drawings().Delete(store.DrawingKey); err != nil {
		return fmt.Errorf("%w: %v", persist.ErrPersistenceUnavailable, err)
	}
	return nil
}

// DrawingPNG returns the current drawing. When stopped it returns the
// stored drawing, or a blank one.
func (a *App) DrawingPNG() ([]byte, error) {
	if s := a.Session(); s != nil {
		data, err := s.DrawingPNG()
		if !errors.Is(err, ErrSessionClosed) {
			return data, err
		}
	}

	if a.config.Store != nil {
		d, err := a.config.Store.Drawings().Get(store.DrawingKey)
		if err == nil {
			return d.Data, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", persist.ErrPersistenceUnavailable, err)
		}
	}

	blank, err := canvas.NewRaster(a.DrawingSize())
	if err != nil {
		return nil, err
	}
	defer blank.Close()
	return blank.Encode()
}

// DrawingSize returns the drawing dimensions.
func (a *App) DrawingSize() (int, int) {
	w, h := a.config.Session.Width, a.config.Session.Height
	if w <= 0 || h <= 0 {
		return canvas.DefaultWidth, canvas.DefaultHeight
	}
	return w, h
}

// OverlayJPEG returns the latest rendered overlay frame.
func (a *App) OverlayJPEG() ([]byte, error) {
	a.frameMu.RLock()
	data := a.latestJPEG
	a.frameMu.RUnlock()
	if data != nil {
		return data, nil
	}
	return a.overlay.JPEG(OverlayQuality)
}

// Status returns a snapshot of the application state.
func (a *App) Status() Status {
	a.mu.RLock()
	st := Status{
		Running: a.stopCh != nil,
		Enabled: a.enabled,
		Brush:   a.brush.Size(),
	}
	session := a.session
	a.mu.RUnlock()

	if session != nil {
		st.SessionID = session.ID()
		st.Degraded = session.Degraded()
		st.Frames = session.Frames()
	}
	return st
}

// Subscribe registers for frame events. The returned function unsubscribes.
// Slow subscribers miss events rather than stall the pipeline.
func (a *App) Subscribe() (<-chan FrameEvent, func()) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	id := a.nextSub
	a.nextSub++
	ch := make(chan FrameEvent, 16)
	a.subs[id] = ch

	return ch, func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		if c, ok := a.subs[id]; ok {
			close(c)
			delete(a.subs, id)
		}
	}
}

func (a *App) publish(ev FrameEvent) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
