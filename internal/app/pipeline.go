package app

import (
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/easel/internal/detector"
	"github.com/ayusman/easel/internal/gesture"
)

// runPipeline is the capture loop feeding frames to the session.
//
// Pipeline logic:
// 1. Start in idle mode (IdleFPS)
// 2. Read a frame and run landmark detection
// 3. Feed the landmarks to the session, which may draw
// 4. On a tracked face switch to active mode (ActiveFPS)
// 5. Render the overlay and publish the frame event
// 6. After IdleTimeout without a face, switch back to idle mode
func (a *App) runPipeline(session *Session, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	activeMode := false
	lastFaceTime := time.Now()
	failing := false

	ticker := time.NewTicker(time.Second / time.Duration(IdleFPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			face, ran := a.step(session, &failing)
			if !ran {
				continue
			}

			if face {
				lastFaceTime = time.Now()
				if !activeMode {
					activeMode = true
					a.camera.SetFPS(ActiveFPS)
					ticker.Reset(time.Second / time.Duration(ActiveFPS))
					log.Println("Switched to active mode")
				}
			} else if activeMode && time.Since(lastFaceTime) > IdleTimeout {
				activeMode = false
				a.camera.SetFPS(IdleFPS)
				ticker.Reset(time.Second / time.Duration(IdleFPS))
				log.Println("Switched to idle mode")
			}
		}
	}
}

// step processes one frame. It holds procMu so that disabling tracking
// never races with a frame in flight. ran is false when tracking is paused.
func (a *App) step(session *Session, failing *bool) (face, ran bool) {
	a.procMu.Lock()
	defer a.procMu.Unlock()

	if !a.IsEnabled() {
		return false, false
	}

	frame, err := a.camera.ReadFrame()
	if err != nil {
		if !*failing {
			log.Printf("Error reading frame: %v", err)
		}
		*failing = true
		a.publish(session.Event(session.ProcessFrame(nil, err)))
		return false, true
	}
	defer frame.Close()

	faces, err := a.detector.Detect(frame)
	if err != nil {
		if !*failing {
			log.Printf("Error detecting landmarks: %v", err)
		}
		*failing = true
	} else {
		*failing = false
	}

	res := session.ProcessFrame(faces, err)

	var primary *detector.FaceLandmarks
	if err == nil {
		primary = detector.Primary(faces)
	}
	a.renderOverlay(frame, primary, res.Cursor)
	a.publish(session.Event(res))

	return res.State != gesture.NoSignal, true
}

// renderOverlay draws the tracking view and keeps the latest JPEG for streaming.
func (a *App) renderOverlay(frame *gocv.Mat, face *detector.FaceLandmarks, cursor *detector.Point3D) {
	if err := a.overlay.Render(frame, face, cursor, a.brush.Size()); err != nil {
		log.Printf("Error rendering overlay: %v", err)
		return
	}

	data, err := a.overlay.JPEG(OverlayQuality)
	if err != nil {
		log.Printf("Error encoding overlay: %v", err)
		return
	}

	a.frameMu.Lock()
	a.latestJPEG = data
	a.frameMu.Unlock()
}
