package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/gg"
	"gocv.io/x/gocv"

	"github.com/ayusman/easel/internal/detector"
	"github.com/ayusman/easel/internal/stroke"
)

// Default overlay size, matching the tracking feed.
const (
	DefaultOverlayWidth  = 480
	DefaultOverlayHeight = 360
)

// Marker colors for the diagnostic overlay.
var (
	LandmarkColor = color.NRGBA{R: 0, G: 255, B: 0, A: 102}
	CursorColor   = color.NRGBA{R: 128, G: 128, B: 128, A: 102}
	inactiveColor = gg.RGBA{R: 0.1, G: 0.1, B: 0.1, A: 1}
)

// CursorScale is the cursor radius relative to the brush size.
const CursorScale = 0.6

// Overlay is the diagnostic tracking view: the mirrored camera frame with
// landmark markers and a cursor. It is never persisted.
type Overlay struct {
	mu      sync.Mutex
	dc      *gg.Context
	mapping stroke.Mapping
}

// NewOverlay creates an overlay of the given size showing the inactive image.
func NewOverlay(width, height int) *Overlay {
	o := &Overlay{
		dc:      gg.NewContext(width, height),
		mapping: stroke.Mapping{Width: width, Height: height},
	}
	o.Inactive()
	return o
}

// Mapping returns the overlay's own coordinate mapping.
func (o *Overlay) Mapping() stroke.Mapping {
	return o.mapping
}

// Inactive paints the static display shown when tracking is not running.
func (o *Overlay) Inactive() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.dc.ClearWithColor(inactiveColor)
	o.dc.SetColor(CursorColor)
	o.dc.DrawCircle(float64(o.mapping.Width)/2, float64(o.mapping.Height)/2, 12)
	_ = o.dc.Fill()
}

// DrawFrame paints the camera frame mirrored and scaled to the overlay.
func (o *Overlay) DrawFrame(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		return fmt.Errorf("empty frame")
	}

	mirrored := gocv.NewMat()
	defer mirrored.Close()
	gocv.Flip(*frame, &mirrored, 1)

	img, err := mirrored.ToImage()
	if err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.dc.Clear()
	o.dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		DstWidth:  float64(o.mapping.Width),
		DstHeight: float64(o.mapping.Height),
		Opacity:   1,
	})
	return nil
}

// DrawMarker fills a circle at a pixel position.
func (o *Overlay) DrawMarker(p stroke.Point, radius float64, c color.Color) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.dc.SetColor(c)
	o.dc.DrawCircle(p.X, p.Y, radius)
	_ = o.dc.Fill()
}

// Render draws one tracking frame: the mirrored camera image, every landmark
// of face, and a cursor at the smoothed position sized by the brush.
func (o *Overlay) Render(frame *gocv.Mat, face *detector.FaceLandmarks, cursor *detector.Point3D, brushSize int) error {
	if err := o.DrawFrame(frame); err != nil {
		return err
	}

	if face != nil {
		for _, p := range face.Points {
			o.DrawMarker(o.mapping.Map(p), 1, LandmarkColor)
		}
	}

	if cursor != nil {
		o.DrawMarker(o.mapping.Map(*cursor), float64(brushSize)*CursorScale, CursorColor)
	}
	return nil
}

// Image returns a copy of the current overlay pixels.
func (o *Overlay) Image() image.Image {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dc.Image()
}

// JPEG encodes the current overlay image.
func (o *Overlay) JPEG(quality int) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var buf bytes.Buffer
	if err := o.dc.EncodeJPEG(&buf, quality); err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases the drawing context.
func (o *Overlay) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dc.Close()
}
