// Package canvas provides the render surfaces: the persistent drawing raster
// and the diagnostic tracking overlay.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/easel/internal/stroke"
)

// Default drawing surface size, matching the on-screen canvas.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrDecode is returned when a stored drawing cannot be decoded.
var ErrDecode = errors.New("cannot decode drawing")

// Raster is the persistent drawing surface: a transparent BGRA image that
// accumulates committed segments.
type Raster struct {
	mat    gocv.Mat
	width  int
	height int
}

// NewRaster creates a blank raster of the given size.
func NewRaster(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid raster size %dx%d", width, height)
	}

	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC4)
	r := &Raster{mat: mat, width: width, height: height}
	r.Clear()
	return r, nil
}

// Size returns the raster dimensions in pixels.
func (r *Raster) Size() (int, int) {
	return r.width, r.height
}

// DrawLine draws a segment. Thick OpenCV lines have rounded ends, so
// consecutive segments join without gaps.
func (r *Raster) DrawLine(from, to stroke.Point, width int, c color.RGBA) {
	gocv.Line(&r.mat, toPixel(from), toPixel(to), c, width)
}

// Clear resets every pixel to transparent.
func (r *Raster) Clear() {
	r.mat.SetTo(gocv.NewScalar(0, 0, 0, 0))
}

// Pixels returns a copy of the raw BGRA pixel data.
func (r *Raster) Pixels() []byte {
	return r.mat.ToBytes()
}

// Snapshot copies the current pixels so they can be encoded off the frame goroutine.
func (r *Raster) Snapshot() *Snapshot {
	return &Snapshot{mat: r.mat.Clone()}
}

// Encode returns the raster as PNG bytes.
func (r *Raster) Encode() ([]byte, error) {
	return encodePNG(r.mat)
}

// Restore decodes a PNG produced by Encode and paints it at the origin.
// It is meant to lay down the base layer on a blank raster; pixels outside
// the overlapping area are left untouched.
func (r *Raster) Restore(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty blob", ErrDecode)
	}

	decoded, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer decoded.Close()

	if decoded.Empty() {
		return fmt.Errorf("%w: not an image", ErrDecode)
	}

	bgra, err := toBGRA(decoded)
	if err != nil {
		return err
	}
	defer bgra.Close()

	if bgra.Type() != gocv.MatTypeCV8UC4 {
		return fmt.Errorf("%w: unsupported pixel depth", ErrDecode)
	}

	area := image.Rect(0, 0, min(r.width, bgra.Cols()), min(r.height, bgra.Rows()))
	dst := r.mat.Region(area)
	defer dst.Close()
	src := bgra.Region(area)
	defer src.Close()

	src.CopyTo(&dst)
	return nil
}

// Close releases the native image memory.
func (r *Raster) Close() error {
	return r.mat.Close()
}

// Snapshot is a frozen copy of the raster.
type Snapshot struct {
	mat gocv.Mat
}

// Encode returns the snapshot as PNG bytes.
func (s *Snapshot) Encode() ([]byte, error) {
	return encodePNG(s.mat)
}

// Close releases the snapshot.
func (s *Snapshot) Close() error {
	return s.mat.Close()
}

func encodePNG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".png", mat)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}

// toBGRA returns a 4-channel copy of m.
func toBGRA(m gocv.Mat) (gocv.Mat, error) {
	out := gocv.NewMat()
	switch m.Channels() {
	case 4:
		m.CopyTo(&out)
	case 3:
		gocv.CvtColor(m, &out, gocv.ColorBGRToBGRA)
	case 1:
		gocv.CvtColor(m, &out, gocv.ColorGrayToBGRA)
	default:
		out.Close()
		return gocv.Mat{}, fmt.Errorf("%w: unsupported channel count %d", ErrDecode, m.Channels())
	}
	return out, nil
}

func toPixel(p stroke.Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}
