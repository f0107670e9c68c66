// Package export renders a saved drawing into shareable documents.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// ErrEmptyDrawing is returned when there is no image data to export.
var ErrEmptyDrawing = errors.New("empty drawing")

const imageName = "drawing"

// PNGSize returns the pixel dimensions stored in a PNG header.
func PNGSize(data []byte) (width, height int, err error) {
	if len(data) == 0 {
		return 0, 0, ErrEmptyDrawing
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("drawing is not a PNG: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// PDFFromPNG is PDF with the page layout taken from the PNG's own size.
func PDFFromPNG(w io.Writer, data []byte) error {
	width, height, err := PNGSize(data)
	if err != nil {
		return err
	}
	return PDF(w, data, width, height)
}

// PDF writes a single landscape A4 page with the PNG drawing centered and
// scaled to fit inside the margins, keeping its aspect ratio.
func PDF(w io.Writer, data []byte, widthPx, heightPx int) error {
	if len(data) == 0 {
		return ErrEmptyDrawing
	}
	if widthPx <= 0 || heightPx <= 0 {
		return fmt.Errorf("invalid drawing size %dx%d", widthPx, heightPx)
	}

	p := gofpdf.New("L", "mm", "A4", "")
	p.SetTitle("Easel drawing", true)
	p.SetCreator("easel", true)
	p.AddPage()

	x, y, dw, dh := fit(p, float64(widthPx), float64(heightPx))

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	p.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(data))
	p.ImageOptions(imageName, x, y, dw, dh, false, opts, 0, "")

	p.SetDrawColor(200, 200, 200)
	p.SetLineWidth(0.2)
	p.Rect(x, y, dw, dh, "D")

	if err := p.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := p.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// fit returns the placement of a w×h image inside the page margins.
func fit(p *gofpdf.Fpdf, w, h float64) (x, y, dw, dh float64) {
	pageW, pageH := p.GetPageSize()
	left, top, right, bottom := p.GetMargins()
	availW := pageW - left - right
	availH := pageH - top - bottom

	scale := availW / w
	if s := availH / h; s < scale {
		scale = s
	}
	dw, dh = w*scale, h*scale
	return left + (availW-dw)/2, top + (availH-dh)/2, dw, dh
}
