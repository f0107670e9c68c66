package api

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/ayusman/easel/internal/export"
	"github.com/ayusman/easel/internal/persist"
)

// DrawingSource is the drawing as seen by the HTTP surface.
type DrawingSource interface {
	DrawingPNG() ([]byte, error)
	Clear() error
}

// DrawingHandler serves, exports and clears the drawing.
type DrawingHandler struct {
	source DrawingSource
}

// NewDrawingHandler creates a DrawingHandler for the given source.
func NewDrawingHandler(source DrawingSource) *DrawingHandler {
	return &DrawingHandler{source: source}
}

// GetPNG handles GET /api/drawing.
func (h *DrawingHandler) GetPNG(w http.ResponseWriter, r *http.Request) {
	data, err := h.source.DrawingPNG()
	if err != nil {
		log.Printf("Failed to encode drawing: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to encode drawing")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// GetPDF handles GET /api/drawing.pdf.
func (h *DrawingHandler) GetPDF(w http.ResponseWriter, r *http.Request) {
	data, err := h.source.DrawingPNG()
	if err != nil {
		log.Printf("Failed to encode drawing: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to encode drawing")
		return
	}

	// The stored drawing may predate the current canvas size.
	var buf bytes.Buffer
	if err := export.PDFFromPNG(&buf, data); err != nil {
		log.Printf("Failed to export drawing: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to export drawing")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="easel.pdf"`)
	w.Write(buf.Bytes())
}

// Delete handles DELETE /api/drawing. Clearing an empty drawing succeeds.
func (h *DrawingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.source.Clear(); err != nil {
		log.Printf("Failed to clear drawing: %v", err)
		if errors.Is(err, persist.ErrPersistenceUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "drawing cleared but storage is unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to clear drawing")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
