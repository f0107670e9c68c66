package api

import (
	"encoding/json"
	"net/http"
)

// BrushControl reads and sets the brush size.
type BrushControl interface {
	BrushSize() int
	SetBrushSize(size int) (applied int, clamped bool)
}

// BrushHandler serves the brush size.
type BrushHandler struct {
	brush BrushControl
}

// NewBrushHandler creates a BrushHandler.
func NewBrushHandler(brush BrushControl) *BrushHandler {
	return &BrushHandler{brush: brush}
}

type brushRequest struct {
	Size *int `json:"size"`
}

type brushResponse struct {
	Size    int  `json:"size"`
	Clamped bool `json:"clamped,omitempty"`
}

// Get handles GET /api/brush.
func (h *BrushHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, brushResponse{Size: h.brush.BrushSize()})
}

// Put handles PUT /api/brush. Out-of-range sizes are clamped, not rejected.
func (h *BrushHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req brushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Size == nil {
		writeError(w, http.StatusBadRequest, "size is required")
		return
	}

	applied, clamped := h.brush.SetBrushSize(*req.Size)
	writeJSON(w, http.StatusOK, brushResponse{Size: applied, Clamped: clamped})
}
