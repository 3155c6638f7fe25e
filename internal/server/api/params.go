package api

import (
	"net/http"

	"github.com/ayusman/chainfit/internal/placement"
)

// ParamsHandler serves the live placement parameters.
type ParamsHandler struct {
	controls *placement.Controls
}

// NewParamsHandler creates a new ParamsHandler over controls.
func NewParamsHandler(controls *placement.Controls) *ParamsHandler {
	return &ParamsHandler{controls: controls}
}

// updateParamsRequest carries a partial update. The bounds mirror the
// placement package's nominal ranges.
type updateParamsRequest struct {
	Scale          *float64 `json:"scale" validate:"omitempty,gte=0.5,lte=2"`
	VerticalOffset *float64 `json:"vertical_offset" validate:"omitempty,gte=-0.3,lte=0.5"`
	Reset          bool     `json:"reset"`
}

// ServeHTTP handles GET and PUT /api/params.
func (h *ParamsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.controls.Parameters())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ParamsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateParamsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid parameters: "+err.Error())
		return
	}

	if req.Reset {
		writeJSON(w, http.StatusOK, h.controls.Reset())
		return
	}
	if req.Scale == nil && req.VerticalOffset == nil {
		writeError(w, http.StatusBadRequest, "scale or vertical_offset is required")
		return
	}

	p := h.controls.Update(func(p *placement.Parameters) {
		if req.Scale != nil {
			p.Scale = *req.Scale
		}
		if req.VerticalOffset != nil {
			p.VerticalOffset = *req.VerticalOffset
		}
	})
	writeJSON(w, http.StatusOK, p)
}
