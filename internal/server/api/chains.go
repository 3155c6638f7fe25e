package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/chainfit/internal/catalog"
)

// ChainsHandler serves the chain catalog, thumbnails and the active
// selection.
type ChainsHandler struct {
	selector *catalog.Selector
	thumbs   *catalog.Thumbnailer
	log      *logrus.Logger
}

// NewChainsHandler creates a new ChainsHandler. A nil thumbnailer disables
// the thumbnail endpoint.
func NewChainsHandler(selector *catalog.Selector, thumbs *catalog.Thumbnailer, log *logrus.Logger) *ChainsHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ChainsHandler{selector: selector, thumbs: thumbs, log: log}
}

type chainResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Data   string `json:"data"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type listChainsResponse struct {
	Chains []chainResponse `json:"chains"`
	Names  []string        `json:"names"`
}

type activeResponse struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
}

type selectRequest struct {
	Index     *int   `json:"index" validate:"omitempty,gte=0"`
	ID        string `json:"id"`
	Direction string `json:"direction" validate:"omitempty,oneof=next prev"`
}

// ServeHTTP routes /api/chains, /api/chains/active and
// /api/chains/{id}/thumbnail.
func (h *ChainsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/chains")
	path = strings.Trim(path, "/")

	switch {
	case path == "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
	case path == "active":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, h.active())
		case http.MethodPut:
			h.selectChain(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case strings.HasSuffix(path, "/thumbnail"):
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.thumbnail(w, r, strings.TrimSuffix(path, "/thumbnail"))
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// list handles GET /api/chains.
func (h *ChainsHandler) list(w http.ResponseWriter, r *http.Request) {
	assets := h.selector.Assets()
	resp := listChainsResponse{
		Chains: make([]chainResponse, 0, len(assets)),
		Names:  make([]string, 0, len(assets)),
	}

	for _, a := range assets {
		data, err := catalog.DataURI(a)
		if err != nil {
			h.log.WithError(err).WithField("chain", a.Name).Warn("Failed to encode chain")
			continue
		}
		size := a.Size()
		resp.Chains = append(resp.Chains, chainResponse{
			ID:     a.ID,
			Name:   a.Name,
			Data:   data,
			Width:  size.X,
			Height: size.Y,
		})
		resp.Names = append(resp.Names, a.Name)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ChainsHandler) active() activeResponse {
	resp := activeResponse{Index: h.selector.ActiveIndex()}
	if a := h.selector.Active(); a != nil {
		resp.ID = a.ID
		resp.Name = a.Name
	}
	return resp
}

// selectChain handles PUT /api/chains/active.
func (h *ChainsHandler) selectChain(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid selection: "+err.Error())
		return
	}

	var err error
	switch {
	case req.Index != nil:
		_, err = h.selector.Select(*req.Index)
	case req.ID != "":
		_, err = h.selector.SelectID(req.ID)
	case req.Direction == "next":
		_, err = h.selector.Next()
	case req.Direction == "prev":
		_, err = h.selector.Previous()
	default:
		writeError(w, http.StatusBadRequest, "index, id or direction is required")
		return
	}

	switch {
	case errors.Is(err, catalog.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, catalog.ErrUnknownAsset), errors.Is(err, catalog.ErrNoAssets):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.active())
}

// thumbnail handles GET /api/chains/{id}/thumbnail.
func (h *ChainsHandler) thumbnail(w http.ResponseWriter, r *http.Request, id string) {
	if h.thumbs == nil {
		writeError(w, http.StatusNotFound, "thumbnails disabled")
		return
	}

	a, err := h.selector.Lookup(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "chain not found")
		return
	}

	data, err := h.thumbs.PNG(a)
	if err != nil {
		h.log.WithError(err).WithField("chain", a.Name).Error("Failed to render thumbnail")
		writeError(w, http.StatusInternalServerError, "failed to render thumbnail")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
