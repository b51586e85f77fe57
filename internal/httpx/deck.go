package httpx

import (
	"net/http"
	"strconv"
	"strings"
)

// handleDeck implements GET and POST /api/deck. The deck code arrives as
// the "code" query parameter (GET) or form value (POST); the response is
// the rendered deck image.
func (h *Handler) handleDeck(w http.ResponseWriter, r *http.Request) {
	var code string
	switch r.Method {
	case http.MethodGet:
		code = r.URL.Query().Get("code")
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			h.writeError(r.Context(), w, http.StatusBadRequest, "malformed form body")
			return
		}
		code = r.PostFormValue("code")
	default:
		h.writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	code = strings.TrimSpace(code)
	if code == "" {
		h.writeError(r.Context(), w, http.StatusBadRequest, "missing deck code")
		return
	}
	if len(code) > maxCodeLen {
		h.writeError(r.Context(), w, http.StatusBadRequest, "deck code too long")
		return
	}

	img, err := h.Service.RenderDeck(r.Context(), code)
	if err != nil {
		h.mapServiceError(r.Context(), w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}
