package httpx

import "net/http"

// handleIndex serves the static landing page with the deck-code form.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" { // only exact root handled here
		h.writeError(r.Context(), w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		h.writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if len(h.IndexPage) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("index unavailable"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(h.IndexPage)
}
