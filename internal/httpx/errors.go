package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tcgtools/deckimg/internal/app"
	"github.com/tcgtools/deckimg/internal/domain"
)

// writeError writes a JSON error body with given status code.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg})
	if cid, ok := GetCorrelationID(ctx); ok {
		slog.Debug("wrote error response", "cid", cid, "status", code, "msg", msg)
	}
}

// mapServiceError maps domain/service errors to HTTP responses. Decode
// failures carry their diagnostic text back to the requester; upstream
// catalog failures do not leak detail beyond the error class.
func (h *Handler) mapServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	cid, _ := GetCorrelationID(ctx)
	switch {
	case errors.Is(err, domain.ErrCodeEncoding):
		slog.Warn("service error", "cid", cid, "code", "code_encoding")
		h.writeError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCodeLength):
		slog.Warn("service error", "cid", cid, "code", "code_length")
		h.writeError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrResolve):
		slog.Error("service error", "cid", cid, "code", "catalog_unavailable", "err", err)
		h.writeError(ctx, w, http.StatusBadGateway, "card catalog unavailable")
	default:
		// Internal / unexpected: do not echo the raw error to the client.
		slog.Error("unhandled service error", "cid", cid, "code", "unhandled", "err", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "internal")
	}
}
