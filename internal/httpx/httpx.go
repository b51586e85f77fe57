// Package httpx contains the HTTP delivery layer (net/http handlers) for
// the deckimg service. It maps HTTP requests to the application service
// while enforcing validation, security headers, and error translation.
// Handlers are split across files (deck.go, index.go, health.go, errors.go).
package httpx

import (
	"context"
	"net/http"
)

// ServicePort abstracts the subset of app.Service used by the HTTP layer.
// It is satisfied by *app.Service in production and mocked in tests.
type ServicePort interface {
	RenderDeck(ctx context.Context, code string) ([]byte, error)
}

// maxCodeLen bounds accepted deck-code text; genuine codes are ~70
// characters, so anything past this is garbage regardless of decoding.
const maxCodeLen = 256

// Handler wires HTTP endpoints to the application service.
// It is safe for concurrent use. Zero-value is not valid; construct via New.
type Handler struct {
	Service   ServicePort
	Readiness func(context.Context) error // optional readiness probe
	Metrics   http.Handler                // optional metrics snapshot endpoint
	IndexPage []byte                      // optional static index page
}

// New returns a configured Handler.
// svc: application service port implementation.
// readiness: optional probe function for /readyz (nil => always ready).
func New(svc ServicePort, readiness func(context.Context) error) *Handler {
	return &Handler{Service: svc, Readiness: readiness}
}

// Router constructs and returns an http.Handler with all routes mounted and
// the security-header and correlation-ID middleware applied.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleIndex)
	mux.HandleFunc("/api/deck", h.handleDeck)
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/readyz", h.handleReady)
	if h.Metrics != nil {
		mux.Handle("/metrics", h.Metrics)
	}
	return h.secureHeaders(CorrelationIDMiddleware(mux))
}

// secureHeaders middleware adds standard security & cache control headers.
func (h *Handler) secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'; base-uri 'none'")
		next.ServeHTTP(w, r)
	})
}
