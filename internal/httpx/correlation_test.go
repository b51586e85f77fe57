package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDReused(t *testing.T) {
	h := New(&mockService{}, nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(CorrelationIDHeader, "caller-supplied-id")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "caller-supplied-id", resp.Header.Get(CorrelationIDHeader))
}

func TestCorrelationIDOversizedReplaced(t *testing.T) {
	h := New(&mockService{}, nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	huge := strings.Repeat("x", maxCorrelationIDLen+1)
	req.Header.Set(CorrelationIDHeader, huge)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	got := resp.Header.Get(CorrelationIDHeader)
	assert.NotEqual(t, huge, got)
	assert.NotEmpty(t, got)
}
