package httpx

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcgtools/deckimg/internal/app"
	"github.com/tcgtools/deckimg/internal/domain"
)

// mockService implements ServicePort for tests.
type mockService struct {
	png      []byte
	err      error
	lastCode string
	calls    int
}

func (m *mockService) RenderDeck(_ context.Context, code string) ([]byte, error) {
	m.calls++
	m.lastCode = code
	if m.err != nil {
		return nil, m.err
	}
	return m.png, nil
}

func TestDeckGetSuccess(t *testing.T) {
	svc := &mockService{png: []byte("png-bytes")}
	h := New(svc, nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/deck?code=" + url.QueryEscape("AAAA"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "AAAA", svc.lastCode)
	assert.NotEmpty(t, resp.Header.Get(CorrelationIDHeader))
}

func TestDeckPostForm(t *testing.T) {
	svc := &mockService{png: []byte("png-bytes")}
	h := New(svc, nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.PostForm(srv.URL+"/api/deck", url.Values{"code": {" AAAA "}})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "AAAA", svc.lastCode, "code should be trimmed")
}

func TestDeckMissingCode(t *testing.T) {
	svc := &mockService{}
	h := New(svc, nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/deck")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, svc.calls)
}

func TestDeckCodeTooLong(t *testing.T) {
	svc := &mockService{}
	h := New(svc, nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/deck?code=" + strings.Repeat("A", maxCodeLen+1))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, svc.calls)
}

func TestDeckErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"encoding", fmt.Errorf("%w: bad char", domain.ErrCodeEncoding), http.StatusBadRequest},
		{"length", fmt.Errorf("%w: decoded to 50 bytes, want 51", domain.ErrCodeLength), http.StatusBadRequest},
		{"catalog", fmt.Errorf("%w: boom", app.ErrResolve), http.StatusBadGateway},
		{"unknown", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New(&mockService{err: tc.err}, nil)
			srv := httptest.NewServer(h.Router())
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/api/deck?code=AAAA")
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}
}

func TestDeckMethodNotAllowed(t *testing.T) {
	h := New(&mockService{}, nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/deck", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
