package statushttp

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidemark/internal/config"
	"tidemark/internal/engine"
	"tidemark/internal/state"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	store := state.NewStore(filepath.Join(t.TempDir(), "state.yaml"), 4)
	eng, err := engine.New(cfg, nil, store, nil)
	require.NoError(t, err)
	srv, err := NewServer(Config{Engine: eng})
	require.NoError(t, err)
	return srv
}

func doRequest(srv *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := doRequest(newTestServer(t), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestStatusEndpoint(t *testing.T) {
	rec := doRequest(newTestServer(t), "/api/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bootstrap_phase")
}

func TestTradesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(srv, "/api/trades")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, "/api/trades?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(srv, "/api/trades?limit=9999")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewServerRequiresEngine(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)
}
