package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metasched/metasched/internal/config"
	"github.com/metasched/metasched/pkg/orchestrator"
	"github.com/metasched/metasched/pkg/types"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.RateLimit.Enabled = false
	cfg.Auth.Enabled = false

	orch := orchestrator.New(slog.Default(), 16)
	srv, err := NewServer(cfg, orch, slog.Default())
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler(t *testing.T) {
	srv := testServer(t)
	router := srv.setupRouter()

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var health types.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
}

func TestGenerateRunStepStopLifecycle(t *testing.T) {
	srv := testServer(t)
	router := srv.setupRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/instance/generate", map[string]interface{}{
		"taskCount":    10,
		"machineCount": 3,
		"seed":         42,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/run/start", map[string]interface{}{
		"algorithm": "pso",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/v1/run/step", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/run/stop", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/run/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStepBeforeStartIsRejected(t *testing.T) {
	srv := testServer(t)
	router := srv.setupRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/run/step", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginWithUnknownUserIsUnauthorized(t *testing.T) {
	srv := testServer(t)
	router := srv.setupRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "nobody",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginWithSeededUserSucceeds(t *testing.T) {
	srv := testServer(t)
	require.NoError(t, srv.rbac.SeedUser("u1", "operator1", "s3cret-pass", []string{"operator"}))
	router := srv.setupRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "operator1",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var tokens map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	assert.NotEmpty(t, tokens["access_token"])
}
