package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestReadiness(t *testing.T) {
	h := New("test")
	h.RegisterCheck("postgres", func(context.Context) error { return nil })

	w := serve(t, h, "/health/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	h.RegisterCheck("redis", func(context.Context) error { return errors.New("connection refused") })
	w = serve(t, h, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "up", body.Checks["postgres"])
	assert.Equal(t, "down: connection refused", body.Checks["redis"])
}

func TestLivenessAndStatus(t *testing.T) {
	h := New("development")
	assert.JSONEq(t, `{"status":"alive"}`, serve(t, h, "/health/live").Body.String())

	var status StatusResponse
	require.NoError(t, json.Unmarshal(serve(t, h, "/health").Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "development", status.Environment)
}
