package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, check StoreCheck) (int, HealthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHealthHandler("lms-access", "1.2.3", "memory", check).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestHealthCheck(t *testing.T) {
	code, resp := serveHealth(t, func(context.Context) error { return nil })
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "up", resp.Directory)
	assert.Equal(t, "memory", resp.Store)
	assert.Equal(t, "1.2.3", resp.Version)

	code, resp = serveHealth(t, func(context.Context) error { return errors.New("unreachable") })
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "down", resp.Directory)

	code, resp = serveHealth(t, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "disabled", resp.Directory)
}
