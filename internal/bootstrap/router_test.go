package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/repository"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/service"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/metrics"
)

// tokenTable maps bearer tokens to principals.
type tokenTable map[string]*domain.Principal

func (t tokenTable) VerifyIDToken(_ context.Context, tok string) (*domain.Principal, error) {
	if p, ok := t[tok]; ok {
		return p, nil
	}
	return nil, errors.New("invalid token")
}

type noAccounts struct{}

func (noAccounts) CreateAccount(context.Context, string, string) (*domain.Principal, error) {
	return nil, errors.New("not used")
}

type noReset struct{}

func (noReset) SendPasswordReset(context.Context, string) error { return nil }

func newTestRouter(t *testing.T, burst int) (*gin.Engine, *repository.MemoryUserRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := repository.NewMemoryUserRepository()
	require.NoError(t, dir.Create(context.Background(), &domain.UserProfile{ID: "admin-1", Role: domain.RoleAdmin}))
	require.NoError(t, dir.Create(context.Background(), &domain.UserProfile{ID: "student-1", Role: domain.RoleStudent}))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	log := logging.Discard()

	r := BuildRouter(RouterDeps{
		ServiceName:    "lms-access",
		Version:        "test",
		Store:          "memory",
		AllowedOrigins: []string{"http://localhost:3000"},
		SignupRPS:      0.001,
		SignupBurst:    burst,
		Health:         (&Directory{Users: dir}).Ping,
		Auth:           service.NewAuthService(dir, noAccounts{}, log, m),
		Verifier: tokenTable{
			"admin-token":   {ID: "admin-1"},
			"student-token": {ID: "student-1"},
		},
		Resetter: noReset{},
		Gatherer: reg,
		Metrics:  m,
		Log:      log,
	})
	return r, dir
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_AuthAndGuard(t *testing.T) {
	r, _ := newTestRouter(t, 5)

	w := get(r, "/api/v1/auth/role", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/api/v1/auth/role", "student-token")
	assert.JSONEq(t, `{"role":"student"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = get(r, "/api/v1/admin/users", "student-token")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "/unauthorized")

	w = get(r, "/api/v1/admin/users", "admin-token")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/api/v1/courses/access", "bogus")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "/login")
}

func TestRouter_BrowserRedirects(t *testing.T) {
	r, _ := newTestRouter(t, 5)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/access", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/login?next="))
}

func TestRouter_SignupIsRateLimited(t *testing.T) {
	r, _ := newTestRouter(t, 1)

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/password-reset", strings.NewReader(`{"email":"a@x.com"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusAccepted, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t, 5)

	w := get(r, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"directory":"up"`)

	_ = get(r, "/api/v1/auth/role", "admin-token")
	w = get(r, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `lms_role_resolutions_total{outcome="found"} 1`)
}
