package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/repository"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/service"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
)

var profileColumns = []string{
	"id", "email", "role", "display_name", "created_at", "has_paid", "access_granted",
	"access_level", "verification_status", "plan_id",
}

// postgresGuard builds a guard over the Postgres directory holding one profile
// for u1 with the given stored role.
func postgresGuard(t *testing.T, storedRole string) (*Guard, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT id, email, role`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(profileColumns).
			AddRow("u1", "a@x.com", storedRole, nil, time.Now().UTC(), false, false, nil, nil, nil))

	svc := service.NewAuthService(repository.NewPostgresUserRepository(db), nil, logging.Discard(), nil)
	return New(svc, logging.Discard(), nil), mock
}

func memoryGuard(t *testing.T, storedRole domain.Role) *Guard {
	t.Helper()
	dir := repository.NewMemoryUserRepository()
	require.NoError(t, dir.Create(context.Background(), &domain.UserProfile{ID: "u1", Email: "a@x.com", Role: storedRole}))

	svc := service.NewAuthService(dir, nil, logging.Discard(), nil)
	return New(svc, logging.Discard(), nil)
}

func TestEvaluate_StoredRoles(t *testing.T) {
	ctx := context.Background()
	principal := &domain.Principal{ID: "u1", Email: "a@x.com"}

	t.Run("postgres out-of-enum role is denied an admin route", func(t *testing.T) {
		g, mock := postgresGuard(t, "teacher")

		d := g.Evaluate(ctx, principal, domain.RoleAdmin)
		assert.Equal(t, StateUnauthorized, d.State)
		assert.Equal(t, domain.Role("teacher"), d.Role)
		assert.Equal(t, UnauthorizedPath, d.Redirect)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("postgres empty role stays permissive", func(t *testing.T) {
		g, mock := postgresGuard(t, "")

		d := g.Evaluate(ctx, principal, domain.RoleAdmin)
		assert.Equal(t, StateAuthorized, d.State)
		assert.Equal(t, domain.RoleUnknown, d.Role)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("memory out-of-enum role is denied an admin route", func(t *testing.T) {
		g := memoryGuard(t, domain.Role("teacher"))

		assert.Equal(t, StateUnauthorized, g.Evaluate(ctx, principal, domain.RoleAdmin).State)
		assert.True(t, g.Evaluate(ctx, principal).Allowed())
	})

	t.Run("memory empty role stays permissive", func(t *testing.T) {
		g := memoryGuard(t, domain.RoleUnknown)

		assert.True(t, g.Evaluate(ctx, principal, domain.RoleAdmin).Allowed())
	})
}

func TestRequire_StoredOutOfEnumRole(t *testing.T) {
	principal := &domain.Principal{ID: "u1", Email: "a@x.com"}
	r := newGuardedRouter(memoryGuard(t, domain.Role("teacher")), principal, domain.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, `{"error":"insufficient role","redirect":"/unauthorized"}`, rr.Body.String())
}
