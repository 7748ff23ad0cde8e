package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
)

type memDirectory struct {
	mu        sync.Mutex
	profiles  map[string]domain.UserProfile
	creates   int
	failEmpty error
	failGet   error
	failWrite error
	// raceOnCreate simulates a concurrent writer winning the create.
	raceOnCreate *domain.UserProfile
}

func newMemDirectory() *memDirectory {
	return &memDirectory{profiles: map[string]domain.UserProfile{}}
}

func (d *memDirectory) IsEmpty(context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failEmpty != nil {
		return false, d.failEmpty
	}
	return len(d.profiles) == 0, nil
}

func (d *memDirectory) Get(_ context.Context, id string) (*domain.UserProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failGet != nil {
		return nil, d.failGet
	}
	p, ok := d.profiles[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &p, nil
}

func (d *memDirectory) Create(_ context.Context, p *domain.UserProfile) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWrite != nil {
		return d.failWrite
	}
	if d.raceOnCreate != nil {
		d.profiles[d.raceOnCreate.ID] = *d.raceOnCreate
		d.raceOnCreate = nil
	}
	if _, ok := d.profiles[p.ID]; ok {
		return domain.ErrUserExists
	}
	d.creates++
	d.profiles[p.ID] = *p
	return nil
}

func (d *memDirectory) Update(_ context.Context, p *domain.UserProfile) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWrite != nil {
		return d.failWrite
	}
	if _, ok := d.profiles[p.ID]; !ok {
		return domain.ErrUserNotFound
	}
	d.profiles[p.ID] = *p
	return nil
}

func (d *memDirectory) List(context.Context, int) ([]domain.UserProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.UserProfile, 0, len(d.profiles))
	for _, p := range d.profiles {
		out = append(out, p)
	}
	return out, nil
}

type fakeAccounts struct {
	emails map[string]bool
	fail   error
}

func (f *fakeAccounts) CreateAccount(_ context.Context, email, _ string) (*domain.Principal, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if f.emails == nil {
		f.emails = map[string]bool{}
	}
	if f.emails[email] {
		return nil, domain.ErrEmailInUse
	}
	f.emails[email] = true
	return &domain.Principal{ID: "uid-" + email, Email: email}, nil
}

func newTestService() (*AuthService, *memDirectory, *fakeAccounts) {
	dir := newMemDirectory()
	accounts := &fakeAccounts{}
	return NewAuthService(dir, accounts, logging.Discard(), nil), dir, accounts
}

func TestSignup_BootstrapAdminThenRequestedRoles(t *testing.T) {
	svc, dir, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Signup(ctx, domain.SignupRequest{Email: "a@x.com", Password: "pw-123456"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", first.Email)
	assert.Equal(t, domain.RoleAdmin, first.Role)

	second, err := svc.Signup(ctx, domain.SignupRequest{
		Email: "b@x.com", Password: "pw-123456", Extra: domain.SignupExtra{Role: domain.RoleStudent},
	})
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", second.Email)
	assert.Equal(t, domain.RoleStudent, second.Role)

	third, err := svc.Signup(ctx, domain.SignupRequest{Email: "c@x.com", Password: "pw-123456"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, third.Role)

	mentor, err := svc.Signup(ctx, domain.SignupRequest{
		Email: "d@x.com", Password: "pw-123456", Extra: domain.SignupExtra{Role: domain.RoleMentor, DisplayName: "Dee"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMentor, mentor.Role)
	assert.Equal(t, "Dee", dir.profiles["uid-d@x.com"].DisplayName)

	assert.Len(t, dir.profiles, 4)
}

func TestSignup_FirstUserIgnoresRequestedRole(t *testing.T) {
	svc, _, _ := newTestService()

	p, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email: "a@x.com", Password: "pw-123456", Extra: domain.SignupExtra{Role: domain.RoleStudent},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, p.Role)
}

func TestSignup_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("email already in use", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.Signup(ctx, domain.SignupRequest{Email: "a@x.com", Password: "pw-123456"})
		require.NoError(t, err)

		_, err = svc.Signup(ctx, domain.SignupRequest{Email: "a@x.com", Password: "pw-123456"})
		var se *domain.SignupError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, domain.StageCredential, se.Stage)
		assert.ErrorIs(t, err, domain.ErrEmailInUse)
	})

	t.Run("profile write fails after credential", func(t *testing.T) {
		svc, dir, accounts := newTestService()
		dir.failWrite = errors.New("firestore unavailable")

		_, err := svc.Signup(ctx, domain.SignupRequest{Email: "a@x.com", Password: "pw-123456"})
		var se *domain.SignupError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, domain.StageProfile, se.Stage)
		assert.True(t, accounts.emails["a@x.com"], "credential stays behind for lazy repair")
		assert.Empty(t, dir.profiles)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc, _, accounts := newTestService()
		_, err := svc.Signup(ctx, domain.SignupRequest{Email: "a@x.com"})
		var se *domain.SignupError
		require.ErrorAs(t, err, &se)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, accounts.emails)
	})

	t.Run("invalid role", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.Signup(ctx, domain.SignupRequest{
			Email: "a@x.com", Password: "pw-123456", Extra: domain.SignupExtra{Role: "root"},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidRole)
	})

	t.Run("directory unreachable before credential", func(t *testing.T) {
		svc, dir, accounts := newTestService()
		dir.failEmpty = errors.New("timeout")
		_, err := svc.Signup(ctx, domain.SignupRequest{Email: "a@x.com", Password: "pw-123456"})
		var se *domain.SignupError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, domain.StageCredential, se.Stage)
		assert.Empty(t, accounts.emails)
	})
}

func TestResolveRole(t *testing.T) {
	ctx := context.Background()

	t.Run("empty directory yields admin without writing", func(t *testing.T) {
		svc, dir, _ := newTestService()
		role, err := svc.ResolveRole(ctx, &domain.Principal{ID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, role)
		assert.Zero(t, dir.creates)
	})

	t.Run("existing profile is idempotent", func(t *testing.T) {
		svc, dir, _ := newTestService()
		dir.profiles["u1"] = domain.UserProfile{ID: "u1", Role: domain.RoleCreator}

		for i := 0; i < 2; i++ {
			role, err := svc.ResolveRole(ctx, &domain.Principal{ID: "u1"})
			require.NoError(t, err)
			assert.Equal(t, domain.RoleCreator, role)
		}
		assert.Zero(t, dir.creates)
		assert.Len(t, dir.profiles, 1)
	})

	t.Run("missing profile is created as admin once", func(t *testing.T) {
		svc, dir, _ := newTestService()
		dir.profiles["other"] = domain.UserProfile{ID: "other", Role: domain.RoleStudent}

		role, err := svc.ResolveRole(ctx, &domain.Principal{ID: "u2", Email: "u2@x.com"})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, role)
		assert.Equal(t, "u2@x.com", dir.profiles["u2"].Email)

		role, err = svc.ResolveRole(ctx, &domain.Principal{ID: "u2"})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, role)
		assert.Equal(t, 1, dir.creates)
	})

	t.Run("concurrent creation keeps the winner", func(t *testing.T) {
		svc, dir, _ := newTestService()
		dir.profiles["other"] = domain.UserProfile{ID: "other", Role: domain.RoleStudent}
		dir.raceOnCreate = &domain.UserProfile{ID: "u3", Role: domain.RoleMentor}

		role, err := svc.ResolveRole(ctx, &domain.Principal{ID: "u3"})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleMentor, role)
	})

	t.Run("directory errors yield unknown", func(t *testing.T) {
		svc, dir, _ := newTestService()
		dir.profiles["other"] = domain.UserProfile{ID: "other"}
		dir.failGet = errors.New("unavailable")

		role, err := svc.ResolveRole(ctx, &domain.Principal{ID: "u1"})
		assert.Equal(t, domain.RoleUnknown, role)
		var rerr *domain.RoleResolutionError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "get_profile", rerr.Op)
	})

	t.Run("nil principal", func(t *testing.T) {
		svc, _, _ := newTestService()
		role, err := svc.ResolveRole(ctx, nil)
		assert.Equal(t, domain.RoleUnknown, role)
		assert.ErrorIs(t, err, domain.ErrMissingPrincipal)
	})
}

func TestAdminMutations(t *testing.T) {
	svc, dir, _ := newTestService()
	ctx := context.Background()
	dir.profiles["u1"] = domain.UserProfile{ID: "u1", Role: domain.RoleStudent}

	p, err := svc.SetRole(ctx, "u1", domain.RoleMentor)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMentor, p.Role)

	_, err = svc.SetRole(ctx, "u1", "root")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = svc.SetRole(ctx, "ghost", domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	paid, granted := true, true
	status := domain.VerificationVerified
	p, err = svc.SetAccess(ctx, "u1", domain.AccessUpdate{HasPaid: &paid, AccessGranted: &granted, VerificationStatus: &status})
	require.NoError(t, err)
	assert.True(t, dir.profiles["u1"].HasPaid)
	assert.True(t, p.AccessGranted)
	assert.Equal(t, domain.RoleMentor, dir.profiles["u1"].Role)

	users, err := svc.ListUsers(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
