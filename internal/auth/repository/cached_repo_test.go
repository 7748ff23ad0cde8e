package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
)

// countingDirectory records backing-store calls.
type countingDirectory struct {
	mu       sync.Mutex
	profiles map[string]domain.UserProfile
	gets     int
	empties  int
}

func newCountingDirectory() *countingDirectory {
	return &countingDirectory{profiles: map[string]domain.UserProfile{}}
}

func (d *countingDirectory) IsEmpty(context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.empties++
	return len(d.profiles) == 0, nil
}

func (d *countingDirectory) Get(_ context.Context, id string) (*domain.UserProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gets++
	p, ok := d.profiles[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &p, nil
}

func (d *countingDirectory) Create(_ context.Context, p *domain.UserProfile) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.profiles[p.ID]; ok {
		return domain.ErrUserExists
	}
	d.profiles[p.ID] = *p
	return nil
}

func (d *countingDirectory) Update(_ context.Context, p *domain.UserProfile) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.profiles[p.ID]; !ok {
		return domain.ErrUserNotFound
	}
	d.profiles[p.ID] = *p
	return nil
}

func (d *countingDirectory) List(context.Context, int) ([]domain.UserProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []domain.UserProfile
	for _, p := range d.profiles {
		out = append(out, p)
	}
	return out, nil
}

func setupCachedRepo(t *testing.T) (*CachedUserRepository, *countingDirectory, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	backing := newCountingDirectory()
	return NewCachedUserRepository(backing, client, time.Minute, logging.Discard()), backing, mr
}

func TestCachedUserRepository_ReadThrough(t *testing.T) {
	repo, backing, mr := setupCachedRepo(t)
	ctx := context.Background()
	backing.profiles["u1"] = domain.UserProfile{ID: "u1", Email: "a@x.com", Role: domain.RoleMentor}

	p, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMentor, p.Role)
	assert.True(t, mr.Exists("lms:user:u1"))

	p, err = repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMentor, p.Role)
	assert.Equal(t, 1, backing.gets)

	mr.FastForward(2 * time.Minute)
	_, err = repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.gets)
}

func TestCachedUserRepository_MissIsNotCached(t *testing.T) {
	repo, backing, mr := setupCachedRepo(t)

	_, err := repo.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.False(t, mr.Exists("lms:user:ghost"))
	assert.Equal(t, 1, backing.gets)
}

func TestCachedUserRepository_UpdateInvalidates(t *testing.T) {
	repo, backing, mr := setupCachedRepo(t)
	ctx := context.Background()

	p := &domain.UserProfile{ID: "u1", Email: "a@x.com", Role: domain.RoleStudent}
	require.NoError(t, repo.Create(ctx, p))
	assert.True(t, mr.Exists("lms:user:u1"))

	p.Role = domain.RoleCreator
	require.NoError(t, repo.Update(ctx, p))
	assert.False(t, mr.Exists("lms:user:u1"))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCreator, got.Role)
	assert.Equal(t, 1, backing.gets)
}

func TestCachedUserRepository_IsEmptyBypassesCache(t *testing.T) {
	repo, backing, _ := setupCachedRepo(t)
	ctx := context.Background()

	empty, err := repo.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, repo.Create(ctx, &domain.UserProfile{ID: "u1", Role: domain.RoleAdmin}))
	empty, err = repo.IsEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, 2, backing.empties)
}

func TestCachedUserRepository_CacheOutageFallsBack(t *testing.T) {
	repo, backing, mr := setupCachedRepo(t)
	backing.profiles["u1"] = domain.UserProfile{ID: "u1", Role: domain.RoleStudent}
	mr.Close()

	p, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, p.Role)
}

func TestCachedUserRepository_UpdateSurvivesCacheOutage(t *testing.T) {
	repo, backing, mr := setupCachedRepo(t)
	ctx := context.Background()
	backing.profiles["u1"] = domain.UserProfile{ID: "u1", Role: domain.RoleStudent}
	mr.Close()

	err := repo.Update(ctx, &domain.UserProfile{ID: "u1", Role: domain.RoleMentor})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMentor, backing.profiles["u1"].Role)

	err = repo.Update(ctx, &domain.UserProfile{ID: "ghost", Role: domain.RoleMentor})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
