package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
)

// MemoryUserRepository keeps profiles in process memory. Development only.
type MemoryUserRepository struct {
	mutex sync.RWMutex
	t     map[string]domain.UserProfile
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{t: make(map[string]domain.UserProfile)}
}

func (r *MemoryUserRepository) IsEmpty(context.Context) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.t) == 0, nil
}

func (r *MemoryUserRepository) Get(_ context.Context, id string) (*domain.UserProfile, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if p, ok := r.t[id]; ok {
		return &p, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *MemoryUserRepository) Create(_ context.Context, p *domain.UserProfile) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.t[p.ID]; ok {
		return domain.ErrUserExists
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.t[p.ID] = *p
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, p *domain.UserProfile) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.t[p.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.t[p.ID] = *p
	return nil
}

func (r *MemoryUserRepository) List(_ context.Context, limit int) ([]domain.UserProfile, error) {
	r.mutex.RLock()
	res := make([]domain.UserProfile, 0, len(r.t))
	for _, p := range r.t {
		res = append(res, p)
	}
	r.mutex.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if n := listLimit(limit); len(res) > n {
		res = res[:n]
	}
	return res, nil
}
