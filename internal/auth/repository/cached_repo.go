package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
)

const (
	profileKeyPrefix  = "lms:user:" // lms:user:{id} -> JSON profile
	defaultProfileTTL = 5 * time.Minute
)

// CachedUserRepository is a read-through Redis cache over another directory.
// Only Get is cached; IsEmpty and List always hit the backing store so that the
// first-user check observes the directory as of its own read.
type CachedUserRepository struct {
	next   UserDirectory
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewCachedUserRepository(next UserDirectory, client *redis.Client, ttl time.Duration, log *slog.Logger) *CachedUserRepository {
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &CachedUserRepository{next: next, client: client, ttl: ttl, log: log}
}

func (r *CachedUserRepository) IsEmpty(ctx context.Context) (bool, error) {
	return r.next.IsEmpty(ctx)
}

func (r *CachedUserRepository) Get(ctx context.Context, id string) (*domain.UserProfile, error) {
	data, err := r.client.Get(ctx, r.profileKey(id)).Bytes()
	if err == nil {
		var p domain.UserProfile
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		r.log.Warn("discarding unreadable cached profile", slog.String("user_id", id))
	} else if err != redis.Nil {
		// A cache outage degrades to the backing store.
		r.log.Warn("profile cache read failed", slog.String("user_id", id), logging.Err(err))
	}

	p, err := r.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, p)
	return p, nil
}

func (r *CachedUserRepository) Create(ctx context.Context, p *domain.UserProfile) error {
	if err := r.next.Create(ctx, p); err != nil {
		return err
	}
	r.store(ctx, p)
	return nil
}

func (r *CachedUserRepository) Update(ctx context.Context, p *domain.UserProfile) error {
	if err := r.next.Update(ctx, p); err != nil {
		return err
	}
	// The write is committed; a stale entry expires with the TTL.
	if err := r.Invalidate(ctx, p.ID); err != nil {
		r.log.Warn("profile cache invalidation failed", slog.String("user_id", p.ID), logging.Err(err))
	}
	return nil
}

func (r *CachedUserRepository) List(ctx context.Context, limit int) ([]domain.UserProfile, error) {
	return r.next.List(ctx, limit)
}

// Invalidate drops the cached profile for id.
func (r *CachedUserRepository) Invalidate(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.profileKey(id)).Err(); err != nil {
		return fmt.Errorf("invalidate cached user %s: %w", id, err)
	}
	return nil
}

func (r *CachedUserRepository) store(ctx context.Context, p *domain.UserProfile) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.profileKey(p.ID), data, r.ttl).Err(); err != nil {
		r.log.Warn("profile cache write failed", slog.String("user_id", p.ID), logging.Err(err))
	}
}

func (r *CachedUserRepository) profileKey(id string) string {
	return fmt.Sprintf("%s%s", profileKeyPrefix, id)
}
