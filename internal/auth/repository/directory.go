package repository

import (
	"context"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
)

// UserDirectory maps principal IDs to profile records.
//
// Writes are single-document and last-write-wins: there is no version check,
// so concurrent writers may clobber each other.
type UserDirectory interface {
	// IsEmpty reports whether the directory holds zero profiles.
	IsEmpty(ctx context.Context) (bool, error)
	// Get returns domain.ErrUserNotFound when no profile exists for id.
	Get(ctx context.Context, id string) (*domain.UserProfile, error)
	Create(ctx context.Context, p *domain.UserProfile) error
	Update(ctx context.Context, p *domain.UserProfile) error
	List(ctx context.Context, limit int) ([]domain.UserProfile, error)
}

const defaultListLimit = 100

func listLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return defaultListLimit
	}
	return limit
}
