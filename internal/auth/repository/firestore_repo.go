package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
)

const usersCollection = "users"

// FirestoreUserRepository stores profiles in the "users" collection, keyed by principal ID.
type FirestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) *FirestoreUserRepository {
	return &FirestoreUserRepository{client: client}
}

func (r *FirestoreUserRepository) users() *firestore.CollectionRef {
	return r.client.Collection(usersCollection)
}

func (r *FirestoreUserRepository) IsEmpty(ctx context.Context) (bool, error) {
	iter := r.users().Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("query users: %w", err)
	}
	return false, nil
}

func (r *FirestoreUserRepository) Get(ctx context.Context, id string) (*domain.UserProfile, error) {
	snap, err := r.users().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return decodeProfile(snap)
}

// Create writes the profile document. Firestore Create fails if the document exists.
func (r *FirestoreUserRepository) Create(ctx context.Context, p *domain.UserProfile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.users().Doc(p.ID).Create(ctx, p)
	if status.Code(err) == codes.AlreadyExists {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user %s: %w", p.ID, err)
	}
	return nil
}

// Update overwrites the document without a precondition.
func (r *FirestoreUserRepository) Update(ctx context.Context, p *domain.UserProfile) error {
	ref := r.users().Doc(p.ID)
	if _, err := ref.Get(ctx); status.Code(err) == codes.NotFound {
		return domain.ErrUserNotFound
	} else if err != nil {
		return fmt.Errorf("get user %s: %w", p.ID, err)
	}

	if _, err := ref.Set(ctx, p); err != nil {
		return fmt.Errorf("update user %s: %w", p.ID, err)
	}
	return nil
}

func (r *FirestoreUserRepository) List(ctx context.Context, limit int) ([]domain.UserProfile, error) {
	iter := r.users().OrderBy("createdAt", firestore.Desc).Limit(listLimit(limit)).Documents(ctx)
	defer iter.Stop()

	var out []domain.UserProfile
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		p, err := decodeProfile(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func decodeProfile(snap *firestore.DocumentSnapshot) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", snap.Ref.ID, err)
	}
	if p.ID == "" {
		p.ID = snap.Ref.ID
	}
	return &p, nil
}
