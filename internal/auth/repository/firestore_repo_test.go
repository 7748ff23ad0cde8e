package repository

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
)

// setupFirestore connects to the Firestore emulator.
// Skips the test if FIRESTORE_EMULATOR_HOST is not set.
func setupFirestore(t *testing.T) *firestore.Client {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set, skipping Firestore integration test")
	}

	// Each test gets its own project so collections start empty.
	client, err := firestore.NewClient(context.Background(), "lms-test-"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestFirestoreUserRepository_Lifecycle(t *testing.T) {
	repo := NewFirestoreUserRepository(setupFirestore(t))
	ctx := context.Background()

	empty, err := repo.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	_, err = repo.Get(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	p := &domain.UserProfile{ID: "u1", Email: "a@x.com", Role: domain.RoleAdmin}
	require.NoError(t, repo.Create(ctx, p))
	assert.False(t, p.CreatedAt.IsZero())
	assert.ErrorIs(t, repo.Create(ctx, p), domain.ErrUserExists)

	empty, err = repo.IsEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)

	p.HasPaid = true
	p.VerificationStatus = domain.VerificationVerified
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.True(t, got.HasPaid)

	assert.ErrorIs(t, repo.Update(ctx, &domain.UserProfile{ID: "ghost"}), domain.ErrUserNotFound)

	users, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
