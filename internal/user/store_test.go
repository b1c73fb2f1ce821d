package user

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nova-ai/chatboat/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db := testutil.SetupTestDB(t)
	store, err := NewStore(db.Pool, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return store
}

func testUser(email, username string) *User {
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$12$notarealhashbutlongenough.........",
		UseCase:      "Personal Assistant",
		Experience:   "New to AI",
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u := testUser("alice@example.com", "alice")
	require.NoError(t, store.Create(ctx, u))
	require.NotEqual(t, uuid.Nil, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	byEmail, err := store.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "alice", byEmail.Username)
	assert.Equal(t, u.PasswordHash, byEmail.PasswordHash)

	byID, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)
}

func TestStoreCreateDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testUser("bob@example.com", "bob")))

	err := store.Create(ctx, testUser("bob@example.com", "robert"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStoreCreateDuplicateUsername(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testUser("carol@example.com", "carol")))

	err := store.Create(ctx, testUser("carol2@example.com", "carol"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStoreGetUnknown(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
