package conversation

import (
	"context"
	"log/slog"
	"sync"
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

func TestStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, "What can you do?", "Lots of things.")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, conv.ID)
	assert.False(t, conv.CreatedAt.IsZero())

	got, err := store.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	msgs, err := store.Messages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, SenderUser, msgs[0].Sender)
	assert.Equal(t, "What can you do?", msgs[0].Text)
	assert.Equal(t, 1, msgs[0].SequenceNumber)
	assert.Equal(t, SenderBot, msgs[1].Sender)
	assert.Equal(t, "Lots of things.", msgs[1].Text)
	assert.Equal(t, 2, msgs[1].SequenceNumber)
}

func TestStoreAppendExchange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, "first question", "first answer")
	require.NoError(t, err)

	require.NoError(t, store.AppendExchange(ctx, conv.ID, "second question", "second answer"))

	msgs, err := store.Messages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	for i, m := range msgs {
		assert.Equal(t, i+1, m.SequenceNumber)
	}
	assert.Equal(t, "second question", msgs[2].Text)
	assert.Equal(t, SenderUser, msgs[2].Sender)
	assert.Equal(t, "second answer", msgs[3].Text)
	assert.Equal(t, SenderBot, msgs[3].Sender)

	got, err := store.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.False(t, got.UpdatedAt.Before(conv.UpdatedAt))
}

func TestStoreAppendUnknownConversation(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendExchange(context.Background(), uuid.New(), "hello?", "anyone?")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreGetUnknownConversation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Messages(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

// Concurrent appends must serialize on the conversation row and never
// produce duplicate sequence numbers.
func TestStoreConcurrentAppends(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, "start", "go")
	require.NoError(t, err)

	const appenders = 5
	var wg sync.WaitGroup
	errs := make([]error, appenders)
	for i := range appenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = store.AppendExchange(ctx, conv.ID, "ping", "pong")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	msgs, err := store.Messages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2+2*appenders)
	for i, m := range msgs {
		assert.Equal(t, i+1, m.SequenceNumber)
	}
}
