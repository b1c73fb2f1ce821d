package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nova-ai/chatboat/internal/conversation"
	"github.com/nova-ai/chatboat/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeUpstream is a canned gemini.Client.
type fakeUpstream struct {
	reply string
	err   error
	calls int
}

func (f *fakeUpstream) Complete(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// fakeStore records pipeline persistence calls.
type fakeStore struct {
	createErr error
	appendErr error
	getErr    error

	createdID  uuid.UUID
	createdMsg [2]string // user, bot
	appended   [2]string
	creates    int
	appends    int
}

func (f *fakeStore) Create(_ context.Context, userText, botText string) (*conversation.Conversation, error) {
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdMsg = [2]string{userText, botText}
	if f.createdID == uuid.Nil {
		f.createdID = uuid.New()
	}
	return &conversation.Conversation{ID: f.createdID}, nil
}

func (f *fakeStore) AppendExchange(_ context.Context, _ uuid.UUID, userText, botText string) error {
	f.appends++
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = [2]string{userText, botText}
	return nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*conversation.Conversation, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &conversation.Conversation{ID: id}, nil
}

func newTestPipeline(t *testing.T, store *fakeStore, upstream *fakeUpstream) *Pipeline {
	t.Helper()
	p, err := New(store, upstream, Options{
		WordDelay:   time.Millisecond,
		TypingDelay: time.Millisecond,
	}, log.NewNop())
	require.NoError(t, err)
	return p
}

func TestRespondPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		text          string
		upstream      *fakeUpstream
		want          string
		upstreamCalls int
	}{
		{
			name:     "creator question bypasses upstream",
			text:     "who created you?",
			upstream: &fakeUpstream{reply: "ignored"},
			want:     CreatorReply,
		},
		{
			name:     "creator wins over canned shape",
			text:     "who made you?",
			upstream: &fakeUpstream{reply: "ignored"},
			want:     CreatorReply,
		},
		{
			name:     "canned reply bypasses upstream",
			text:     "  What is your name?  ",
			upstream: &fakeUpstream{reply: "ignored"},
			want:     "I'm Chatboat, your friendly AI assistant 🛳️🤖",
		},
		{
			name:          "upstream reply",
			text:          "tell me a joke",
			upstream:      &fakeUpstream{reply: "Why did the gopher cross the road?"},
			want:          "Why did the gopher cross the road?",
			upstreamCalls: 1,
		},
		{
			name:          "upstream failure becomes busy fallback",
			text:          "tell me a joke",
			upstream:      &fakeUpstream{err: errors.New("503 overloaded")},
			want:          BusyFallback,
			upstreamCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newTestPipeline(t, &fakeStore{}, tt.upstream)
			got := p.Respond(context.Background(), tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.upstreamCalls, tt.upstream.calls)
		})
	}
}

func TestExchangeCreatesConversation(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	p := newTestPipeline(t, store, &fakeUpstream{reply: "Hello there"})

	res, err := p.Exchange(context.Background(), "  hi bot  ", uuid.Nil)
	require.NoError(t, err)

	assert.Equal(t, store.createdID, res.ConversationID)
	assert.Equal(t, "Hello there", res.BotMessage)
	assert.Equal(t, 1, store.creates)
	assert.Equal(t, [2]string{"hi bot", "Hello there"}, store.createdMsg)
}

func TestExchangeAppendsToExisting(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	p := newTestPipeline(t, store, &fakeUpstream{reply: "Sure"})
	id := uuid.New()

	res, err := p.Exchange(context.Background(), "continue", id)
	require.NoError(t, err)

	assert.Equal(t, id, res.ConversationID)
	assert.Equal(t, 1, store.appends)
	assert.Zero(t, store.creates)
}

func TestExchangeEmptyMessage(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	p := newTestPipeline(t, store, &fakeUpstream{reply: "ignored"})

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := p.Exchange(context.Background(), text, uuid.Nil)
		assert.ErrorIs(t, err, ErrEmptyMessage, "text %q", text)
	}
	assert.Zero(t, store.creates)
	assert.Zero(t, store.appends)
}

func TestExchangeUnknownConversation(t *testing.T) {
	t.Parallel()

	store := &fakeStore{appendErr: conversation.ErrNotFound}
	p := newTestPipeline(t, store, &fakeUpstream{reply: "Sure"})

	_, err := p.Exchange(context.Background(), "hello", uuid.New())
	assert.ErrorIs(t, err, conversation.ErrNotFound)
}

func TestExchangePersistenceFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := &fakeStore{createErr: errors.New("connection refused")}
	p := newTestPipeline(t, store, &fakeUpstream{reply: "Sure"})

	_, err := p.Exchange(context.Background(), "hello", uuid.Nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, conversation.ErrNotFound)
}

func collectStream(p *Pipeline, text string, id uuid.UUID) []Event {
	var events []Event
	for ev := range p.Stream(context.Background(), text, id) {
		events = append(events, ev)
	}
	return events
}

func TestStreamHappyPath(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	p := newTestPipeline(t, store, &fakeUpstream{reply: "Hello world"})

	events := collectStream(p, "hi", uuid.Nil)
	require.Len(t, events, 5)

	typing, ok := events[0].(TypingEvent)
	require.True(t, ok, "first event must be typing")
	assert.Equal(t, ThinkingMessage, typing.Message)

	assert.Equal(t, WordEvent{Type: EventWord, Word: "Hello ", WordIndex: 0}, events[1])
	assert.Equal(t, WordEvent{Type: EventWord, Word: "world", WordIndex: 1}, events[2])
	assert.Equal(t, CompleteEvent{Type: EventComplete, FullText: "Hello world", IsComplete: true}, events[3])

	saved, ok := events[4].(SavedEvent)
	require.True(t, ok, "terminal event must be saved")
	assert.Equal(t, store.createdID.String(), saved.ConversationID)
	assert.Equal(t, SavedMessage, saved.Message)
}

func TestStreamEmptyMessage(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	p := newTestPipeline(t, store, &fakeUpstream{reply: "ignored"})

	events := collectStream(p, "   ", uuid.Nil)
	require.Len(t, events, 1)
	assert.Equal(t, ErrorEvent{Type: EventError, Message: EmptyMessage}, events[0])
}

func TestStreamUnknownConversation(t *testing.T) {
	t.Parallel()

	store := &fakeStore{getErr: conversation.ErrNotFound}
	p := newTestPipeline(t, store, &fakeUpstream{reply: "ignored"})

	events := collectStream(p, "hello", uuid.New())
	require.Len(t, events, 1)
	assert.Equal(t, ErrorEvent{Type: EventError, Message: NotFoundMessage}, events[0])
}

func TestStreamPersistenceFailureWarnsOnly(t *testing.T) {
	t.Parallel()

	store := &fakeStore{createErr: errors.New("connection refused")}
	p := newTestPipeline(t, store, &fakeUpstream{reply: "Hello"})

	events := collectStream(p, "hi", uuid.Nil)
	require.NotEmpty(t, events)

	// Reply is still fully delivered before the warning.
	complete, ok := events[len(events)-2].(CompleteEvent)
	require.True(t, ok)
	assert.Equal(t, "Hello", complete.FullText)

	warning, ok := events[len(events)-1].(WarningEvent)
	require.True(t, ok, "terminal event must be a warning")
	assert.Equal(t, NotSavedMessage, warning.Message)
}

func TestStreamUpstreamFailureStreamsFallback(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	p := newTestPipeline(t, store, &fakeUpstream{err: errors.New("503 overloaded")})

	events := collectStream(p, "hi", uuid.Nil)

	var complete CompleteEvent
	for _, ev := range events {
		if c, ok := ev.(CompleteEvent); ok {
			complete = c
		}
	}
	assert.Equal(t, BusyFallback, complete.FullText)

	// The fallback exchange still persists.
	assert.Equal(t, 1, store.creates)
	assert.Equal(t, EventSaved, events[len(events)-1].Kind())
}

func TestStreamCancellation(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	p := newTestPipeline(t, store, &fakeUpstream{reply: "a b c d e f"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var events []Event
	for ev := range p.Stream(ctx, "hi", uuid.Nil) {
		events = append(events, ev)
		if ev.Kind() == EventWord {
			cancel()
		}
	}

	for _, ev := range events {
		assert.NotEqual(t, EventComplete, ev.Kind())
		assert.NotEqual(t, EventSaved, ev.Kind())
		assert.NotEqual(t, EventWarning, ev.Kind())
	}
	assert.Zero(t, store.creates, "cancelled stream must not persist")
}

func TestStreamAppendRaceReportsError(t *testing.T) {
	t.Parallel()

	// Lookup succeeds but the conversation disappears before the append.
	store := &fakeStore{appendErr: conversation.ErrNotFound}
	p := newTestPipeline(t, store, &fakeUpstream{reply: "Hello"})

	events := collectStream(p, "hi", uuid.New())
	require.NotEmpty(t, events)
	last, ok := events[len(events)-1].(ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, NotFoundMessage, last.Message)
}
