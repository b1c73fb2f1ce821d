// Package conversation provides persistence for chat conversations.
//
// A conversation is an append-only transcript of alternating user and bot
// messages. Messages carry a per-conversation sequence number so that
// insertion order and chronological order always agree, even when wall
// clocks within a transaction collide.
package conversation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the requested conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// Sender roles for messages.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Conversation is a stored chat transcript.
type Conversation struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single entry in a conversation transcript.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Sender         string
	Text           string
	SequenceNumber int
	CreatedAt      time.Time
}
