package bot

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nova-ai/chatboat/internal/conversation"
	"github.com/nova-ai/chatboat/internal/gemini"
)

// ErrEmptyMessage is returned when the trimmed message text is empty.
var ErrEmptyMessage = errors.New("message text cannot be empty")

// EmptyMessage is the wire string for ErrEmptyMessage.
const EmptyMessage = "Message text cannot be empty"

// internalErrorMessage is the generic wire string for unexpected failures.
const internalErrorMessage = "Internal Server Error"

// ConversationStore is the persistence surface the pipeline needs.
type ConversationStore interface {
	Create(ctx context.Context, userText, botText string) (*conversation.Conversation, error)
	AppendExchange(ctx context.Context, id uuid.UUID, userText, botText string) error
	Get(ctx context.Context, id uuid.UUID) (*conversation.Conversation, error)
}

// Options tune the pipeline.
type Options struct {
	// WordDelay is the pause between paced word events. Default 80ms.
	WordDelay time.Duration

	// TypingDelay is the pause after the typing event. Default 500ms.
	TypingDelay time.Duration

	// IncludeErrorDetails attaches internal error text to error payloads.
	// Keep this off in production.
	IncludeErrorDetails bool
}

// Pipeline turns a user message into a bot reply and persists the exchange.
//
// Reply precedence is fixed: creator classifier, then the canned table,
// then the upstream AI. Upstream failures never surface to the caller;
// they collapse into BusyFallback.
type Pipeline struct {
	store          ConversationStore
	upstream       gemini.Client
	wordDelay      time.Duration
	typingDelay    time.Duration
	includeDetails bool
	logger         *slog.Logger
}

// ExchangeResult is the outcome of a blocking exchange.
type ExchangeResult struct {
	ConversationID uuid.UUID
	BotMessage     string
}

// New creates a Pipeline.
func New(store ConversationStore, upstream gemini.Client, opts Options, logger *slog.Logger) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if upstream == nil {
		return nil, errors.New("upstream client is required")
	}
	if opts.WordDelay <= 0 {
		opts.WordDelay = 80 * time.Millisecond
	}
	if opts.TypingDelay <= 0 {
		opts.TypingDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:          store,
		upstream:       upstream,
		wordDelay:      opts.WordDelay,
		typingDelay:    opts.TypingDelay,
		includeDetails: opts.IncludeErrorDetails,
		logger:         logger,
	}, nil
}

// Respond computes the reply for a message without persisting anything.
func (p *Pipeline) Respond(ctx context.Context, text string) string {
	if IsCreatorQuestion(text) {
		return CreatorReply
	}
	if reply, ok := LookupCanned(text); ok {
		return reply
	}

	reply, err := p.upstream.Complete(ctx, text)
	if err != nil {
		p.logger.Warn("upstream completion failed", "error", err)
		return BusyFallback
	}
	return reply
}

// Exchange runs the blocking flow: validate, generate, persist.
// With conversationID == uuid.Nil a new conversation is created; otherwise
// the exchange is appended to the existing one. Unlike streaming, a
// persistence failure here is fatal because the reply has not been
// delivered yet.
func (p *Pipeline) Exchange(ctx context.Context, text string, conversationID uuid.UUID) (*ExchangeResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}

	reply := p.Respond(ctx, text)

	if conversationID == uuid.Nil {
		conv, err := p.store.Create(ctx, trimmed, reply)
		if err != nil {
			return nil, err
		}
		return &ExchangeResult{ConversationID: conv.ID, BotMessage: reply}, nil
	}

	if err := p.store.AppendExchange(ctx, conversationID, trimmed, reply); err != nil {
		return nil, err
	}
	return &ExchangeResult{ConversationID: conversationID, BotMessage: reply}, nil
}

// Stream runs the streaming flow as an event sequence: typing, a think
// pause, paced words, complete, then a persistence outcome event (saved or
// warning). Validation failures and unknown conversations yield a single
// terminal error event. Cancellation abandons the sequence silently.
func (p *Pipeline) Stream(ctx context.Context, text string, conversationID uuid.UUID) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			yield(newErrorEvent(EmptyMessage, ""))
			return
		}

		// Check the conversation before generating so an unknown id fails
		// fast instead of after the whole reply has been paced out.
		if conversationID != uuid.Nil {
			if _, err := p.store.Get(ctx, conversationID); err != nil {
				if errors.Is(err, conversation.ErrNotFound) {
					yield(newErrorEvent(NotFoundMessage, ""))
					return
				}
				p.logger.Error("conversation lookup failed", "error", err)
				yield(newErrorEvent(internalErrorMessage, p.details(err)))
				return
			}
		}

		if !yield(newTypingEvent()) {
			return
		}
		if !wait(ctx, p.typingDelay) {
			return
		}

		reply := p.Respond(ctx, text)

		for ev := range Pace(ctx, reply, p.wordDelay) {
			if !yield(ev) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		// The reply is already on the wire; losing the save only warrants
		// a warning, not an error.
		if conversationID == uuid.Nil {
			conv, err := p.store.Create(ctx, trimmed, reply)
			if err != nil {
				p.logger.Error("failed to save conversation", "error", err)
				yield(newWarningEvent(NotSavedMessage))
				return
			}
			yield(newSavedEvent(conv.ID.String()))
			return
		}

		err := p.store.AppendExchange(ctx, conversationID, trimmed, reply)
		switch {
		case err == nil:
			yield(newSavedEvent(conversationID.String()))
		case errors.Is(err, conversation.ErrNotFound):
			yield(newErrorEvent(NotFoundMessage, ""))
		default:
			p.logger.Error("failed to save conversation", "error", err,
				"conversation_id", conversationID)
			yield(newWarningEvent(NotSavedMessage))
		}
	}
}

func (p *Pipeline) details(err error) string {
	if !p.includeDetails {
		return ""
	}
	return err.Error()
}
