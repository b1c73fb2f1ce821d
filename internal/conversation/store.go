package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const insertMessageSQL = `INSERT INTO conversation_messages (conversation_id, sender, body, sequence_number)
	VALUES ($1, $2, $3, $4)`

// Store manages conversations backed by PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a conversation Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Create starts a new conversation containing its first user/bot exchange.
// The conversation row and both messages are written in one transaction so
// a conversation can never exist without its opening exchange.
func (s *Store) Create(ctx context.Context, userText, botText string) (*Conversation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(ctx, tx, s.logger)

	var conv Conversation
	err = tx.QueryRow(ctx,
		`INSERT INTO conversations DEFAULT VALUES RETURNING id, created_at, updated_at`,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting conversation: %w", err)
	}

	if err := insertExchange(ctx, tx, conv.ID, 0, userText, botText); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("conversation created", "conversation_id", conv.ID)
	return &conv, nil
}

// AppendExchange appends one user message and one bot message to an
// existing conversation. The conversation row is locked for the duration of
// the transaction so concurrent appends cannot interleave sequence numbers.
// Returns ErrNotFound if the conversation does not exist.
func (s *Store) AppendExchange(ctx context.Context, id uuid.UUID, userText, botText string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(ctx, tx, s.logger)

	var locked uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, id,
	).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("locking conversation: %w", err)
	}

	var lastSeq int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM conversation_messages WHERE conversation_id = $1`, id,
	).Scan(&lastSeq)
	if err != nil {
		return fmt.Errorf("reading last sequence number: %w", err)
	}

	if err := insertExchange(ctx, tx, id, lastSeq, userText, botText); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`, id,
	); err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("exchange appended", "conversation_id", id, "sequence", lastSeq+2)
	return nil
}

// Get returns a conversation by id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var conv Conversation
	err := s.pool.QueryRow(ctx,
		`SELECT id, created_at, updated_at FROM conversations WHERE id = $1`, id,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying conversation: %w", err)
	}
	return &conv, nil
}

// Messages returns the full transcript of a conversation in sequence order.
// Returns ErrNotFound if the conversation does not exist.
func (s *Store) Messages(ctx context.Context, id uuid.UUID) ([]Message, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, sender, body, sequence_number, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY sequence_number`, id)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Text, &m.SequenceNumber, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}

// insertExchange writes a user/bot message pair with consecutive sequence
// numbers starting after lastSeq.
func insertExchange(ctx context.Context, q querier, id uuid.UUID, lastSeq int, userText, botText string) error {
	if _, err := q.Exec(ctx, insertMessageSQL, id, SenderUser, userText, lastSeq+1); err != nil {
		return fmt.Errorf("inserting user message: %w", err)
	}
	if _, err := q.Exec(ctx, insertMessageSQL, id, SenderBot, botText, lastSeq+2); err != nil {
		return fmt.Errorf("inserting bot message: %w", err)
	}
	return nil
}

// rollback releases a transaction; a pgx.ErrTxClosed after commit is normal.
func rollback(ctx context.Context, tx pgx.Tx, logger *slog.Logger) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.Warn("transaction rollback failed", "error", err)
	}
}
