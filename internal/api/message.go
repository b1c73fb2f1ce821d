package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nova-ai/chatboat/internal/bot"
	"github.com/nova-ai/chatboat/internal/conversation"
)

// maxMessageBody bounds chat request bodies.
const maxMessageBody = 1024 * 1024 // 1MB

// MessagePipeline is the reply pipeline surface the handlers need.
type MessagePipeline interface {
	Exchange(ctx context.Context, text string, conversationID uuid.UUID) (*bot.ExchangeResult, error)
	Stream(ctx context.Context, text string, conversationID uuid.UUID) iter.Seq[bot.Event]
}

// MessageHandler serves the chat endpoints.
//
// Endpoints:
//   - POST /bot/v1/message        - blocking (JSON request/response)
//   - POST /bot/v1/message/stream - SSE word-by-word streaming
type MessageHandler struct {
	pipeline       MessagePipeline
	includeDetails bool
	logger         *slog.Logger
}

// NewMessageHandler creates a message handler.
func NewMessageHandler(pipeline MessagePipeline, includeDetails bool, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{pipeline: pipeline, includeDetails: includeDetails, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *MessageHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /bot/v1/message", h.send)
	mux.HandleFunc("POST /bot/v1/message/stream", h.stream)
}

type messageRequest struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversationId"`
}

type messageResponse struct {
	Success        bool   `json:"success"`
	ConversationID string `json:"conversationId"`
	BotMessage     string `json:"botMessage"`
}

// send handles the blocking chat exchange.
func (h *MessageHandler) send(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "", h.logger)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, bot.EmptyMessage, "", h.logger)
		return
	}

	conversationID := uuid.Nil
	if req.ConversationID != "" {
		parsed, err := uuid.Parse(req.ConversationID)
		if err != nil {
			// A syntactically invalid id can never match a conversation.
			writeError(w, http.StatusNotFound, bot.NotFoundMessage, "", h.logger)
			return
		}
		conversationID = parsed
	}

	res, err := h.pipeline.Exchange(r.Context(), req.Text, conversationID)
	if err != nil {
		switch {
		case errors.Is(err, bot.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, bot.EmptyMessage, "", h.logger)
		case errors.Is(err, conversation.ErrNotFound):
			writeError(w, http.StatusNotFound, bot.NotFoundMessage, "", h.logger)
		default:
			h.logger.Error("message exchange failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error", h.details(err), h.logger)
		}
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Success:        true,
		ConversationID: res.ConversationID.String(),
		BotMessage:     res.BotMessage,
	}, h.logger)
}

// stream handles the SSE chat exchange. Request validation happens before
// the SSE channel is committed so malformed requests still get proper HTTP
// status codes; everything after the first frame is reported in-stream.
func (h *MessageHandler) stream(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "", h.logger)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, bot.EmptyMessage, "", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	conversationID := uuid.Nil
	if req.ConversationID != "" {
		parsed, err := uuid.Parse(req.ConversationID)
		if err != nil {
			_ = writeFrame(w, flusher, bot.ErrorEvent{
				Type:    bot.EventError,
				Message: bot.NotFoundMessage,
			})
			return
		}
		conversationID = parsed
	}

	ctx := r.Context()
	h.logger.Debug("SSE stream started", "conversation_id", req.ConversationID)

	for ev := range h.pipeline.Stream(ctx, req.Text, conversationID) {
		if err := writeFrame(w, flusher, ev); err != nil {
			// Write failure usually means the client disconnected.
			h.logger.Debug("failed to write stream frame", "error", err)
			return
		}
	}

	h.logger.Debug("SSE stream completed")
}

func (h *MessageHandler) details(err error) string {
	if !h.includeDetails {
		return ""
	}
	return err.Error()
}

// writeFrame writes a single SSE frame. The event type discriminator lives
// inside the JSON payload, so frames carry only a data line:
// "data: <json>\n\n".
func writeFrame(w io.Writer, flusher http.Flusher, ev bot.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	flusher.Flush()
	return nil
}
