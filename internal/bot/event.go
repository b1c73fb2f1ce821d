package bot

// EventType discriminates stream events; it travels as the "type" field of
// each JSON frame.
type EventType string

const (
	EventTyping   EventType = "typing"
	EventWord     EventType = "word"
	EventComplete EventType = "complete"
	EventSaved    EventType = "saved"
	EventWarning  EventType = "warning"
	EventError    EventType = "error"
)

// Event is implemented by every stream event payload. Marshal the concrete
// value to get the wire frame; the Type field is always populated.
type Event interface {
	Kind() EventType
}

// TypingEvent announces that a reply is being generated.
type TypingEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

func (TypingEvent) Kind() EventType { return EventTyping }

// WordEvent carries one paced token. Every token except the last keeps its
// trailing space so the client can concatenate words verbatim.
type WordEvent struct {
	Type       EventType `json:"type"`
	Word       string    `json:"word"`
	IsComplete bool      `json:"isComplete"`
	WordIndex  int       `json:"wordIndex"`
}

func (WordEvent) Kind() EventType { return EventWord }

// CompleteEvent terminates the paced portion of a stream and repeats the
// full reply text, byte for byte.
type CompleteEvent struct {
	Type       EventType `json:"type"`
	FullText   string    `json:"fullText"`
	IsComplete bool      `json:"isComplete"`
}

func (CompleteEvent) Kind() EventType { return EventComplete }

// SavedEvent reports that the exchange was persisted.
type SavedEvent struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversationId"`
	Message        string    `json:"message"`
}

func (SavedEvent) Kind() EventType { return EventSaved }

// WarningEvent reports a non-fatal failure after the reply was delivered.
type WarningEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

func (WarningEvent) Kind() EventType { return EventWarning }

// ErrorEvent terminates a stream that cannot proceed. Details is only
// populated outside production.
type ErrorEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (ErrorEvent) Kind() EventType { return EventError }

func newTypingEvent() TypingEvent {
	return TypingEvent{Type: EventTyping, Message: ThinkingMessage}
}

func newWordEvent(word string, index int) WordEvent {
	return WordEvent{Type: EventWord, Word: word, IsComplete: false, WordIndex: index}
}

func newCompleteEvent(fullText string) CompleteEvent {
	return CompleteEvent{Type: EventComplete, FullText: fullText, IsComplete: true}
}

func newSavedEvent(conversationID string) SavedEvent {
	return SavedEvent{Type: EventSaved, ConversationID: conversationID, Message: SavedMessage}
}

func newWarningEvent(message string) WarningEvent {
	return WarningEvent{Type: EventWarning, Message: message}
}

func newErrorEvent(message, details string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: message, Details: details}
}
