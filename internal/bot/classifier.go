// Package bot implements the reply pipeline: creator-question classifier,
// canned-response table, upstream completion with a fixed fallback, and the
// word-by-word response pacer used for streaming.
package bot

import "strings"

// Reply strings pinned by the public API.
const (
	// CreatorReply answers any question about who built the bot.
	CreatorReply = "I was created by Nova AI team 🤖💻"

	// BusyFallback replaces the reply whenever the upstream AI fails.
	BusyFallback = "⚠️ The AI service is busy right now. Please try again later."

	// ThinkingMessage is the typing event payload.
	ThinkingMessage = "AI is thinking..."

	// SavedMessage confirms persistence on the stream.
	SavedMessage = "Conversation saved successfully"

	// NotSavedMessage warns that the reply was delivered but not persisted.
	NotSavedMessage = "Response generated but not saved to database"

	// NotFoundMessage reports an unknown conversation id.
	NotFoundMessage = "Conversation not found"
)

// creatorPhrases trigger CreatorReply when contained in the lower-cased
// message. Includes Romanized-Hindi variants with and without a space
// before the question mark.
var creatorPhrases = []string{
	"who created you",
	"who made you",
	"who built you",
	"who developed you",
	"who is your creator",
	"who is your developer",
	"who designed you",
	"who programmed you",
	"created by",
	"made by",
	"developed by",
	"aapko kisne bnaya hai?",
	"aapko kisne bnaya hai ?",
	"aap ko bnane wala kon hai ?",
	"aap ko bnane wala kon hai?",
}

// IsCreatorQuestion reports whether the message asks who built the bot.
// Matching is case-insensitive substring containment, so the phrases fire
// even when embedded in a longer sentence.
func IsCreatorQuestion(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range creatorPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
