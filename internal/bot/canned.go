package bot

import "strings"

// cannedReplies maps exact normalized questions to fixed answers, checked
// after the creator classifier and before the upstream AI.
var cannedReplies = map[string]string{
	"what is your name?": "I'm Chatboat, your friendly AI assistant 🛳️🤖",
	"how are you?":       "I'm doing great! Thanks for asking 😄",
	"what can you do?":   "I can chat with you, answer questions, and help with tasks! 🧠✨",
}

// LookupCanned returns the canned reply for a message, if any. The lookup
// key is the trimmed, lower-cased message; it must match exactly.
func LookupCanned(text string) (string, bool) {
	reply, ok := cannedReplies[strings.ToLower(strings.TrimSpace(text))]
	return reply, ok
}
