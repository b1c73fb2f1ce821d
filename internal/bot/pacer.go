package bot

import (
	"context"
	"iter"
	"strings"
	"time"
)

// Pace yields the reply word by word, then one terminal complete event
// carrying the byte-identical full text.
//
// Splitting is on single spaces only: runs of spaces produce empty tokens
// and an empty text produces exactly one empty token, so the client can
// always rebuild the original text from the word events alone. Each token
// except the last keeps a trailing space. The pacer waits delay between
// emissions and abandons the sequence silently when ctx is cancelled.
func Pace(ctx context.Context, fullText string, delay time.Duration) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if ctx.Err() != nil {
			return
		}
		words := strings.Split(fullText, " ")
		for i, word := range words {
			if i > 0 && !wait(ctx, delay) {
				return
			}
			token := word
			if i < len(words)-1 {
				token += " "
			}
			if !yield(newWordEvent(token, i)) {
				return
			}
		}
		if !wait(ctx, delay) {
			return
		}
		yield(newCompleteEvent(fullText))
	}
}

// wait sleeps for d unless ctx is cancelled first.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
