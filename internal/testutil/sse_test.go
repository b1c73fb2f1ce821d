package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSSEFrames(t *testing.T) {
	body := "data: {\"type\":\"typing\",\"message\":\"AI is thinking...\"}\n\n" +
		"data: {\"type\":\"word\",\"word\":\"Hello \",\"isComplete\":false,\"wordIndex\":0}\n\n" +
		"data: {\"type\":\"word\",\"word\":\"there\",\"isComplete\":false,\"wordIndex\":1}\n\n" +
		"data: {\"type\":\"complete\",\"fullText\":\"Hello there\",\"isComplete\":true}\n\n"

	frames := ParseSSEFrames(t, body)
	require.Len(t, frames, 4)

	assert.Equal(t, "typing", frames[0].Type)
	assert.Equal(t, "AI is thinking...", frames[0].String("message"))

	words := FindAllFrames(frames, "word")
	require.Len(t, words, 2)
	assert.Equal(t, "Hello ", words[0].String("word"))
	assert.False(t, words[0].Bool("isComplete"))
	assert.Equal(t, 1, words[1].Int("wordIndex"))

	complete := FindFrame(frames, "complete")
	require.NotNil(t, complete)
	assert.Equal(t, "Hello there", complete.String("fullText"))
	assert.True(t, complete.Bool("isComplete"))

	assert.Nil(t, FindFrame(frames, "saved"))
}

func TestParseSSEFramesIgnoresComments(t *testing.T) {
	body := ": keep-alive\n\ndata: {\"type\":\"error\",\"message\":\"boom\"}\n\n"

	frames := ParseSSEFrames(t, body)
	require.Len(t, frames, 1)
	assert.Equal(t, "error", frames[0].Type)
	assert.Equal(t, "boom", frames[0].String("message"))
}
