package testutil

import (
	"bufio"
	"encoding/json"
	"strings"
	"testing"
)

// SSEFrame is one parsed frame from the chat stream. The stream carries
// bare "data:" lines whose JSON payload holds a "type" discriminator.
type SSEFrame struct {
	Type   string
	Fields map[string]any
	Raw    string
}

// String returns the named field as a string, or "" when absent or not
// a string.
func (f SSEFrame) String(key string) string {
	s, _ := f.Fields[key].(string)
	return s
}

// Bool returns the named field as a bool.
func (f SSEFrame) Bool(key string) bool {
	b, _ := f.Fields[key].(bool)
	return b
}

// Int returns the named field as an int. JSON numbers decode as float64.
func (f SSEFrame) Int(key string) int {
	n, _ := f.Fields[key].(float64)
	return int(n)
}

// ParseSSEFrames parses a chat stream response body into frames.
//
// Each frame is a single "data: <json>" line followed by a blank line;
// the stream never carries "event:" lines. Comment lines starting with
// ":" are ignored.
func ParseSSEFrames(t *testing.T, body string) []SSEFrame {
	t.Helper()

	var frames []SSEFrame
	scanner := bufio.NewScanner(strings.NewReader(body))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "data: "):
			raw := strings.TrimPrefix(line, "data: ")
			fields := make(map[string]any)
			if err := json.Unmarshal([]byte(raw), &fields); err != nil {
				t.Fatalf("SSE parse error at line %d: invalid JSON payload %q: %v", lineNum, raw, err)
			}
			kind, _ := fields["type"].(string)
			if kind == "" {
				t.Fatalf("SSE parse error at line %d: payload missing type discriminator: %q", lineNum, raw)
			}
			frames = append(frames, SSEFrame{Type: kind, Fields: fields, Raw: raw})

		case line == "" || strings.HasPrefix(line, ":"):
			// frame separator or comment

		default:
			t.Fatalf("SSE parse error at line %d: unexpected line %q", lineNum, line)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("SSE scan error: %v", err)
	}

	return frames
}

// FindFrame returns the first frame of the given type, or nil.
func FindFrame(frames []SSEFrame, kind string) *SSEFrame {
	for i := range frames {
		if frames[i].Type == kind {
			return &frames[i]
		}
	}
	return nil
}

// FindAllFrames returns every frame of the given type in stream order.
func FindAllFrames(frames []SSEFrame, kind string) []SSEFrame {
	var found []SSEFrame
	for _, f := range frames {
		if f.Type == kind {
			found = append(found, f)
		}
	}
	return found
}
