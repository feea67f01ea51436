package action

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChatText is one natural-language message inside a model reply envelope.
type ChatText struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Envelope is the decoded shape of a model reply: conversational text plus
// the raw action list, still unvalidated.
type Envelope struct {
	Messages []ChatText        `json:"messages"`
	Actions  []json.RawMessage `json:"actions"`
}

// DecodeError reports that a reply could not be decoded at all, as opposed
// to decoding into an invalid batch. Raw carries the original text so the
// caller can surface it verbatim once retries are spent.
type DecodeError struct {
	Detail string
	Raw    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("response is not a valid envelope: %s", e.Detail)
}

// Parse unwraps and decodes one raw model reply. Models habitually wrap
// JSON in a markdown code fence; exactly one leading and one trailing fence
// layer is stripped before decoding. Missing or mis-shaped envelope fields
// are coerced to empty lists rather than treated as errors; only failure to
// decode the envelope object itself is a DecodeError.
func Parse(raw string) (Envelope, *DecodeError) {
	text := strings.TrimSpace(raw)
	text = stripFence(text)

	var wire struct {
		Messages json.RawMessage `json:"messages"`
		Actions  json.RawMessage `json:"actions"`
	}
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return Envelope{}, &DecodeError{Detail: err.Error(), Raw: raw}
	}

	env := Envelope{Messages: []ChatText{}, Actions: []json.RawMessage{}}
	if wire.Messages != nil {
		var msgs []ChatText
		if err := json.Unmarshal(wire.Messages, &msgs); err == nil {
			env.Messages = msgs
		}
	}
	if wire.Actions != nil {
		var acts []json.RawMessage
		if err := json.Unmarshal(wire.Actions, &acts); err == nil {
			env.Actions = acts
		}
	}
	return env, nil
}

// stripFence removes one layer of markdown code fencing. The opening fence
// may carry a language tag ("```json"); inner fences are left alone.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	rest := text[3:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		// Drop the fence line including any language tag.
		firstLine := strings.TrimSpace(rest[:i])
		if firstLine == "" || isFenceTag(firstLine) {
			rest = rest[i+1:]
		}
	} else {
		rest = strings.TrimSpace(rest)
		// Single-line fences can leave the language tag glued to the
		// payload ("```json{...}```").
		if j := strings.IndexAny(rest, "{["); j > 0 && isFenceTag(rest[:j]) {
			rest = rest[j:]
		}
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, "```")
	return strings.TrimSpace(rest)
}

// isFenceTag accepts a short alphanumeric language hint after the opening
// fence marker.
func isFenceTag(s string) bool {
	if len(s) > 16 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// JoinMessages concatenates the envelope's natural-language content in
// order, separated by blank lines. Empty content is skipped.
func JoinMessages(msgs []ChatText) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if s := strings.TrimSpace(m.Content); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}
