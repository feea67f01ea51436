package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlainEnvelope(t *testing.T) {
	env, derr := Parse(`{"messages": [{"role": "assistant", "content": "hi"}], "actions": [{"kind": "getToc"}]}`)
	require.Nil(t, derr)
	require.Len(t, env.Messages, 1)
	assert.Equal(t, "hi", env.Messages[0].Content)
	require.Len(t, env.Actions, 1)
}

func TestParseStripsTaggedFence(t *testing.T) {
	raw := "```json\n{\"messages\": [], \"actions\": [{\"kind\": \"getToc\"}]}\n```"
	env, derr := Parse(raw)
	require.Nil(t, derr)
	assert.Len(t, env.Actions, 1)
}

func TestParseStripsSingleLineTaggedFence(t *testing.T) {
	// No newline after the fence marker leaves the tag glued to the body.
	raw := "```json{\"messages\": [], \"actions\": [{\"kind\": \"getToc\"}]}```"
	env, derr := Parse(raw)
	require.Nil(t, derr)
	assert.Len(t, env.Actions, 1)
}

func TestParseStripsBareFence(t *testing.T) {
	raw := "```\n{\"actions\": []}\n```"
	env, derr := Parse(raw)
	require.Nil(t, derr)
	assert.Empty(t, env.Actions)
}

func TestParseDecodeErrorKeepsRawText(t *testing.T) {
	raw := "Sure! I'll fetch the table of contents for you."
	_, derr := Parse(raw)
	require.NotNil(t, derr)
	assert.Equal(t, raw, derr.Raw)
	assert.NotEmpty(t, derr.Detail)
}

func TestParseToleratesMissingEnvelopeFields(t *testing.T) {
	env, derr := Parse(`{}`)
	require.Nil(t, derr)
	assert.NotNil(t, env.Messages)
	assert.NotNil(t, env.Actions)
	assert.Empty(t, env.Messages)
	assert.Empty(t, env.Actions)
}

func TestParseToleratesMisShapedFields(t *testing.T) {
	// A non-list "actions" is coerced to empty, not a decode error.
	env, derr := Parse(`{"messages": "oops", "actions": 42}`)
	require.Nil(t, derr)
	assert.Empty(t, env.Messages)
	assert.Empty(t, env.Actions)
}

func TestJoinMessages(t *testing.T) {
	got := JoinMessages([]ChatText{
		{Role: "assistant", Content: "first"},
		{Role: "assistant", Content: "  "},
		{Role: "assistant", Content: "second"},
	})
	assert.Equal(t, "first\n\nsecond", got)
	assert.Equal(t, "", JoinMessages(nil))
}
