package action

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawBatch(entries ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		out[i] = json.RawMessage(e)
	}
	return out
}

func TestValidateAcceptsWellFormedBatch(t *testing.T) {
	res := Validate(rawBatch(
		`{"kind": "getToc"}`,
		`{"kind": "getCells", "query": {"position": 0}, "count": 3}`,
		`{"kind": "updateCell", "query": {"id": "c1"}, "content": "x", "fingerprint": "ab12"}`,
		`{"kind": "help", "action": "getToc"}`,
	))
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Correction)
}

func TestValidateMisspelledFieldSuggestsCorrection(t *testing.T) {
	res := Validate(rawBatch(
		`{"kind": "updateCell", "qeury": {"id": "c1"}, "content": "x", "fingerprint": "ab12"}`,
	))
	require.False(t, res.Valid)

	joined := strings.Join(res.Errors, "\n")
	assert.Contains(t, joined, `missing required field "query"`)
	assert.Contains(t, joined, `unexpected field "qeury"`)
	assert.Contains(t, joined, `did you mean "query"?`)
}

func TestValidateUnknownKindListsVocabulary(t *testing.T) {
	res := Validate(rawBatch(`{"kind": "dropTable"}`))
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], `unknown kind "dropTable"`)
	assert.Contains(t, res.Errors[0], "getToc")
	assert.Contains(t, res.Errors[0], "executeCell")
}

func TestValidateNonObjectEntry(t *testing.T) {
	res := Validate(rawBatch(`"getToc"`, `{"kind": "getToc"}`))
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "action 1")
	assert.Contains(t, res.Errors[0], "not a JSON object")
}

func TestValidateMissingKind(t *testing.T) {
	res := Validate(rawBatch(`{"query": {"position": 1}}`))
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], `missing "kind"`)

	res = Validate(rawBatch(`{"kind": 7}`))
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], `"kind" must be a string`)
}

func TestValidateNullRequiredField(t *testing.T) {
	res := Validate(rawBatch(`{"kind": "getSection", "query": null}`))
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], `missing required field "query"`)
}

func TestValidateCollectsAcrossBatch(t *testing.T) {
	res := Validate(rawBatch(
		`{"kind": "nope"}`,
		`{"kind": "deleteCell", "query": {"id": "a"}}`,
		`{"kind": "getToc", "extra": 1}`,
	))
	require.False(t, res.Valid)
	assert.Len(t, res.Errors, 3)

	// One correction message carries everything, framed for replay.
	assert.True(t, strings.HasPrefix(res.Correction, correctionHeader))
	assert.True(t, strings.HasSuffix(res.Correction, correctionFooter))
	for _, e := range res.Errors {
		assert.Contains(t, res.Correction, e)
	}
}

func TestValidateFuzzyMatchBySubstring(t *testing.T) {
	// "fingerprints" contains "fingerprint".
	res := Validate(rawBatch(
		`{"kind": "deleteCell", "query": {"id": "a"}, "fingerprints": "ab"}`,
	))
	require.False(t, res.Valid)
	joined := strings.Join(res.Errors, "\n")
	assert.Contains(t, joined, `did you mean "fingerprint"?`)
}

func TestValidateFuzzyMatchCaseInsensitive(t *testing.T) {
	res := Validate(rawBatch(
		`{"kind": "getCells", "query": {"position": 0}, "Count": 2}`,
	))
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], `did you mean "count"?`)
}

func TestSpec(t *testing.T) {
	req, opt, ok := Spec(KindGetCellsAt)
	require.True(t, ok)
	assert.Equal(t, []string{"path", "query"}, req)
	assert.Equal(t, []string{"count"}, opt)

	_, _, ok = Spec(Kind("bogus"))
	assert.False(t, ok)
}
