package action

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacchin1205/jupyter-mynerva/internal/notebook"
)

func TestDecodeAssignsStableID(t *testing.T) {
	a, err := Decode(json.RawMessage(`{"kind": "getToc"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)

	b, err := Decode(json.RawMessage(`{"kind": "getToc"}`))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID, "each decoded action gets its own identity")
}

func TestDecodeQueryAction(t *testing.T) {
	a, err := Decode(json.RawMessage(`{"kind": "getCells", "query": {"contains": "TODO"}, "count": 5}`))
	require.NoError(t, err)
	assert.Equal(t, KindGetCells, a.Kind)
	assert.True(t, a.HasQuery)
	assert.Equal(t, notebook.ByContains, a.Query.Mode)
	assert.True(t, a.HasCount)
	assert.Equal(t, 5, a.Count)
}

func TestDecodeInsertPosition(t *testing.T) {
	a, err := Decode(json.RawMessage(`{"kind": "insertCell", "position": "end", "cellKind": "code", "content": "x"}`))
	require.NoError(t, err)
	assert.True(t, a.AtEnd)
	assert.Equal(t, notebook.KindCode, a.CellKind)

	a, err = Decode(json.RawMessage(`{"kind": "insertCell", "position": {"id": "c2"}, "cellKind": "markdown", "content": "## T"}`))
	require.NoError(t, err)
	assert.False(t, a.AtEnd)
	assert.Equal(t, notebook.ByID, a.Position.Mode)

	_, err = Decode(json.RawMessage(`{"kind": "insertCell", "position": "top", "cellKind": "code", "content": "x"}`))
	assert.Error(t, err)

	_, err = Decode(json.RawMessage(`{"kind": "insertCell", "position": "end", "cellKind": "raw", "content": "x"}`))
	assert.Error(t, err, "raw cells cannot be inserted")
}

func TestDecodeRejectsMalformedQuery(t *testing.T) {
	_, err := Decode(json.RawMessage(`{"kind": "getSection", "query": {}}`))
	assert.Error(t, err)

	_, err = Decode(json.RawMessage(`{"kind": "getSection", "query": {"position": 1, "id": "x"}}`))
	assert.Error(t, err)
}

func TestDecodeAllFailsFast(t *testing.T) {
	_, err := DecodeAll(rawBatch(
		`{"kind": "getToc"}`,
		`{"kind": "getSection", "query": {}}`,
	))
	assert.Error(t, err)
}

func TestKindFamilies(t *testing.T) {
	assert.Equal(t, FamilyRead, KindGetOutput.Family())
	assert.Equal(t, FamilyRead, KindListFiles.Family())
	assert.Equal(t, FamilyWrite, KindUpdateCell.Family())
	assert.Equal(t, FamilyWrite, KindExecuteCell.Family())
	assert.Equal(t, FamilyHelp, KindHelp.Family())

	assert.True(t, KindGetTocAt.Stored())
	assert.False(t, KindGetToc.Stored())

	assert.False(t, KindListHelp.NeedsApproval())
	assert.True(t, KindDeleteCell.NeedsApproval())
}

func TestKindsMatchesSchema(t *testing.T) {
	for _, k := range Kinds() {
		_, _, ok := Spec(k)
		assert.True(t, ok, "kind %s missing from schema table", k)
	}
	assert.Len(t, Kinds(), len(schema))
}
