package notebook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCells() []Cell {
	contents := []string{
		"import os",
		"# setup",
		"x = 1  # TODO fix this",
		"print(x)",
		"done",
	}
	cells := make([]Cell, len(contents))
	for i, c := range contents {
		cells[i] = Cell{Index: i, ID: string(rune('a' + i)), Kind: KindCode, Content: c}
	}
	return cells
}

func TestResolveByContains(t *testing.T) {
	idx, err := Resolve(testCells(), Query{Mode: ByContains, Contains: "TODO"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestResolveByPosition(t *testing.T) {
	idx, err := Resolve(testCells(), Query{Mode: ByPosition, Position: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	_, err = Resolve(testCells(), Query{Mode: ByPosition, Position: 99}, nil)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestResolveByID(t *testing.T) {
	idx, err := Resolve(testCells(), Query{Mode: ByID, ID: "d"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	_, err = Resolve(testCells(), Query{Mode: ByID, ID: "zz"}, nil)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestResolveByMatch(t *testing.T) {
	idx, err := Resolve(testCells(), Query{Mode: ByMatch, Match: `print\(\w\)`}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	_, err = Resolve(testCells(), Query{Mode: ByMatch, Match: "("}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMatch)
}

func TestResolveFirstMatchWins(t *testing.T) {
	cells := testCells()
	// "x" appears in cells 2 and 3; the scan is canonical, index 2 wins.
	idx, err := Resolve(cells, Query{Mode: ByContains, Contains: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestResolveLiveQueries(t *testing.T) {
	cells := testCells()
	live := &LiveContext{ActiveIndex: 1, Selected: map[int]bool{4: true}}

	idx, err := Resolve(cells, Query{Mode: ByActive}, live)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = Resolve(cells, Query{Mode: BySelected}, live)
	require.NoError(t, err)
	assert.Equal(t, 4, idx)

	// Stored documents have no live context; this is a shape error, not a
	// no-match.
	_, err = Resolve(cells, Query{Mode: ByActive}, nil)
	assert.ErrorIs(t, err, ErrLiveContextRequired)
	_, err = Resolve(cells, Query{Mode: BySelected}, nil)
	assert.ErrorIs(t, err, ErrLiveContextRequired)
}

func TestDecodeQuery(t *testing.T) {
	q, err := DecodeQuery(json.RawMessage(`{"position": 2}`))
	require.NoError(t, err)
	assert.Equal(t, Query{Mode: ByPosition, Position: 2}, q)

	q, err = DecodeQuery(json.RawMessage(`{"contains": "TODO"}`))
	require.NoError(t, err)
	assert.Equal(t, Query{Mode: ByContains, Contains: "TODO"}, q)

	q, err = DecodeQuery(json.RawMessage(`{"active": true}`))
	require.NoError(t, err)
	assert.Equal(t, ByActive, q.Mode)

	_, err = DecodeQuery(json.RawMessage(`{}`))
	assert.Error(t, err)

	_, err = DecodeQuery(json.RawMessage(`{"position": 1, "id": "x"}`))
	assert.Error(t, err)

	_, err = DecodeQuery(json.RawMessage(`"position"`))
	assert.Error(t, err)
}
