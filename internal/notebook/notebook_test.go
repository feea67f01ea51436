package notebook

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func headingCells() []Cell {
	mk := func(i int, kind CellKind, content string) Cell {
		return Cell{Index: i, ID: string(rune('a' + i)), Kind: kind, Content: content}
	}
	return []Cell{
		mk(0, KindMarkdown, "# A"),
		mk(1, KindCode, "a()"),
		mk(2, KindMarkdown, "## B\nbody text"),
		mk(3, KindCode, "b()"),
		mk(4, KindMarkdown, "# C"),
	}
}

func TestToc(t *testing.T) {
	got := Toc(headingCells())
	want := []TocEntry{
		{Level: 1, Text: "A", CellIndex: 0, CellID: "a"},
		{Level: 2, Text: "B", CellIndex: 2, CellID: "c"},
		{Level: 1, Text: "C", CellIndex: 4, CellID: "e"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Toc mismatch (-want +got):\n%s", diff)
	}
}

func TestTocSkipsNonHeadings(t *testing.T) {
	cells := []Cell{
		{Index: 0, Kind: KindMarkdown, Content: "plain paragraph"},
		{Index: 1, Kind: KindCode, Content: "# not a heading, a comment"},
		{Index: 2, Kind: KindMarkdown, Content: "####### seven is too deep"},
		{Index: 3, Kind: KindMarkdown, Content: "#nospace"},
	}
	assert.Empty(t, Toc(cells))
}

func TestSectionStopsAtSameLevel(t *testing.T) {
	cells := headingCells()

	// H1 "A" runs up to (not including) H1 "C", crossing the nested H2.
	sec := Section(cells, 0)
	indices := make([]int, len(sec))
	for i, c := range sec {
		indices[i] = c.Index
	}
	assert.Equal(t, []int{0, 1, 2, 3}, indices)

	// H2 "B" stops at the next H1.
	sec = Section(cells, 2)
	indices = indices[:0]
	for _, c := range sec {
		indices = append(indices, c.Index)
	}
	assert.Equal(t, []int{2, 3}, indices)
}

func TestSectionNonHeadingAnchor(t *testing.T) {
	cells := headingCells()
	sec := Section(cells, 1)
	assert.Len(t, sec, 1)
	assert.Equal(t, 1, sec[0].Index)
}

func TestSectionRunsToEnd(t *testing.T) {
	cells := headingCells()
	sec := Section(cells, 4)
	assert.Len(t, sec, 1)
	assert.Equal(t, 4, sec[0].Index)
}

func TestHeadingOf(t *testing.T) {
	_, _, ok := HeadingOf(Cell{Kind: KindCode, Content: "# comment"})
	assert.False(t, ok)

	level, text, ok := HeadingOf(Cell{Kind: KindMarkdown, Content: "### Deep  \nrest"})
	assert.True(t, ok)
	assert.Equal(t, 3, level)
	assert.Equal(t, "Deep", text)
}
