// Package notebook provides the in-memory model of a notebook document:
// ordered cells, execution outputs, derived tables of contents, and the
// query descriptors used to locate cells. The package is purely data and
// pure functions; ownership and mutation of a document live in
// internal/document.
package notebook

import "strings"

// CellKind identifies the content type of a cell.
type CellKind string

const (
	KindCode     CellKind = "code"
	KindMarkdown CellKind = "markdown"
	KindRaw      CellKind = "raw"
)

// ValidKind reports whether k is one of the three recognized cell kinds.
func ValidKind(k CellKind) bool {
	switch k {
	case KindCode, KindMarkdown, KindRaw:
		return true
	}
	return false
}

// Cell is one ordered unit of a notebook document. Index is positional and
// shifts on insert/delete; ID is stable for the lifetime of the cell.
// Fingerprint is recomputed from (Kind, Content) on every read and is never
// persisted.
type Cell struct {
	Index       int      `json:"index"`
	ID          string   `json:"id"`
	Kind        CellKind `json:"kind"`
	Content     string   `json:"content"`
	Fingerprint string   `json:"fingerprint"`
}

// Output is one captured execution result of a code cell.
type Output struct {
	Kind string         `json:"outputKind"`
	Text string         `json:"text,omitempty"`
	Data map[string]any `json:"structuredData,omitempty"`
}

// TocEntry is one heading derived from a markdown cell. Entries are
// recomputed per query and never stored.
type TocEntry struct {
	Level     int    `json:"level"`
	Text      string `json:"text"`
	CellIndex int    `json:"cellIndex"`
	CellID    string `json:"cellId"`
}

// HeadingOf parses the first line of a markdown cell's content as an ATX
// heading. It returns (level, text, true) when the line starts with one to
// six '#' characters followed by a space, and ok=false otherwise.
func HeadingOf(c Cell) (level int, text string, ok bool) {
	if c.Kind != KindMarkdown {
		return 0, "", false
	}
	line := c.Content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimRight(line, "\r")
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n < 1 || n > 6 || n >= len(line) || line[n] != ' ' {
		return 0, "", false
	}
	return n, strings.TrimSpace(line[n+1:]), true
}

// Toc derives the table of contents from cells, in document order. Cells
// without a recognizable heading are skipped.
func Toc(cells []Cell) []TocEntry {
	entries := make([]TocEntry, 0, 8)
	for _, c := range cells {
		level, text, ok := HeadingOf(c)
		if !ok {
			continue
		}
		entries = append(entries, TocEntry{
			Level:     level,
			Text:      text,
			CellIndex: c.Index,
			CellID:    c.ID,
		})
	}
	return entries
}

// Section returns the span of cells forming the section anchored at start.
// If the anchor cell is not itself a heading, the section is just that cell.
// Otherwise the section runs from the anchor through every following cell
// until one with a heading of equal or higher rank (level <= anchor level)
// is encountered, exclusive, or the document ends.
func Section(cells []Cell, start int) []Cell {
	if start < 0 || start >= len(cells) {
		return nil
	}
	anchorLevel, _, isHeading := HeadingOf(cells[start])
	if !isHeading {
		return []Cell{cells[start]}
	}
	end := len(cells)
	for i := start + 1; i < len(cells); i++ {
		if level, _, ok := HeadingOf(cells[i]); ok && level <= anchorLevel {
			end = i
			break
		}
	}
	return cells[start:end]
}
