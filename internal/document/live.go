package document

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/yacchin1205/jupyter-mynerva/internal/notebook"
)

// SeedCell is the construction-time shape of a cell, used when a document
// is opened from an existing notebook.
type SeedCell struct {
	ID      string
	Kind    notebook.CellKind
	Content string
	Outputs []RawOutput
}

// cellState is the mutable record backing one cell. Fingerprints are not
// stored here; they are recomputed from (Kind, Content) on every read.
type cellState struct {
	id      string
	kind    notebook.CellKind
	content string
	outputs []RawOutput
}

// Live is the accessor over the currently open document. It owns the cell
// sequence, the active/selected cursor, and the captured outputs, and it is
// the only place mutations happen. All mutations verify the caller's
// fingerprint first; a mismatch rejects without touching the cell.
type Live struct {
	mu       sync.Mutex
	key      string
	cells    []cellState
	active   int
	selected map[int]bool
	runner   Runner
}

// NewLive opens a document. key identifies the document for approval
// scoping (typically its path); seed may be empty for a fresh notebook.
func NewLive(key string, seed []SeedCell, runner Runner) *Live {
	l := &Live{key: key, selected: make(map[int]bool), runner: runner}
	for _, s := range seed {
		id := s.ID
		if id == "" {
			id = uuid.NewString()
		}
		l.cells = append(l.cells, cellState{id: id, kind: s.Kind, content: s.Content, outputs: s.Outputs})
	}
	return l
}

func (l *Live) Key() string { return l.key }

// SetActive moves the active-cell cursor, clamping to the document bounds.
func (l *Live) SetActive(index int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = clamp(index, len(l.cells))
}

// ActiveIndex reports the current cursor position.
func (l *Live) ActiveIndex() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// SetSelected replaces the selection set.
func (l *Live) SetSelected(indices []int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = make(map[int]bool, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(l.cells) {
			l.selected[i] = true
		}
	}
}

// snapshot materializes the cell sequence with indices and fresh
// fingerprints. Callers hold l.mu.
func (l *Live) snapshot() []notebook.Cell {
	cells := make([]notebook.Cell, len(l.cells))
	for i, c := range l.cells {
		cells[i] = notebook.Cell{
			Index:       i,
			ID:          c.id,
			Kind:        c.kind,
			Content:     c.content,
			Fingerprint: notebook.Fingerprint(c.kind, c.content),
		}
	}
	return cells
}

func (l *Live) liveContext() *notebook.LiveContext {
	sel := make(map[int]bool, len(l.selected))
	for k, v := range l.selected {
		sel[k] = v
	}
	return &notebook.LiveContext{ActiveIndex: l.active, Selected: sel}
}

func (l *Live) Toc() ([]notebook.TocEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return notebook.Toc(l.snapshot()), nil
}

func (l *Live) Section(q notebook.Query) ([]notebook.Cell, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cells := l.snapshot()
	idx, err := notebook.Resolve(cells, q, l.liveContext())
	if err != nil {
		return nil, err
	}
	return notebook.Section(cells, idx), nil
}

func (l *Live) Cells(q notebook.Query, count int) ([]notebook.Cell, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cells := l.snapshot()
	idx, err := notebook.Resolve(cells, q, l.liveContext())
	if err != nil {
		return nil, err
	}
	return sliceFrom(cells, idx, count), nil
}

func (l *Live) Output(q notebook.Query) ([]notebook.Output, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, err := notebook.Resolve(l.snapshot(), q, l.liveContext())
	if err != nil {
		return nil, err
	}
	return outputsOf(l.cells[idx], idx)
}

// InsertCell places a new cell immediately after the resolved anchor (or at
// the end) and moves the cursor to it.
func (l *Live) InsertCell(pos notebook.Query, atEnd bool, kind notebook.CellKind, content string) (notebook.Cell, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	insertAt := len(l.cells)
	if !atEnd {
		idx, err := notebook.Resolve(l.snapshot(), pos, l.liveContext())
		if err != nil {
			return notebook.Cell{}, err
		}
		insertAt = idx + 1
	}

	state := cellState{id: uuid.NewString(), kind: kind, content: content}
	l.cells = append(l.cells, cellState{})
	copy(l.cells[insertAt+1:], l.cells[insertAt:])
	l.cells[insertAt] = state
	l.active = insertAt

	return notebook.Cell{
		Index:       insertAt,
		ID:          state.id,
		Kind:        kind,
		Content:     content,
		Fingerprint: notebook.Fingerprint(kind, content),
	}, nil
}

// UpdateCell replaces a cell's content after verifying the caller saw the
// current state. The cursor follows the updated cell.
func (l *Live) UpdateCell(q notebook.Query, content, fingerprint string) (notebook.Cell, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, err := notebook.Resolve(l.snapshot(), q, l.liveContext())
	if err != nil {
		return notebook.Cell{}, err
	}
	cell := &l.cells[idx]
	if current := notebook.Fingerprint(cell.kind, cell.content); current != fingerprint {
		return notebook.Cell{}, fmt.Errorf("%w (cell %d)", ErrStaleCell, idx)
	}
	cell.content = content
	cell.outputs = nil
	l.active = idx

	return notebook.Cell{
		Index:       idx,
		ID:          cell.id,
		Kind:        cell.kind,
		Content:     content,
		Fingerprint: notebook.Fingerprint(cell.kind, content),
	}, nil
}

// DeleteCell removes a cell after the same staleness check, then clamps the
// cursor to the nearest surviving index.
func (l *Live) DeleteCell(q notebook.Query, fingerprint string) (CellRef, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, err := notebook.Resolve(l.snapshot(), q, l.liveContext())
	if err != nil {
		return CellRef{}, err
	}
	cell := l.cells[idx]
	if current := notebook.Fingerprint(cell.kind, cell.content); current != fingerprint {
		return CellRef{}, fmt.Errorf("%w (cell %d)", ErrStaleCell, idx)
	}
	l.cells = append(l.cells[:idx], l.cells[idx+1:]...)
	l.selected = make(map[int]bool)
	l.active = clamp(idx, len(l.cells))

	return CellRef{Index: idx, ID: cell.id}, nil
}

// ExecuteCell runs a code cell to completion through the runner and stores
// the captured outputs on the cell.
func (l *Live) ExecuteCell(ctx context.Context, q notebook.Query) (CellRef, error) {
	l.mu.Lock()
	idx, err := notebook.Resolve(l.snapshot(), q, l.liveContext())
	if err != nil {
		l.mu.Unlock()
		return CellRef{}, err
	}
	cell := l.cells[idx]
	if cell.kind != notebook.KindCode {
		l.mu.Unlock()
		return CellRef{}, fmt.Errorf("%w (cell %d is %s)", ErrNotCodeCell, idx, cell.kind)
	}
	if l.runner == nil {
		l.mu.Unlock()
		return CellRef{}, fmt.Errorf("no execution backend attached")
	}
	code := cell.content
	l.mu.Unlock()

	// Execution blocks on the kernel; do not hold the lock across it.
	outputs, err := l.runner.Run(ctx, code)
	if err != nil {
		return CellRef{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// The document may have shifted during execution; relocate by ID.
	for i := range l.cells {
		if l.cells[i].id == cell.id {
			l.cells[i].outputs = outputs
			l.active = i
			return CellRef{Index: i, ID: cell.id}, nil
		}
	}
	return CellRef{}, fmt.Errorf("%w: cell %s was removed during execution", notebook.ErrNoMatch, cell.id)
}

func outputsOf(c cellState, idx int) ([]notebook.Output, error) {
	if c.kind != notebook.KindCode {
		return nil, fmt.Errorf("%w (cell %d is %s)", ErrNotCodeCell, idx, c.kind)
	}
	if len(c.outputs) == 0 {
		return nil, fmt.Errorf("%w (cell %d)", ErrNoOutputs, idx)
	}
	return ExtractOutputs(c.outputs), nil
}

func sliceFrom(cells []notebook.Cell, start, count int) []notebook.Cell {
	end := len(cells)
	if count > 0 && start+count < end {
		end = start + count
	}
	return cells[start:end]
}

func clamp(i, length int) int {
	if length == 0 {
		return 0
	}
	if i >= length {
		return length - 1
	}
	if i < 0 {
		return 0
	}
	return i
}
