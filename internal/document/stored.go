package document

import (
	"context"
	"strconv"

	"github.com/yacchin1205/jupyter-mynerva/internal/notebook"
)

// Stored is the read-only accessor over a notebook loaded from disk. It has
// no cursor, so active/selected queries fail with
// notebook.ErrLiveContextRequired, and every mutation returns ErrReadOnly.
type Stored struct {
	key   string
	cells []cellState
}

// NewStored wraps an already-loaded notebook. key is the path the notebook
// was read from.
func NewStored(key string, seed []SeedCell) *Stored {
	s := &Stored{key: key}
	for i, c := range seed {
		id := c.ID
		if id == "" {
			id = generatedID(i)
		}
		s.cells = append(s.cells, cellState{id: id, kind: c.Kind, content: c.Content, outputs: c.Outputs})
	}
	return s
}

func generatedID(i int) string {
	return "cell-" + strconv.Itoa(i)
}

func (s *Stored) Key() string { return s.key }

func (s *Stored) snapshot() []notebook.Cell {
	cells := make([]notebook.Cell, len(s.cells))
	for i, c := range s.cells {
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

func (s *Stored) Toc() ([]notebook.TocEntry, error) {
	return notebook.Toc(s.snapshot()), nil
}

func (s *Stored) Section(q notebook.Query) ([]notebook.Cell, error) {
	cells := s.snapshot()
	idx, err := notebook.Resolve(cells, q, nil)
	if err != nil {
		return nil, err
	}
	return notebook.Section(cells, idx), nil
}

func (s *Stored) Cells(q notebook.Query, count int) ([]notebook.Cell, error) {
	cells := s.snapshot()
	idx, err := notebook.Resolve(cells, q, nil)
	if err != nil {
		return nil, err
	}
	return sliceFrom(cells, idx, count), nil
}

func (s *Stored) Output(q notebook.Query) ([]notebook.Output, error) {
	idx, err := notebook.Resolve(s.snapshot(), q, nil)
	if err != nil {
		return nil, err
	}
	return outputsOf(s.cells[idx], idx)
}

func (s *Stored) InsertCell(notebook.Query, bool, notebook.CellKind, string) (notebook.Cell, error) {
	return notebook.Cell{}, ErrReadOnly
}

func (s *Stored) UpdateCell(notebook.Query, string, string) (notebook.Cell, error) {
	return notebook.Cell{}, ErrReadOnly
}

func (s *Stored) DeleteCell(notebook.Query, string) (CellRef, error) {
	return CellRef{}, ErrReadOnly
}

func (s *Stored) ExecuteCell(context.Context, notebook.Query) (CellRef, error) {
	return CellRef{}, ErrReadOnly
}
