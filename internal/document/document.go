// Package document provides uniform access to a notebook document, whether
// it is the currently open, mutable document or a read-only notebook loaded
// from disk. Reads share one code path; mutations exist only on the live
// implementation and are gated by a fingerprint compare acting as an
// optimistic lock.
package document

import (
	"context"
	"errors"

	"github.com/yacchin1205/jupyter-mynerva/internal/notebook"
)

var (
	// ErrStaleCell is the optimistic-lock rejection: the caller's
	// fingerprint no longer matches the cell. The cell is left untouched;
	// the caller must re-read.
	ErrStaleCell = errors.New("cell changed since last read: stale fingerprint")

	// ErrReadOnly marks mutations attempted against a stored notebook.
	ErrReadOnly = errors.New("document is read-only")

	// ErrNotCodeCell and ErrNoOutputs distinguish the two ways an output
	// read can fail.
	ErrNotCodeCell = errors.New("cell is not a code cell")
	ErrNoOutputs   = errors.New("cell has no outputs")
)

// CellRef identifies a cell after a mutation that does not return content.
type CellRef struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
}

// Runner executes a code cell to completion and returns its captured
// outputs. It is the document layer's only execution dependency; the real
// implementation talks to a kernel, tests use a fake.
type Runner interface {
	Run(ctx context.Context, code string) ([]RawOutput, error)
}

// Accessor is the capability set shared by the live and stored document
// implementations. Stored documents answer reads and reject every mutation
// with ErrReadOnly; queries that need UI state fail there with
// notebook.ErrLiveContextRequired.
type Accessor interface {
	// Key identifies the document for approval scoping. It changes when a
	// different document becomes active, not when content changes.
	Key() string

	Toc() ([]notebook.TocEntry, error)
	Section(q notebook.Query) ([]notebook.Cell, error)
	// Cells returns cells from the resolved start index. count <= 0 means
	// "through the end of the document".
	Cells(q notebook.Query, count int) ([]notebook.Cell, error)
	Output(q notebook.Query) ([]notebook.Output, error)

	// InsertCell places a new cell after the resolved anchor, or appends
	// when atEnd is set.
	InsertCell(pos notebook.Query, atEnd bool, kind notebook.CellKind, content string) (notebook.Cell, error)
	UpdateCell(q notebook.Query, content, fingerprint string) (notebook.Cell, error)
	DeleteCell(q notebook.Query, fingerprint string) (CellRef, error)
	ExecuteCell(ctx context.Context, q notebook.Query) (CellRef, error)
}
