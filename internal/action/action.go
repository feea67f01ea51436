// Package action defines the structured operations a model may request
// against a notebook, the schema validation that turns raw model output into
// typed actions, and the parser that unwraps the model's response envelope.
//
// The vocabulary is closed: every kind is enumerated here and dispatch is by
// exhaustive switch, so adding a kind is a compile-time-visible change.
package action

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/yacchin1205/jupyter-mynerva/internal/notebook"
)

// Kind discriminates the closed action vocabulary.
type Kind string

// Read actions against the open notebook.
const (
	KindGetToc     Kind = "getToc"
	KindGetSection Kind = "getSection"
	KindGetCells   Kind = "getCells"
	KindGetOutput  Kind = "getOutput"
)

// Read actions against stored notebooks, scoped by path.
const (
	KindListFiles    Kind = "listFiles"
	KindGetTocAt     Kind = "getTocAt"
	KindGetSectionAt Kind = "getSectionAt"
	KindGetCellsAt   Kind = "getCellsAt"
	KindGetOutputAt  Kind = "getOutputAt"
)

// Write actions, open notebook only.
const (
	KindInsertCell  Kind = "insertCell"
	KindUpdateCell  Kind = "updateCell"
	KindDeleteCell  Kind = "deleteCell"
	KindExecuteCell Kind = "executeCell"
)

// Help actions; these bypass approval entirely.
const (
	KindListHelp Kind = "listHelp"
	KindHelp     Kind = "help"
)

// Family groups kinds by their approval and execution treatment.
type Family int

const (
	FamilyRead Family = iota
	FamilyWrite
	FamilyHelp
)

// Kinds lists every valid kind in a stable order, used for diagnostics.
func Kinds() []Kind {
	return []Kind{
		KindGetToc, KindGetSection, KindGetCells, KindGetOutput,
		KindListFiles, KindGetTocAt, KindGetSectionAt, KindGetCellsAt, KindGetOutputAt,
		KindInsertCell, KindUpdateCell, KindDeleteCell, KindExecuteCell,
		KindListHelp, KindHelp,
	}
}

// Family returns the approval family of k.
func (k Kind) Family() Family {
	switch k {
	case KindInsertCell, KindUpdateCell, KindDeleteCell, KindExecuteCell:
		return FamilyWrite
	case KindListHelp, KindHelp:
		return FamilyHelp
	default:
		return FamilyRead
	}
}

// Stored reports whether k targets a stored notebook file rather than the
// open document. Stored reads are approval-scoped by path.
func (k Kind) Stored() bool {
	switch k {
	case KindListFiles, KindGetTocAt, KindGetSectionAt, KindGetCellsAt, KindGetOutputAt:
		return true
	}
	return false
}

// NeedsApproval reports whether k enters the approval state machine. Help
// actions never do.
func (k Kind) NeedsApproval() bool {
	return k.Family() != FamilyHelp
}

// Action is one typed, validated operation. Which fields are meaningful
// depends on Kind; the schema table in schema.go is authoritative. ID is a
// synthetic identifier assigned at decode time so approval bookkeeping can
// key by identity instead of list position.
type Action struct {
	ID   string
	Kind Kind

	Query    notebook.Query
	HasQuery bool

	Count    int
	HasCount bool

	Path string

	// Insert placement: either a cell query or the document end.
	Position  notebook.Query
	AtEnd     bool
	CellKind  notebook.CellKind
	Content   string

	Fingerprint string

	// Help target (the "help" kind).
	Topic string

	// Raw preserves the wire form for result envelopes and logs.
	Raw json.RawMessage
}

// actionWire is the JSON shape shared by all kinds. Pointers distinguish
// absent from zero.
type actionWire struct {
	Kind        string          `json:"kind"`
	Query       json.RawMessage `json:"query"`
	Count       *int            `json:"count"`
	Path        *string         `json:"path"`
	Position    json.RawMessage `json:"position"`
	CellKind    *string         `json:"cellKind"`
	Content     *string         `json:"content"`
	Fingerprint *string         `json:"fingerprint"`
	Topic       *string         `json:"action"`
}

// Decode converts one raw, schema-valid action into its typed form and
// assigns it a fresh identifier. Call Validate first; Decode still reports
// malformed sub-values (an unparseable query, an unknown cell kind) since
// the schema check only sees field presence.
func Decode(raw json.RawMessage) (Action, error) {
	var w actionWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Action{}, err
	}
	a := Action{
		ID:   uuid.NewString(),
		Kind: Kind(w.Kind),
		Raw:  raw,
	}
	if w.Query != nil {
		q, err := notebook.DecodeQuery(w.Query)
		if err != nil {
			return Action{}, err
		}
		a.Query = q
		a.HasQuery = true
	}
	if w.Count != nil {
		a.Count = *w.Count
		a.HasCount = true
	}
	if w.Path != nil {
		a.Path = *w.Path
	}
	if w.Position != nil {
		var end string
		if err := json.Unmarshal(w.Position, &end); err == nil {
			if end != "end" {
				return Action{}, errBadPosition(end)
			}
			a.AtEnd = true
		} else {
			q, err := notebook.DecodeQuery(w.Position)
			if err != nil {
				return Action{}, err
			}
			a.Position = q
		}
	}
	if w.CellKind != nil {
		ck := notebook.CellKind(*w.CellKind)
		if ck != notebook.KindCode && ck != notebook.KindMarkdown {
			return Action{}, errBadCellKind(*w.CellKind)
		}
		a.CellKind = ck
	}
	if w.Content != nil {
		a.Content = *w.Content
	}
	if w.Fingerprint != nil {
		a.Fingerprint = *w.Fingerprint
	}
	if w.Topic != nil {
		a.Topic = *w.Topic
	}
	return a, nil
}

// DecodeAll decodes a batch in order. A single undecodable entry fails the
// whole batch; the caller folds that into the validation retry path.
func DecodeAll(raws []json.RawMessage) ([]Action, error) {
	out := make([]Action, 0, len(raws))
	for _, raw := range raws {
		a, err := Decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
