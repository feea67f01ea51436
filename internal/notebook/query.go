package notebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Resolution failures. ErrNoMatch means the query was well formed but no
// cell satisfied it; ErrLiveContextRequired means the query shape itself is
// unsupported against the given document (active/selected against a stored
// file). Callers branch on these, so they stay distinct.
var (
	ErrNoMatch             = errors.New("no cell matches query")
	ErrLiveContextRequired = errors.New("query requires a live document context")
)

// QueryMode discriminates the closed set of cell selectors.
type QueryMode string

const (
	ByPosition QueryMode = "position"
	ByID       QueryMode = "id"
	ByContains QueryMode = "contains"
	ByMatch    QueryMode = "match"
	ByActive   QueryMode = "active"
	BySelected QueryMode = "selected"
)

// Query locates exactly one cell. Exactly one discriminant is set; this is
// enforced at decode time, not left to resolution.
type Query struct {
	Mode     QueryMode
	Position int
	ID       string
	Contains string
	Match    string
}

// LiveContext carries the UI state only an open document has. A nil
// LiveContext marks a stored, read-only source.
type LiveContext struct {
	ActiveIndex int
	Selected    map[int]bool
}

// queryWire is the JSON shape of a query descriptor.
type queryWire struct {
	Position *int    `json:"position"`
	ID       *string `json:"id"`
	Contains *string `json:"contains"`
	Match    *string `json:"match"`
	Active   *bool   `json:"active"`
	Selected *bool   `json:"selected"`
}

// DecodeQuery converts a raw JSON value into a Query, rejecting descriptors
// with zero or multiple discriminant keys.
func DecodeQuery(raw json.RawMessage) (Query, error) {
	var w queryWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Query{}, fmt.Errorf("query is not an object: %w", err)
	}
	var q Query
	count := 0
	if w.Position != nil {
		q = Query{Mode: ByPosition, Position: *w.Position}
		count++
	}
	if w.ID != nil {
		q = Query{Mode: ByID, ID: *w.ID}
		count++
	}
	if w.Contains != nil {
		q = Query{Mode: ByContains, Contains: *w.Contains}
		count++
	}
	if w.Match != nil {
		q = Query{Mode: ByMatch, Match: *w.Match}
		count++
	}
	if w.Active != nil && *w.Active {
		q = Query{Mode: ByActive}
		count++
	}
	if w.Selected != nil && *w.Selected {
		q = Query{Mode: BySelected}
		count++
	}
	if count == 0 {
		return Query{}, fmt.Errorf("query must contain one of: position, id, contains, match, active, selected")
	}
	if count > 1 {
		return Query{}, fmt.Errorf("query must contain exactly one selector, found %d", count)
	}
	return q, nil
}

// String renders the query for error messages and logs.
func (q Query) String() string {
	switch q.Mode {
	case ByPosition:
		return fmt.Sprintf("position=%d", q.Position)
	case ByID:
		return "id=" + q.ID
	case ByContains:
		return "contains=" + quote(q.Contains)
	case ByMatch:
		return "match=" + quote(q.Match)
	case ByActive:
		return "active"
	case BySelected:
		return "selected"
	}
	return "invalid"
}

func quote(s string) string {
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return fmt.Sprintf("%q", s)
}

// Resolve locates the first cell matching q, scanning in index order.
// The scan order is canonical, so first-match-wins needs no tie break.
// live may be nil for stored documents; active/selected queries then fail
// with ErrLiveContextRequired rather than ErrNoMatch.
func Resolve(cells []Cell, q Query, live *LiveContext) (int, error) {
	switch q.Mode {
	case ByPosition:
		if q.Position >= 0 && q.Position < len(cells) {
			return q.Position, nil
		}
		return -1, fmt.Errorf("%w: %s (document has %d cells)", ErrNoMatch, q, len(cells))
	case ByID:
		for i := range cells {
			if cells[i].ID == q.ID {
				return i, nil
			}
		}
	case ByContains:
		for i := range cells {
			if strings.Contains(cells[i].Content, q.Contains) {
				return i, nil
			}
		}
	case ByMatch:
		re, err := regexp.Compile(q.Match)
		if err != nil {
			return -1, fmt.Errorf("invalid match pattern %q: %w", q.Match, err)
		}
		for i := range cells {
			if re.MatchString(cells[i].Content) {
				return i, nil
			}
		}
	case ByActive:
		if live == nil {
			return -1, fmt.Errorf("%w: %s", ErrLiveContextRequired, q)
		}
		if live.ActiveIndex >= 0 && live.ActiveIndex < len(cells) {
			return live.ActiveIndex, nil
		}
	case BySelected:
		if live == nil {
			return -1, fmt.Errorf("%w: %s", ErrLiveContextRequired, q)
		}
		for i := range cells {
			if live.Selected[i] {
				return i, nil
			}
		}
	default:
		return -1, fmt.Errorf("unknown query mode %q", q.Mode)
	}
	return -1, fmt.Errorf("%w: %s", ErrNoMatch, q)
}
