package approval

import (
	"sync"

	"github.com/yacchin1205/jupyter-mynerva/internal/action"
)

// readRank orders the read vocabulary from narrow to broad. A grant at a
// higher rank implies every lower rank in the same family: someone trusted
// to read outputs is trusted to read structure. Writes carry no such
// implication and always need their exact kind granted.
var readRank = map[action.Kind]int{
	action.KindGetToc:     1,
	action.KindGetSection: 2,
	action.KindGetCells:   3,
	action.KindGetOutput:  4,

	action.KindGetTocAt:     1,
	action.KindGetSectionAt: 2,
	action.KindGetCellsAt:   3,
	action.KindGetOutputAt:  4,
}

// implies reports whether a remembered grant covers a candidate kind.
func implies(granted, candidate action.Kind) bool {
	if granted == candidate {
		return true
	}
	gr, ok1 := readRank[granted]
	cr, ok2 := readRank[candidate]
	if !ok1 || !ok2 {
		return false
	}
	if granted.Stored() != candidate.Stored() {
		return false
	}
	return gr > cr
}

// Scopes remembers "always approve" grants across two independent keyings:
// by active-document identity for live actions, and by target path for
// stored-file reads. State is process-local and reset only on explicit
// session boundaries; switching the active document drops the previous
// document's grants.
type Scopes struct {
	mu        sync.Mutex
	activeDoc string
	byDoc     map[string]map[action.Kind]bool
	byPath    map[string]map[action.Kind]bool
}

func NewScopes() *Scopes {
	return &Scopes{
		byDoc:  make(map[string]map[action.Kind]bool),
		byPath: make(map[string]map[action.Kind]bool),
	}
}

// SetActiveDocument records which document live grants attach to. Changing
// identity invalidates grants held for the previous document.
func (s *Scopes) SetActiveDocument(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeDoc != "" && s.activeDoc != key {
		delete(s.byDoc, s.activeDoc)
	}
	s.activeDoc = key
}

// Grant remembers approval for one action's kind in its scope.
func (s *Scopes) Grant(a action.Action) {
	if !a.Kind.NeedsApproval() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Kind.Stored() {
		if s.byPath[a.Path] == nil {
			s.byPath[a.Path] = make(map[action.Kind]bool)
		}
		s.byPath[a.Path][a.Kind] = true
		return
	}
	if s.activeDoc == "" {
		return
	}
	if s.byDoc[s.activeDoc] == nil {
		s.byDoc[s.activeDoc] = make(map[action.Kind]bool)
	}
	s.byDoc[s.activeDoc][a.Kind] = true
}

// Approved reports whether a remembered grant covers the action, directly
// or through the read hierarchy.
func (s *Scopes) Approved(a action.Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var grants map[action.Kind]bool
	if a.Kind.Stored() {
		grants = s.byPath[a.Path]
	} else {
		grants = s.byDoc[s.activeDoc]
	}
	for granted := range grants {
		if implies(granted, a.Kind) {
			return true
		}
	}
	return false
}

// BatchApproved reports whether an entire batch may skip manual review.
// Every approval-needing action must pass individually; one holdout forces
// the whole batch to human review. Help actions do not count against the
// batch. An empty batch is not auto-approved.
func (s *Scopes) BatchApproved(actions []action.Action) bool {
	checked := 0
	for _, a := range actions {
		if !a.Kind.NeedsApproval() {
			continue
		}
		checked++
		if !s.Approved(a) {
			return false
		}
	}
	return checked > 0
}

// Reset drops all grants. Called on session boundaries.
func (s *Scopes) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeDoc = ""
	s.byDoc = make(map[string]map[action.Kind]bool)
	s.byPath = make(map[string]map[action.Kind]bool)
}
