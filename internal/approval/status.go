// Package approval tracks the human-review lifecycle of model-requested
// actions and the remembered grants that let repeat actions skip review.
//
// Statuses are keyed by the action's synthetic identifier, never by list
// position, so splicing the surrounding message history cannot misattribute
// a decision.
package approval

import (
	"fmt"
	"sync"

	"github.com/yacchin1205/jupyter-mynerva/internal/action"
)

// Status is the review state of one action. Transitions are one-way:
// pending → approved → executed, or pending → rejected → notified.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusExecuted Status = "executed"
	StatusRejected Status = "rejected"
	StatusNotified Status = "notified"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusExecuted},
	StatusRejected: {StatusNotified},
}

func canTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Tracker owns the status of every registered action, grouped into batches
// (one batch per assistant message). It is reset wholesale on session
// boundaries.
type Tracker struct {
	mu      sync.Mutex
	status  map[string]Status
	batches map[string][]string
}

func NewTracker() *Tracker {
	return &Tracker{
		status:  make(map[string]Status),
		batches: make(map[string][]string),
	}
}

// Register enters a batch of actions into the machine as pending. Help
// actions never need review and are skipped entirely.
func (t *Tracker) Register(batchID string, actions []action.Action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(actions))
	for _, a := range actions {
		if !a.Kind.NeedsApproval() {
			continue
		}
		t.status[a.ID] = StatusPending
		ids = append(ids, a.ID)
	}
	t.batches[batchID] = ids
}

// Status reports the current state of one action.
func (t *Tracker) Status(actionID string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.status[actionID]
	return s, ok
}

// Set moves one action to a new status, enforcing the one-way machine.
func (t *Tracker) Set(actionID string, to Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.set(actionID, to)
}

func (t *Tracker) set(actionID string, to Status) error {
	from, ok := t.status[actionID]
	if !ok {
		return fmt.Errorf("unknown action %s", actionID)
	}
	if !canTransition(from, to) {
		return fmt.Errorf("action %s: illegal transition %s -> %s", actionID, from, to)
	}
	t.status[actionID] = to
	return nil
}

// Approve and Reject record a per-action human decision.
func (t *Tracker) Approve(actionID string) error { return t.Set(actionID, StatusApproved) }
func (t *Tracker) Reject(actionID string) error  { return t.Set(actionID, StatusRejected) }

// MarkExecuted and MarkNotified record the post-decision outcomes.
func (t *Tracker) MarkExecuted(actionID string) error { return t.Set(actionID, StatusExecuted) }
func (t *Tracker) MarkNotified(actionID string) error { return t.Set(actionID, StatusNotified) }

// AcceptAll approves every still-pending action in the batch and returns
// the IDs it touched. Already-decided actions are left alone.
func (t *Tracker) AcceptAll(batchID string) []string {
	return t.bulk(batchID, StatusApproved)
}

// RejectAll rejects every still-pending action in the batch.
func (t *Tracker) RejectAll(batchID string) []string {
	return t.bulk(batchID, StatusRejected)
}

func (t *Tracker) bulk(batchID string, to Status) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var touched []string
	for _, id := range t.batches[batchID] {
		if t.status[id] == StatusPending {
			t.status[id] = to
			touched = append(touched, id)
		}
	}
	return touched
}

// Resolved reports whether every action in the batch has left pending.
// An unknown or empty batch is trivially resolved.
func (t *Tracker) Resolved(batchID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range t.batches[batchID] {
		if t.status[id] == StatusPending {
			return false
		}
	}
	return true
}

// Pending lists the still-undecided actions of a batch in registration
// order.
func (t *Tracker) Pending(batchID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, id := range t.batches[batchID] {
		if t.status[id] == StatusPending {
			out = append(out, id)
		}
	}
	return out
}

// MarkHistorical registers a batch whose actions already ran in a past
// session: approved work is recorded as executed, rejected work as
// notified. Used when loading a stored session, where nothing is actionable
// anymore.
func (t *Tracker) MarkHistorical(batchID string, actions []action.Action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(actions))
	for _, a := range actions {
		if !a.Kind.NeedsApproval() {
			continue
		}
		t.status[a.ID] = StatusExecuted
		ids = append(ids, a.ID)
	}
	t.batches[batchID] = ids
}

// Reset clears all state. Called on session boundaries.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = make(map[string]Status)
	t.batches = make(map[string][]string)
}
