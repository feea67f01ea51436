package agent

import (
	"github.com/yacchin1205/jupyter-mynerva/internal/action"
)

// Approve records a human decision for one pending action. With remember
// set, the action's kind is granted in its scope so future occurrences skip
// review.
func (a *Agent) Approve(actionID string, remember bool) error {
	act, err := a.findPending(actionID)
	if err != nil {
		return err
	}
	if err := a.tracker.Approve(actionID); err != nil {
		return err
	}
	if remember {
		a.scopes.Grant(act)
	}
	return nil
}

// Reject records a refusal for one pending action.
func (a *Agent) Reject(actionID string) error {
	if _, err := a.findPending(actionID); err != nil {
		return err
	}
	return a.tracker.Reject(actionID)
}

// AcceptAll approves every still-pending action in the current batch.
// Remembered grants are recorded for each action it touches.
func (a *Agent) AcceptAll(remember bool) ([]string, error) {
	a.mu.Lock()
	b := a.current
	a.mu.Unlock()
	if b == nil {
		return nil, ErrNothingPending
	}
	touched := a.tracker.AcceptAll(b.id)
	if remember {
		for _, id := range touched {
			for _, act := range b.actions {
				if act.ID == id {
					a.scopes.Grant(act)
				}
			}
		}
	}
	return touched, nil
}

// RejectAll rejects every still-pending action in the current batch.
func (a *Agent) RejectAll() ([]string, error) {
	a.mu.Lock()
	b := a.current
	a.mu.Unlock()
	if b == nil {
		return nil, ErrNothingPending
	}
	return a.tracker.RejectAll(b.id), nil
}

// BatchResolved reports whether the pending batch, if any, is fully decided
// and ready for Continue.
func (a *Agent) BatchResolved() bool {
	a.mu.Lock()
	b := a.current
	a.mu.Unlock()
	if b == nil {
		return false
	}
	return a.tracker.Resolved(b.id)
}

func (a *Agent) findPending(actionID string) (action.Action, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return action.Action{}, ErrNothingPending
	}
	for _, act := range a.current.actions {
		if act.ID == actionID {
			return act, nil
		}
	}
	return action.Action{}, ErrNothingPending
}
