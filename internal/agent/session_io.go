package agent

import (
	"encoding/json"
	"fmt"

	"github.com/yacchin1205/jupyter-mynerva/internal/action"
)

// storedMessage is the persisted form of one history entry. Actions are kept
// as their wire JSON so the payload stays stable across refactors of the
// typed form.
type storedMessage struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Generated bool              `json:"generated,omitempty"`
	Actions   []json.RawMessage `json:"actions,omitempty"`
}

type snapshot struct {
	Messages []storedMessage `json:"messages"`
}

// Snapshot serializes the conversation for the session store. Approval state
// is not persisted: on restore, past batches are marked historical.
func (a *Agent) Snapshot() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := snapshot{Messages: make([]storedMessage, 0, len(a.messages))}
	for _, m := range a.messages {
		sm := storedMessage{Role: m.Role, Content: m.Content, Generated: m.Generated}
		for _, act := range m.Actions {
			sm.Actions = append(sm.Actions, act.Raw)
		}
		snap.Messages = append(snap.Messages, sm)
	}
	return json.Marshal(snap)
}

// Restore replaces the conversation with a stored session. Every restored
// batch is historical: its actions are shown as already executed, never
// re-run, and no batch is left pending.
func (a *Agent) Restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode session payload: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.busy || a.executing {
		return ErrBusy
	}

	a.messages = a.messages[:0]
	a.current = nil
	a.tracker.Reset()
	a.scopes.Reset()
	if a.doc != nil {
		a.scopes.SetActiveDocument(a.doc.Key())
	}

	for _, sm := range snap.Messages {
		m := Message{Role: sm.Role, Content: sm.Content, Generated: sm.Generated}
		for _, raw := range sm.Actions {
			act, err := action.Decode(raw)
			if err != nil {
				// Undecodable history is displayed, not replayed; skip it.
				continue
			}
			m.Actions = append(m.Actions, act)
		}
		if len(m.Actions) > 0 {
			a.tracker.MarkHistorical(newBatchID(), m.Actions)
		}
		a.messages = append(a.messages, m)
	}
	a.rollbackMark = len(a.messages)
	return nil
}
