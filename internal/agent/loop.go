package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yacchin1205/jupyter-mynerva/internal/action"
	"github.com/yacchin1205/jupyter-mynerva/internal/provider"
)

// maxAutoCycles bounds how many model round trips one user message may
// trigger through auto-approved batches before the loop yields back to the
// user anyway.
const maxAutoCycles = 8

// noMessage stands in for an assistant turn that carried no prose.
const noMessage = "(no message)"

// Send appends the user's message and runs the loop until the model settles
// on a plain reply, a batch suspends for review, or the auto-cycle bound is
// hit. The returned message is the latest assistant turn.
func (a *Agent) Send(ctx context.Context, input string) (Message, error) {
	a.mu.Lock()
	if a.busy || a.executing {
		a.mu.Unlock()
		return Message{}, ErrBusy
	}
	if a.current != nil {
		a.mu.Unlock()
		return Message{}, ErrAwaitingReview
	}
	a.busy = true
	a.rollbackMark = len(a.messages)
	a.messages = append(a.messages, Message{Role: RoleUser, Content: input})
	a.mu.Unlock()
	defer a.clearBusy()

	msg, err := a.drive(ctx)
	if err != nil && errors.Is(err, context.Canceled) {
		a.rollbackTail()
	}
	return msg, err
}

// Continue resumes a suspended loop once every action in the pending batch
// has been decided: it executes the batch, feeds the results back, and keeps
// cycling like Send.
func (a *Agent) Continue(ctx context.Context) (Message, error) {
	a.mu.Lock()
	if a.busy || a.executing {
		a.mu.Unlock()
		return Message{}, ErrBusy
	}
	if a.current == nil {
		a.mu.Unlock()
		return Message{}, ErrNothingPending
	}
	if !a.tracker.Resolved(a.current.id) {
		a.mu.Unlock()
		return Message{}, ErrBatchUndecided
	}
	a.busy = true
	a.rollbackMark = len(a.messages)
	a.mu.Unlock()
	defer a.clearBusy()

	if err := a.runBatch(ctx); err != nil {
		return Message{}, err
	}
	msg, err := a.drive(ctx)
	if err != nil && errors.Is(err, context.Canceled) {
		a.rollbackTail()
	}
	return msg, err
}

func (a *Agent) clearBusy() {
	a.mu.Lock()
	a.busy = false
	a.mu.Unlock()
}

// drive cycles chat → execute → chat while batches keep resolving on their
// own. It stops when a reply has no actions, when a batch needs a human, or
// when the cycle bound trips.
func (a *Agent) drive(ctx context.Context) (Message, error) {
	var last Message
	for cycles := 0; ; cycles++ {
		msg, err := a.cycle(ctx)
		if err != nil {
			return msg, err
		}
		last = msg

		a.mu.Lock()
		cur := a.current
		a.mu.Unlock()
		if cur == nil {
			return last, nil
		}
		if !a.tracker.Resolved(cur.id) {
			return last, nil
		}
		if cycles >= maxAutoCycles {
			a.log.Warn("auto-approval cycle bound reached; yielding to user",
				zap.Int("cycles", cycles))
			return last, nil
		}
		if err := a.runBatch(ctx); err != nil {
			return last, err
		}
	}
}

// cycle performs one logical model exchange: call the model, parse and
// validate the reply, and burn retries on malformed or invalid responses.
// On success the assistant message is appended and any actions are
// registered as the current batch (auto-approving it when remembered grants
// cover every action).
func (a *Agent) cycle(ctx context.Context) (Message, error) {
	retries := a.retries
	for {
		raw, err := a.chat(ctx)
		if err != nil {
			// Transport failures stay visible in the history; a canceled
			// exchange is rolled back by the caller instead.
			if !errors.Is(err, context.Canceled) {
				a.appendMessage(Message{Role: RoleSystem, Content: err.Error(), Generated: true})
			}
			return Message{}, err
		}

		env, derr := action.Parse(raw)
		if derr != nil {
			if retries > 0 {
				retries--
				a.appendMessage(Message{Role: RoleAssistant, Content: noMessage})
				a.appendMessage(Message{Role: RoleUser, Content: decodeCorrection(derr), Generated: true})
				a.log.Debug("reply failed to decode, retrying", zap.String("detail", derr.Detail))
				continue
			}
			// Out of retries: show the raw text verbatim, with no actions.
			msg := Message{Role: RoleAssistant, Content: derr.Raw}
			a.appendMessage(msg)
			a.log.Warn("reply never decoded; surfacing verbatim")
			return msg, nil
		}

		res := action.Validate(env.Actions)
		var acts []action.Action
		if res.Valid {
			acts, err = action.DecodeAll(env.Actions)
			if err != nil {
				res = action.Result{
					Errors:     []string{err.Error()},
					Correction: action.Correction([]string{err.Error()}),
				}
			}
		}
		if !res.Valid || err != nil {
			if retries > 0 {
				retries--
				a.appendMessage(Message{Role: RoleAssistant, Content: action.JoinMessages(env.Messages)})
				a.appendMessage(Message{Role: RoleUser, Content: res.Correction, Generated: true})
				a.log.Debug("invalid action batch, retrying", zap.Strings("errors", res.Errors))
				continue
			}
			// Out of retries: keep whatever individually decodes, drop the
			// rest, and proceed with the conversation.
			acts = decodeBestEffort(env.Actions)
			a.log.Warn("validation retries exhausted; proceeding best-effort",
				zap.Int("kept", len(acts)), zap.Int("sent", len(env.Actions)))
		}

		content := action.JoinMessages(env.Messages)
		if content == "" {
			content = noMessage
		}
		msg := Message{Role: RoleAssistant, Content: content, Actions: acts}
		a.appendMessage(msg)
		if len(acts) == 0 {
			return msg, nil
		}

		b := &batch{id: newBatchID(), actions: acts}
		a.tracker.Register(b.id, acts)
		if a.scopes.BatchApproved(acts) {
			approved := a.tracker.AcceptAll(b.id)
			a.log.Info("batch auto-approved by remembered grants",
				zap.String("batch", b.id), zap.Int("actions", len(approved)))
		}
		a.mu.Lock()
		a.current = b
		a.mu.Unlock()
		return msg, nil
	}
}

// chat sends the full history to the provider. The call is cancelable via
// Agent.Cancel without disturbing the rest of the loop's context.
func (a *Agent) chat(ctx context.Context) (string, error) {
	turns := a.buildTurns()

	cctx, cancel := context.WithCancel(ctx)
	a.cancelMu.Lock()
	a.cancel = cancel
	a.cancelMu.Unlock()
	defer func() {
		cancel()
		a.cancelMu.Lock()
		a.cancel = nil
		a.cancelMu.Unlock()
	}()

	reply, err := a.client.Chat(cctx, a.model, turns)
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}
	return reply, nil
}

func (a *Agent) appendMessage(m Message) {
	a.mu.Lock()
	a.messages = append(a.messages, m)
	a.mu.Unlock()
}

// rollbackTail truncates history to the last rollback mark, undoing the
// canceled exchange as if it was never sent. The mark advances whenever a
// batch's results are appended, so an executed action and its feedback turn
// survive cancellation of the follow-up model call.
func (a *Agent) rollbackTail() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rollbackMark <= len(a.messages) {
		a.messages = a.messages[:a.rollbackMark]
	}
}

// buildTurns renders the history for the provider. Assistant turns that
// carried actions are re-encoded as the envelope the model originally sent,
// so it sees its own protocol output rather than a lossy summary.
func (a *Agent) buildTurns() []provider.Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	turns := make([]provider.Turn, 0, len(a.messages)+1)
	turns = append(turns, provider.Turn{Role: provider.RoleSystem, Content: systemPreamble()})
	for _, m := range a.messages {
		content := m.Content
		if m.Role == RoleAssistant && len(m.Actions) > 0 {
			content = encodeEnvelope(m)
		}
		turns = append(turns, provider.Turn{Role: m.Role, Content: content})
	}
	return turns
}

func encodeEnvelope(m Message) string {
	env := struct {
		Messages []action.ChatText `json:"messages"`
		Actions  []json.RawMessage `json:"actions"`
	}{
		Messages: []action.ChatText{},
		Actions:  make([]json.RawMessage, 0, len(m.Actions)),
	}
	if m.Content != "" {
		env.Messages = append(env.Messages, action.ChatText{Role: RoleAssistant, Content: m.Content})
	}
	for _, act := range m.Actions {
		env.Actions = append(env.Actions, act.Raw)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return m.Content
	}
	return string(data)
}

func decodeBestEffort(raws []json.RawMessage) []action.Action {
	var out []action.Action
	for _, raw := range raws {
		if len(action.Validate([]json.RawMessage{raw}).Errors) > 0 {
			continue
		}
		a, err := action.Decode(raw)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

func decodeCorrection(derr *action.DecodeError) string {
	return "Your previous response could not be parsed as a JSON envelope: " + derr.Detail +
		"\nPlease resend the complete response as a single JSON object with \"messages\" and \"actions\" fields."
}

var (
	preambleOnce sync.Once
	preamble     string
)

// systemPreamble is the instruction block sent ahead of every conversation.
// The action vocabulary section is generated from the schema table so the
// prompt can never drift from what validation accepts.
func systemPreamble() string {
	preambleOnce.Do(func() {
		var b strings.Builder
		b.WriteString(`You are a notebook assistant. Reply ONLY with a JSON object of the form
{"messages": [{"role": "assistant", "content": "..."}], "actions": [...]}
where "actions" is a possibly empty list of operations against the user's notebook.
Each action is an object with a "kind" field and the fields listed below.
Cell queries are objects with exactly one of: "position", "id", "contains", "match", "active", "selected".
Destructive actions require the cell's "fingerprint" from a previous read.
Some actions require the user's approval before they run; their results arrive in a follow-up message.

Available actions:
`)
		for _, k := range action.Kinds() {
			req, opt, _ := action.Spec(k)
			b.WriteString("- ")
			b.WriteString(string(k))
			if len(req) > 0 {
				b.WriteString(" (requires: ")
				b.WriteString(strings.Join(req, ", "))
				b.WriteString(")")
			}
			if len(opt) > 0 {
				b.WriteString(" (optional: ")
				b.WriteString(strings.Join(opt, ", "))
				b.WriteString(")")
			}
			b.WriteString("\n")
		}
		preamble = b.String()
	})
	return preamble
}
