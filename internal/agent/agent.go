// Package agent drives the conversation loop between the user, the model,
// and the notebook: it sends history to the model, parses and validates the
// structured actions in the reply, holds them for human review, executes
// what was approved, and feeds the results back to the model.
package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yacchin1205/jupyter-mynerva/internal/action"
	"github.com/yacchin1205/jupyter-mynerva/internal/approval"
	"github.com/yacchin1205/jupyter-mynerva/internal/document"
	"github.com/yacchin1205/jupyter-mynerva/internal/files"
	"github.com/yacchin1205/jupyter-mynerva/internal/provider"
	"github.com/yacchin1205/jupyter-mynerva/internal/redact"
)

// Message is one entry of the conversation history. Approval state is
// tracked out of band, keyed by action ID, so a Message value never changes
// once appended (history is append-only apart from cancellation rollback).
type Message struct {
	Role    string          `json:"role"`
	Content string          `json:"content"`
	Actions []action.Action `json:"-"`
	// Generated marks turns synthesized by the engine (corrections, action
	// results) as opposed to authored by the user.
	Generated bool `json:"generated,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Guard errors for the loop's re-entrancy rules.
var (
	ErrBusy           = errors.New("a model request is already in flight")
	ErrAwaitingReview = errors.New("actions are awaiting review")
	ErrNothingPending = errors.New("no action batch is pending")
	ErrBatchUndecided = errors.New("the pending batch is not fully decided")
)

// batch is the action set attached to one assistant message.
type batch struct {
	id      string
	actions []action.Action
}

// Options wires an Agent.
type Options struct {
	Client provider.Client
	Model  string
	// Doc is the open document all live actions target.
	Doc document.Accessor
	// Root grants access to stored notebooks; nil disables the *_at and
	// listFiles actions.
	Root *files.Root
	// Filter masks outbound action results when RedactionOn is set.
	Filter      *redact.Filter
	RedactionOn bool
	// MaxRetries bounds extra attempts after malformed or invalid replies.
	MaxRetries int
	Logger     *zap.Logger
}

// Agent owns one session's conversation state. Methods are serialized by an
// internal mutex; the busy/executing flags keep a second model send or a
// double execution from slipping in between suspension points.
type Agent struct {
	mu        sync.Mutex
	busy      bool
	executing bool

	client  provider.Client
	model   string
	doc     document.Accessor
	root    *files.Root
	filter  *redact.Filter
	redact  bool
	retries int
	log     *zap.Logger

	messages []Message
	current  *batch
	// rollbackMark is the history length to restore on cancellation. It
	// advances past every appended feedback turn, so records of executed
	// actions are never trimmed.
	rollbackMark int

	tracker *approval.Tracker
	scopes  *approval.Scopes

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// New builds an agent for one session.
func New(opts Options) *Agent {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	a := &Agent{
		client:  opts.Client,
		model:   opts.Model,
		doc:     opts.Doc,
		root:    opts.Root,
		filter:  opts.Filter,
		redact:  opts.RedactionOn,
		retries: opts.MaxRetries,
		log:     log,
		tracker: approval.NewTracker(),
		scopes:  approval.NewScopes(),
	}
	if opts.Doc != nil {
		a.scopes.SetActiveDocument(opts.Doc.Key())
	}
	return a
}

// Messages returns a copy of the history.
func (a *Agent) Messages() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// PendingActions returns the batch awaiting review, if any.
func (a *Agent) PendingActions() ([]action.Action, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil, false
	}
	out := make([]action.Action, len(a.current.actions))
	copy(out, a.current.actions)
	return out, true
}

// ActionStatus reports the review state of one action.
func (a *Agent) ActionStatus(actionID string) (approval.Status, bool) {
	return a.tracker.Status(actionID)
}

// SetDocument switches the open document. Grants remembered for the
// previous document are dropped.
func (a *Agent) SetDocument(doc document.Accessor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.doc = doc
	if doc != nil {
		a.scopes.SetActiveDocument(doc.Key())
	}
}

// SetRedaction flips the outbound masking toggle.
func (a *Agent) SetRedaction(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.redact = on
}

// Reset clears conversation and approval state for a fresh session.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = nil
	a.current = nil
	a.rollbackMark = 0
	a.tracker.Reset()
	a.scopes.Reset()
	if a.doc != nil {
		a.scopes.SetActiveDocument(a.doc.Key())
	}
}

// Cancel aborts the in-flight model call, if any. Document operations
// already dispatched are never interrupted.
func (a *Agent) Cancel() {
	a.cancelMu.Lock()
	defer a.cancelMu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

func newBatchID() string { return uuid.NewString() }
