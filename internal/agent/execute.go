package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yacchin1205/jupyter-mynerva/internal/action"
	"github.com/yacchin1205/jupyter-mynerva/internal/approval"
	"github.com/yacchin1205/jupyter-mynerva/internal/document"
	"github.com/yacchin1205/jupyter-mynerva/internal/files"
)

// feedbackHeader opens the synthesized user turn that carries action results
// back to the model.
const feedbackHeader = "[Action Results]"

// storedReadConcurrency caps the fan-out for read-only batches.
const storedReadConcurrency = 4

// runBatch executes the current batch in order, appends the result feedback
// turn, and clears the batch. Rejected actions are reported, not run.
func (a *Agent) runBatch(ctx context.Context) error {
	a.mu.Lock()
	if a.executing {
		a.mu.Unlock()
		return ErrBusy
	}
	b := a.current
	doc := a.doc
	root := a.root
	redactOn := a.redact
	a.executing = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.executing = false
		a.mu.Unlock()
	}()

	if b == nil {
		return ErrNothingPending
	}

	results := a.executeBatch(ctx, b, doc, root)

	content := feedbackHeader + "\n\n" + strings.Join(results, "\n\n")
	// One outbound payload, one filter pass: identical values share a label
	// across every result in the message.
	if redactOn && a.filter != nil {
		content = a.filter.Apply(content)
	}
	a.mu.Lock()
	a.messages = append(a.messages, Message{Role: RoleUser, Content: content, Generated: true})
	// The batch ran; cancellation of anything later must not erase its
	// record.
	a.rollbackMark = len(a.messages)
	a.current = nil
	a.mu.Unlock()
	return nil
}

// executeBatch produces one result envelope per action, in the batch's
// original order. Batches with no writes fan out concurrently; anything
// containing a mutation runs strictly sequentially.
func (a *Agent) executeBatch(ctx context.Context, b *batch, doc document.Accessor, root *files.Root) []string {
	results := make([]string, len(b.actions))

	if readOnlyBatch(b.actions) && len(b.actions) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(storedReadConcurrency)
		for i, act := range b.actions {
			i, act := i, act
			g.Go(func() error {
				results[i] = a.runOne(gctx, doc, root, act)
				return nil
			})
		}
		_ = g.Wait()
		return results
	}

	for i, act := range b.actions {
		results[i] = a.runOne(ctx, doc, root, act)
	}
	return results
}

// runOne resolves one action's review state, runs it if allowed, and
// advances its status.
func (a *Agent) runOne(ctx context.Context, doc document.Accessor, root *files.Root, act action.Action) string {
	if act.Kind.NeedsApproval() {
		status, ok := a.tracker.Status(act.ID)
		if !ok || status == approval.StatusRejected {
			if ok {
				if err := a.tracker.MarkNotified(act.ID); err != nil {
					a.log.Warn("status bookkeeping", zap.Error(err))
				}
			}
			return encodeResult(rejectedResult{Kind: act.Kind, Rejected: true})
		}
	}

	payload, err := dispatch(ctx, doc, root, act)

	if act.Kind.NeedsApproval() {
		if terr := a.tracker.MarkExecuted(act.ID); terr != nil {
			a.log.Warn("status bookkeeping", zap.Error(terr))
		}
	}

	if err != nil {
		a.log.Info("action failed",
			zap.String("kind", string(act.Kind)), zap.Error(err))
		return encodeResult(errorResult{Kind: act.Kind, Path: act.Path, Error: err.Error()})
	}
	return encodeResult(successResult{Kind: act.Kind, Path: act.Path, Result: payload})
}

// dispatch runs the action against the right target. The switch is
// exhaustive over the vocabulary; validation upstream guarantees the fields
// each arm reads are present.
func dispatch(ctx context.Context, doc document.Accessor, root *files.Root, act action.Action) (any, error) {
	switch act.Kind {
	case action.KindGetToc:
		return doc.Toc()
	case action.KindGetSection:
		return doc.Section(act.Query)
	case action.KindGetCells:
		return doc.Cells(act.Query, countOf(act))
	case action.KindGetOutput:
		return doc.Output(act.Query)

	case action.KindListFiles:
		if root == nil {
			return nil, errNoRoot
		}
		return root.List(act.Path)
	case action.KindGetTocAt:
		stored, err := openStored(root, act.Path)
		if err != nil {
			return nil, err
		}
		return stored.Toc()
	case action.KindGetSectionAt:
		stored, err := openStored(root, act.Path)
		if err != nil {
			return nil, err
		}
		return stored.Section(act.Query)
	case action.KindGetCellsAt:
		stored, err := openStored(root, act.Path)
		if err != nil {
			return nil, err
		}
		return stored.Cells(act.Query, countOf(act))
	case action.KindGetOutputAt:
		stored, err := openStored(root, act.Path)
		if err != nil {
			return nil, err
		}
		return stored.Output(act.Query)

	case action.KindInsertCell:
		return doc.InsertCell(act.Position, act.AtEnd, act.CellKind, act.Content)
	case action.KindUpdateCell:
		return doc.UpdateCell(act.Query, act.Content, act.Fingerprint)
	case action.KindDeleteCell:
		return doc.DeleteCell(act.Query, act.Fingerprint)
	case action.KindExecuteCell:
		return doc.ExecuteCell(ctx, act.Query)

	case action.KindListHelp:
		return helpListing(), nil
	case action.KindHelp:
		return helpFor(act.Topic)
	}
	return nil, fmt.Errorf("unhandled action kind %q", act.Kind)
}

var errNoRoot = fmt.Errorf("no workspace root configured")

func countOf(act action.Action) int {
	if act.HasCount {
		return act.Count
	}
	return 0
}

func openStored(root *files.Root, path string) (*document.Stored, error) {
	if root == nil {
		return nil, errNoRoot
	}
	seed, err := root.ReadNotebook(path)
	if err != nil {
		return nil, err
	}
	return document.NewStored(path, seed), nil
}

// helpEntry documents one action kind for the model.
type helpEntry struct {
	Kind     action.Kind `json:"kind"`
	Required []string    `json:"required,omitempty"`
	Optional []string    `json:"optional,omitempty"`
}

func helpListing() []helpEntry {
	kinds := action.Kinds()
	out := make([]helpEntry, 0, len(kinds))
	for _, k := range kinds {
		req, opt, _ := action.Spec(k)
		out = append(out, helpEntry{Kind: k, Required: req, Optional: opt})
	}
	return out
}

func helpFor(topic string) (helpEntry, error) {
	k := action.Kind(topic)
	req, opt, ok := action.Spec(k)
	if !ok {
		return helpEntry{}, fmt.Errorf("unknown action %q", topic)
	}
	return helpEntry{Kind: k, Required: req, Optional: opt}, nil
}

func readOnlyBatch(actions []action.Action) bool {
	for _, a := range actions {
		if a.Kind.Family() == action.FamilyWrite {
			return false
		}
	}
	return true
}

type successResult struct {
	Kind   action.Kind `json:"kind"`
	Path   string      `json:"path,omitempty"`
	Result any         `json:"result"`
}

type errorResult struct {
	Kind  action.Kind `json:"kind"`
	Path  string      `json:"path,omitempty"`
	Error string      `json:"error"`
}

type rejectedResult struct {
	Kind     action.Kind `json:"kind"`
	Rejected bool        `json:"rejected"`
}

func encodeResult(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}
