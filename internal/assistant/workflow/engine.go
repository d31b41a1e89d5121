package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/core/errx"
	logx "github.com/quickspin-labs/assistant/pkg/logger"
)

// Engine drives workflow runs. Runs paused at a confirmation gate are held in
// an in-process registry keyed by run id until they are resumed or their
// confirmation window lapses.
type Engine struct {
	defs map[Kind]Definition
	deps *Deps

	confirmationTTL time.Duration

	mu             sync.Mutex
	pending        map[string]*Run
	byConversation map[string]string
}

func NewEngine(deps *Deps, confirmationTTL time.Duration) *Engine {
	return &Engine{
		defs:            definitions(),
		deps:            deps,
		confirmationTTL: confirmationTTL,
		pending:         make(map[string]*Run),
		byConversation:  make(map[string]string),
	}
}

// KindForIntent derives the workflow kind from an intent. The second return
// is false for passthrough intents, which never create a run.
func KindForIntent(intent model.Intent) (Kind, bool) {
	switch intent {
	case model.IntentProvisionService:
		return KindProvision, true
	case model.IntentTroubleshoot:
		return KindDiagnose, true
	case model.IntentOptimizeCosts:
		return KindOptimize, true
	default:
		return "", false
	}
}

// Start creates a run for the kind and executes steps until it completes,
// pauses for confirmation, or fails.
func (e *Engine) Start(ctx context.Context, kind Kind, in Input) (*Run, error) {
	def, ok := e.defs[kind]
	if !ok {
		return nil, errx.Newf(errx.KindExtraction, "unknown workflow kind %q", kind)
	}

	r := newRun(kind, in)
	logx.Info().
		Str("runID", r.ID).
		Str("kind", string(kind)).
		Str("conversationID", r.ConversationID).
		Msg("workflow run started")

	e.advance(ctx, def, r)
	return r, nil
}

// Resume continues a run paused at a confirmation gate. Reject transitions to
// aborted without touching any collaborator; accept re-enters the runner at
// the step after the gate, carrying the audit trail forward. The run id must
// name a run that is still awaiting confirmation.
func (e *Engine) Resume(ctx context.Context, runID string, accept bool) (*Run, error) {
	e.mu.Lock()
	r, ok := e.pending[runID]
	if ok {
		delete(e.pending, runID)
		delete(e.byConversation, r.ConversationID)
	}
	e.mu.Unlock()

	if !ok {
		return nil, errx.Newf(errx.KindServiceNotFound, "no run %q awaiting confirmation", runID)
	}
	if !r.expiresAt.IsZero() && time.Now().After(r.expiresAt) {
		r.Status = StatusAborted
		r.Outcome = abortedOutcome(r)
		logx.Warn().Str("runID", r.ID).Msg("confirmation window expired, run aborted")
		return r, errx.Newf(errx.KindServiceNotFound, "run %q confirmation expired", runID)
	}

	if !accept {
		r.Status = StatusAborted
		r.Outcome = abortedOutcome(r)
		r.UpdatedAt = time.Now().UTC()
		logx.Info().Str("runID", r.ID).Msg("confirmation rejected, run aborted")
		return r, nil
	}

	r.Status = StatusRunning
	r.cursor++
	logx.Info().Str("runID", r.ID).Str("step", r.CurrentStep).Msg("confirmation accepted, resuming run")
	e.advance(ctx, e.defs[r.Kind], r)
	return r, nil
}

// Pending returns the run awaiting confirmation for a conversation, if any.
func (e *Engine) Pending(conversationID string) (*Run, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.byConversation[conversationID]
	if !ok {
		return nil, false
	}
	r := e.pending[id]
	if r == nil {
		delete(e.byConversation, conversationID)
		return nil, false
	}
	if !r.expiresAt.IsZero() && time.Now().After(r.expiresAt) {
		delete(e.pending, id)
		delete(e.byConversation, conversationID)
		return nil, false
	}
	return r, true
}

// sweepLocked evicts runs whose confirmation window has lapsed, keeping the
// registry bounded in a long-lived process. The caller holds e.mu.
func (e *Engine) sweepLocked(now time.Time) {
	for id, r := range e.pending {
		if !r.expiresAt.IsZero() && now.After(r.expiresAt) {
			delete(e.pending, id)
			delete(e.byConversation, r.ConversationID)
		}
	}
}

// advance executes steps strictly in declared order starting at the cursor.
func (e *Engine) advance(ctx context.Context, def Definition, r *Run) {
	for r.cursor < len(def.Steps) {
		step := def.Steps[r.cursor]
		r.CurrentStep = step.Name

		res := step.Run(ctx, r, e.deps)
		switch res.kind {
		case resultAdvance:
			r.record(step.Name, res.output)
			r.cursor++

		case resultConfirm:
			r.record(step.Name, res.output)
			r.Status = StatusAwaitingConfirmation
			r.expiresAt = time.Now().Add(e.confirmationTTL)
			e.mu.Lock()
			e.sweepLocked(time.Now())
			// a newer gate replaces any stale pending run for the conversation
			if old, ok := e.byConversation[r.ConversationID]; ok {
				delete(e.pending, old)
			}
			e.pending[r.ID] = r
			e.byConversation[r.ConversationID] = r.ID
			e.mu.Unlock()
			logx.Info().Str("runID", r.ID).Str("step", step.Name).Msg("run awaiting confirmation")
			return

		case resultFail:
			r.Status = StatusFailed
			r.Err = res.err
			r.Outcome = failureOutcome(r, res.err)
			r.UpdatedAt = time.Now().UTC()
			logx.Warn().
				Err(res.err).
				Str("runID", r.ID).
				Str("step", step.Name).
				Str("errorKind", string(errx.KindOf(res.err))).
				Msg("workflow step failed")
			return
		}
	}

	r.Status = StatusCompleted
	r.UpdatedAt = time.Now().UTC()
	logx.Info().Str("runID", r.ID).Str("kind", string(r.Kind)).Msg("workflow run completed")
}
