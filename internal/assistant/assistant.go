// Package assistant wires the turn-processing pipeline: persist the user
// turn, route it through a pending confirmation, a workflow run, or a plain
// composed answer, and persist the reply.
package assistant

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/quickspin-labs/assistant/internal/assistant/composer"
	"github.com/quickspin-labs/assistant/internal/assistant/conversation"
	"github.com/quickspin-labs/assistant/internal/assistant/intent"
	"github.com/quickspin-labs/assistant/internal/assistant/knowledge"
	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/assistant/workflow"
	logx "github.com/quickspin-labs/assistant/pkg/logger"
)

// Request is one inbound user turn. An empty ConversationID starts a new
// conversation.
type Request struct {
	ConversationID string
	UserID         string
	OrganizationID string
	Token          string
	Message        string
}

// Result is the structured outcome of one processed turn.
type Result struct {
	ConversationID string
	ResponseText   string
	Intent         model.Intent
	RunID          string
	WorkflowKind   workflow.Kind
	Status         workflow.Status
	Outcome        composer.Outcome
}

// Service is the turn-processing entry point used by the API layer and CLI.
type Service struct {
	conversations *conversation.Manager
	classifier    *intent.Classifier
	engine        *workflow.Engine
	composer      *composer.Composer
	retriever     *knowledge.Retriever
}

func New(
	conversations *conversation.Manager,
	classifier *intent.Classifier,
	engine *workflow.Engine,
	comp *composer.Composer,
	retriever *knowledge.Retriever,
) *Service {
	return &Service{
		conversations: conversations,
		classifier:    classifier,
		engine:        engine,
		composer:      comp,
		retriever:     retriever,
	}
}

// ProcessMessage handles one user turn end to end. A storage failure on
// either the user or the assistant turn is fatal to the turn: the caller must
// know a message was not recorded.
func (s *Service) ProcessMessage(ctx context.Context, req Request) (*Result, error) {
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
	conv := model.Conversation{
		ID:             req.ConversationID,
		UserID:         req.UserID,
		OrganizationID: req.OrganizationID,
	}

	if err := s.conversations.AppendUser(ctx, conv, req.Message); err != nil {
		return nil, err
	}

	res := s.route(ctx, conv, req)

	if err := s.conversations.AppendAssistant(ctx, conv, res.ResponseText, res.RunID); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) route(ctx context.Context, conv model.Conversation, req Request) *Result {
	// a pending confirmation intercepts yes/no replies before classification
	if pending, ok := s.engine.Pending(conv.ID); ok {
		if accept, decided := parseConfirmation(req.Message); decided {
			return s.resume(ctx, req, pending.ID, accept)
		}
		// the user moved on; the gate stays open until it expires
	}

	history, err := s.conversations.ContextString(ctx, conv.ID)
	if err != nil {
		logx.Warn().Err(err).Str("conversationID", conv.ID).Msg("history unavailable, classifying without it")
		history = ""
	}
	it := s.classifier.Classify(ctx, req.Message, history)

	kind, ok := workflow.KindForIntent(it)
	if !ok {
		return s.passthrough(ctx, req, it)
	}

	run, err := s.engine.Start(ctx, kind, workflow.Input{
		ConversationID: conv.ID,
		UserID:         req.UserID,
		OrganizationID: req.OrganizationID,
		Token:          req.Token,
		Message:        req.Message,
	})
	if err != nil {
		oc := composer.Outcome{Kind: composer.OutcomeFailed, Intent: it, Err: err}
		return &Result{
			ConversationID: req.ConversationID,
			ResponseText:   s.composer.Compose(ctx, req.Message, oc),
			Intent:         it,
			Status:         workflow.StatusFailed,
			Outcome:        oc,
		}
	}

	run.Outcome.Intent = it
	return &Result{
		ConversationID: req.ConversationID,
		ResponseText:   s.composer.Compose(ctx, req.Message, run.Outcome),
		Intent:         it,
		RunID:          run.ID,
		WorkflowKind:   kind,
		Status:         run.Status,
		Outcome:        run.Outcome,
	}
}

func (s *Service) resume(ctx context.Context, req Request, runID string, accept bool) *Result {
	run, err := s.engine.Resume(ctx, runID, accept)
	if err != nil && run == nil {
		oc := composer.Outcome{Kind: composer.OutcomeFailed, Err: err}
		return &Result{
			ConversationID: req.ConversationID,
			ResponseText:   s.composer.Compose(ctx, req.Message, oc),
			Status:         workflow.StatusFailed,
			Outcome:        oc,
		}
	}
	return &Result{
		ConversationID: req.ConversationID,
		ResponseText:   s.composer.Compose(ctx, req.Message, run.Outcome),
		RunID:          run.ID,
		WorkflowKind:   run.Kind,
		Status:         run.Status,
		Outcome:        run.Outcome,
	}
}

// passthrough answers without a workflow run: retrieved context plus one
// composition call.
func (s *Service) passthrough(ctx context.Context, req Request, it model.Intent) *Result {
	var snips []knowledge.Snippet
	if s.retriever != nil {
		snips = s.retriever.Retrieve(ctx, req.Message, intent.KnowledgeCategory(it), 2)
	}
	oc := composer.Outcome{
		Kind:     composer.OutcomeAnswer,
		Intent:   it,
		Snippets: snips,
	}
	return &Result{
		ConversationID: req.ConversationID,
		ResponseText:   s.composer.Compose(ctx, req.Message, oc),
		Intent:         it,
		Status:         workflow.StatusCompleted,
		Outcome:        oc,
	}
}

var (
	affirmatives = []string{"yes", "y", "confirm", "confirmed", "proceed", "go ahead", "do it", "ok", "okay", "sure", "approve"}
	negatives    = []string{"no", "n", "cancel", "abort", "stop", "reject", "don't", "do not"}
)

// parseConfirmation reads a reply to a pending confirmation. The second
// return is false when the message is neither clearly yes nor clearly no.
func parseConfirmation(message string) (accept, decided bool) {
	m := strings.ToLower(strings.TrimSpace(message))
	m = strings.Trim(m, ".!")
	for _, w := range affirmatives {
		if m == w || strings.HasPrefix(m, w+" ") || strings.HasPrefix(m, w+",") {
			return true, true
		}
	}
	for _, w := range negatives {
		if m == w || strings.HasPrefix(m, w+" ") || strings.HasPrefix(m, w+",") {
			return false, true
		}
	}
	return false, false
}
