// Package composer turns structured workflow outcomes into user-facing text.
// The language model gets one attempt; when it is unavailable or errors, a
// deterministic template renders the same facts instead. Composition never
// fails.
package composer

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	_ "embed"

	"github.com/quickspin-labs/assistant/internal/assistant/knowledge"
	"github.com/quickspin-labs/assistant/internal/assistant/llm"
	"github.com/quickspin-labs/assistant/internal/assistant/model"
	logx "github.com/quickspin-labs/assistant/pkg/logger"
)

//go:embed template/composer_prompt.txt
var composerPrompt string

// OutcomeKind names what the conversation turn produced.
type OutcomeKind string

const (
	OutcomeProvisioned          OutcomeKind = "provisioned"
	OutcomeConfirmationRequired OutcomeKind = "confirmation_required"
	OutcomeDiagnosis            OutcomeKind = "diagnosis"
	OutcomeOptimization         OutcomeKind = "optimization"
	OutcomeAnswer               OutcomeKind = "answer"
	OutcomeAborted              OutcomeKind = "aborted"
	OutcomeFailed               OutcomeKind = "failed"
)

// Outcome carries the structured result a workflow or passthrough produced.
// Only the fields relevant to the Kind are set.
type Outcome struct {
	Kind            OutcomeKind
	Intent          model.Intent
	Service         *model.Service
	ServiceName     string
	Config          *model.ServiceConfig
	Estimate        *model.CostEstimate
	RootCause       string
	Findings        []string
	Recommendations []model.Recommendation
	Analysis        *model.CostAnalysis
	Snippets        []knowledge.Snippet
	Err             error
}

type Composer struct {
	completer llm.Completer
}

func New(completer llm.Completer) *Composer {
	return &Composer{completer: completer}
}

// Compose renders the outcome into reply text for the user.
func (c *Composer) Compose(ctx context.Context, userMessage string, oc Outcome) string {
	fallback := renderFallback(oc)
	if c.completer == nil {
		return fallback
	}

	facts := renderFacts(oc)
	if facts == "" {
		return fallback
	}

	content := strings.NewReplacer(
		"{knowledge}", renderKnowledge(oc.Snippets),
		"{facts}", facts,
		"{message}", userMessage,
	).Replace(composerPrompt)

	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		logx.Warn().Err(err).Msg("composer prompt render failed, using template fallback")
		return fallback
	}

	reply, err := c.completer.Complete(ctx, msgs)
	if err != nil {
		logx.Warn().Err(err).Str("outcome", string(oc.Kind)).Msg("composer model call failed, using template fallback")
		return fallback
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return fallback
	}
	return reply
}

func renderKnowledge(snips []knowledge.Snippet) string {
	if len(snips) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Reference documentation:\n")
	for _, s := range snips {
		b.WriteString("---\n")
		b.WriteString(s.Content)
		b.WriteString("\n")
	}
	return b.String()
}
