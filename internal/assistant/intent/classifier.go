// Package intent classifies user messages into the fixed QuickSpin intent
// set. Classification never fails: one model attempt, then a keyword fallback,
// then general_question.
package intent

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	_ "embed"

	"github.com/quickspin-labs/assistant/internal/assistant/llm"
	"github.com/quickspin-labs/assistant/internal/assistant/model"
	logx "github.com/quickspin-labs/assistant/pkg/logger"
)

//go:embed template/classifier_prompt.txt
var classifierPrompt string

type Classifier struct {
	completer llm.Completer
}

func NewClassifier(completer llm.Completer) *Classifier {
	return &Classifier{completer: completer}
}

// Classify maps a message to an intent. The model gets exactly one attempt;
// on any failure the keyword rules decide instead.
func (c *Classifier) Classify(ctx context.Context, message, conversationContext string) model.Intent {
	if c.completer != nil {
		if it, ok := c.classifyLLM(ctx, message, conversationContext); ok {
			return it
		}
	}
	return classifyKeywords(message)
}

func (c *Classifier) classifyLLM(ctx context.Context, message, conversationContext string) (model.Intent, bool) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	content := strings.NewReplacer(
		"{conversation_context}", conversationContext,
		"{message}", message,
	).Replace(classifierPrompt)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		logx.Warn().Err(err).Msg("classifier prompt render failed, falling back to keywords")
		return "", false
	}

	reply, err := c.completer.Complete(ctx, msgs)
	if err != nil {
		logx.Warn().Err(err).Msg("classifier model call failed, falling back to keywords")
		return "", false
	}

	label := strings.ToLower(strings.TrimSpace(reply))
	label = strings.Trim(label, "\"'`.")
	it := model.ParseIntent(label)
	if string(it) != label {
		// the model answered something outside the label set
		logx.Warn().Str("reply", label).Msg("classifier returned unknown label, falling back to keywords")
		return "", false
	}
	return it, true
}
