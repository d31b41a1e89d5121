// Package llm wraps the language-model collaborator behind a single
// text-completion contract. Workflow steps never see the provider; they get a
// Completer and treat it as an opaque, possibly slow capability.
package llm

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Completer is the language-model collaborator contract: one synchronous
// completion per call. Callers budget for multi-second latency and bound
// every call with a context deadline.
type Completer interface {
	Complete(ctx context.Context, messages []*schema.Message) (string, error)
}

// CompleterFunc adapts a function to the Completer interface; tests use it to
// stub model behaviour.
type CompleterFunc func(ctx context.Context, messages []*schema.Message) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, messages []*schema.Message) (string, error) {
	return f(ctx, messages)
}
