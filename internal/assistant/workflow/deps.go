package workflow

import (
	"context"
	"time"

	"github.com/quickspin-labs/assistant/internal/assistant/knowledge"
	"github.com/quickspin-labs/assistant/internal/assistant/llm"
	"github.com/quickspin-labs/assistant/internal/assistant/model"
)

// ServicesAPI is the services-platform collaborator contract the steps
// consume. The token is the caller's bearer credential, threaded through from
// the originating request.
type ServicesAPI interface {
	ListServices(ctx context.Context, token, orgID string) ([]model.Service, error)
	GetService(ctx context.Context, token, serviceID string) (*model.Service, error)
	CreateService(ctx context.Context, token string, req model.ProvisionRequest) (*model.Service, error)
	GetMetrics(ctx context.Context, token, serviceID string) (model.ServiceMetrics, error)
	GetLogs(ctx context.Context, token, serviceID string, lines int) ([]string, error)
	GetQuota(ctx context.Context, token, orgID string) (model.Quota, error)
	GetBilling(ctx context.Context, token, orgID string) (*model.BillingSummary, error)
}

// Orchestrator is the container-platform collaborator used by the diagnose
// workflow's gather step.
type Orchestrator interface {
	GetPodStatus(ctx context.Context, serviceID string) (*model.PodStatus, error)
	GetLogs(ctx context.Context, serviceID string, tailLines int64) ([]string, error)
}

// Estimator prices a service configuration deterministically.
type Estimator interface {
	Estimate(cfg model.ServiceConfig) model.CostEstimate
}

// Deps bundles every collaborator a step may touch. Steps receive it by
// injection so each one can be tested against fakes.
type Deps struct {
	Services     ServicesAPI
	Orchestrator Orchestrator
	Retriever    *knowledge.Retriever
	Completer    llm.Completer
	Pricing      Estimator

	// StepTimeout bounds each collaborator call inside a step; LLMTimeout
	// bounds model calls, which are allowed to be slower.
	StepTimeout time.Duration
	LLMTimeout  time.Duration

	// Optimize-workflow thresholds.
	IdleAfter            time.Duration
	UtilizationThreshold float64
}

func (d *Deps) stepCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.StepTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.StepTimeout)
}

func (d *Deps) llmCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.LLMTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.LLMTimeout)
}
