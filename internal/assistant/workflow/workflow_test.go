package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/quickspin-labs/assistant/internal/assistant/knowledge"
	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/assistant/pricing"
	"github.com/quickspin-labs/assistant/internal/core/errx"
)

// fakeServices is an in-memory ServicesAPI that records every mutating call.
type fakeServices struct {
	mu sync.Mutex

	services []model.Service
	quota    model.Quota
	metrics  map[string]model.ServiceMetrics

	listErr    error
	quotaErr   error
	createErr  error
	metricsErr error

	createCalls []model.ProvisionRequest
}

func (f *fakeServices) ListServices(ctx context.Context, token, orgID string) ([]model.Service, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Service, len(f.services))
	copy(out, f.services)
	return out, nil
}

func (f *fakeServices) GetService(ctx context.Context, token, serviceID string) (*model.Service, error) {
	for i := range f.services {
		if f.services[i].ID == serviceID {
			return &f.services[i], nil
		}
	}
	return nil, errx.Newf(errx.KindServiceNotFound, "service %s not found", serviceID)
}

func (f *fakeServices) CreateService(ctx context.Context, token string, req model.ProvisionRequest) (*model.Service, error) {
	f.mu.Lock()
	f.createCalls = append(f.createCalls, req)
	f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &model.Service{
		ID:          "svc-" + req.Name,
		Name:        req.Name,
		ServiceType: req.Config.ServiceType,
		Tier:        req.Config.Tier,
		Status:      model.StatusProvisioning,
		Config:      req.Config,
	}, nil
}

func (f *fakeServices) GetMetrics(ctx context.Context, token, serviceID string) (model.ServiceMetrics, error) {
	if f.metricsErr != nil {
		return model.ServiceMetrics{}, f.metricsErr
	}
	return f.metrics[serviceID], nil
}

func (f *fakeServices) GetLogs(ctx context.Context, token, serviceID string, lines int) ([]string, error) {
	return nil, nil
}

func (f *fakeServices) GetQuota(ctx context.Context, token, orgID string) (model.Quota, error) {
	if f.quotaErr != nil {
		return model.Quota{}, f.quotaErr
	}
	return f.quota, nil
}

func (f *fakeServices) GetBilling(ctx context.Context, token, orgID string) (*model.BillingSummary, error) {
	return &model.BillingSummary{OrganizationID: orgID}, nil
}

func (f *fakeServices) mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.createCalls)
}

// fakeOrchestrator serves canned pod data.
type fakeOrchestrator struct {
	pod    *model.PodStatus
	podErr error

	logs    []string
	logsErr error
}

func (f *fakeOrchestrator) GetPodStatus(ctx context.Context, serviceID string) (*model.PodStatus, error) {
	if f.podErr != nil {
		return nil, f.podErr
	}
	return f.pod, nil
}

func (f *fakeOrchestrator) GetLogs(ctx context.Context, serviceID string, tailLines int64) ([]string, error) {
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return f.logs, nil
}

// fakeStore serves a fixed snippet list through the retriever.
type fakeStore struct {
	snippets []knowledge.Snippet
	err      error
}

func (f *fakeStore) Search(ctx context.Context, query string, category knowledge.Category, topK int) ([]knowledge.Snippet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snippets, nil
}

func testDeps(svc *fakeServices, orch *fakeOrchestrator, store knowledge.Store) *Deps {
	if store == nil {
		store = &fakeStore{}
	}
	return &Deps{
		Services:             svc,
		Orchestrator:         orch,
		Retriever:            knowledge.NewRetriever(store),
		Completer:            nil, // rule-based paths keep tests deterministic
		Pricing:              pricing.NewTable(),
		StepTimeout:          time.Second,
		LLMTimeout:           time.Second,
		IdleAfter:            168 * time.Hour,
		UtilizationThreshold: 0.30,
	}
}

func testEngine(d *Deps) *Engine {
	return NewEngine(d, 30*time.Minute)
}

func runningService(id, name string, st model.ServiceType, memMB int, hourly float64) model.Service {
	return model.Service{
		ID:          id,
		Name:        name,
		ServiceType: st,
		Tier:        model.TierStarter,
		Status:      model.StatusRunning,
		CreatedAt:   time.Now().Add(-30 * 24 * time.Hour),
		Config: model.ServiceConfig{
			ServiceType: st,
			Tier:        model.TierStarter,
			MemoryMB:    memMB,
			CPUCores:    0.5,
			Replicas:    1,
		},
		EstimatedCostHourly: hourly,
	}
}

func activityAt(t time.Time) *time.Time { return &t }
