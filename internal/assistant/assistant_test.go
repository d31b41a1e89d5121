package assistant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickspin-labs/assistant/internal/assistant/composer"
	"github.com/quickspin-labs/assistant/internal/assistant/conversation"
	"github.com/quickspin-labs/assistant/internal/assistant/intent"
	"github.com/quickspin-labs/assistant/internal/assistant/knowledge"
	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/assistant/pricing"
	"github.com/quickspin-labs/assistant/internal/assistant/workflow"
	"github.com/quickspin-labs/assistant/internal/core/errx"
)

// stubServices provisions in memory and counts mutating calls.
type stubServices struct {
	mu      sync.Mutex
	creates int
}

func (s *stubServices) ListServices(ctx context.Context, token, orgID string) ([]model.Service, error) {
	return nil, nil
}

func (s *stubServices) GetService(ctx context.Context, token, serviceID string) (*model.Service, error) {
	return nil, errx.Newf(errx.KindServiceNotFound, "not found")
}

func (s *stubServices) CreateService(ctx context.Context, token string, req model.ProvisionRequest) (*model.Service, error) {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	return &model.Service{
		ID:          "svc-1",
		Name:        req.Name,
		ServiceType: req.Config.ServiceType,
		Status:      model.StatusProvisioning,
		Config:      req.Config,
	}, nil
}

func (s *stubServices) GetMetrics(ctx context.Context, token, serviceID string) (model.ServiceMetrics, error) {
	return model.ServiceMetrics{}, nil
}

func (s *stubServices) GetLogs(ctx context.Context, token, serviceID string, lines int) ([]string, error) {
	return nil, nil
}

func (s *stubServices) GetQuota(ctx context.Context, token, orgID string) (model.Quota, error) {
	return model.Quota{MaxServices: 10, MaxMemoryMB: 8192}, nil
}

func (s *stubServices) GetBilling(ctx context.Context, token, orgID string) (*model.BillingSummary, error) {
	return &model.BillingSummary{}, nil
}

type stubOrchestrator struct{}

func (stubOrchestrator) GetPodStatus(ctx context.Context, serviceID string) (*model.PodStatus, error) {
	return nil, errx.Newf(errx.KindCollaboratorUnavailable, "no cluster")
}

func (stubOrchestrator) GetLogs(ctx context.Context, serviceID string, tailLines int64) ([]string, error) {
	return nil, errx.Newf(errx.KindCollaboratorUnavailable, "no cluster")
}

// memRepo is the in-memory persistence collaborator.
type memRepo struct {
	mu        sync.Mutex
	turns     map[string][]model.Turn
	appendErr error
}

func newMemRepo() *memRepo { return &memRepo{turns: make(map[string][]model.Turn)} }

func (m *memRepo) AppendTurn(ctx context.Context, conv model.Conversation, turn model.Turn) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[conv.ID] = append(m.turns[conv.ID], turn)
	return nil
}

func (m *memRepo) RecentTurns(ctx context.Context, conversationID string, limit int) ([]model.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.turns[conversationID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]model.Turn, len(all))
	copy(out, all)
	return out, nil
}

func (m *memRepo) ListConversations(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	return nil, nil
}

func (m *memRepo) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	return nil, nil
}

func (m *memRepo) DeleteConversation(ctx context.Context, conversationID string) error { return nil }

type emptyStore struct{}

func (emptyStore) Search(context.Context, string, knowledge.Category, int) ([]knowledge.Snippet, error) {
	return nil, nil
}

func newTestService(repo *memRepo, svcs *stubServices) *Service {
	var cfg model.ConversationConfig
	cfg.TTL = "720h"
	cfg.History.MaxTurns = 10

	deps := &workflow.Deps{
		Services:             svcs,
		Orchestrator:         stubOrchestrator{},
		Retriever:            knowledge.NewRetriever(emptyStore{}),
		Pricing:              pricing.NewTable(),
		StepTimeout:          time.Second,
		LLMTimeout:           time.Second,
		IdleAfter:            168 * time.Hour,
		UtilizationThreshold: 0.30,
	}

	return New(
		conversation.NewManager(repo, cfg),
		intent.NewClassifier(nil),
		workflow.NewEngine(deps, 30*time.Minute),
		composer.New(nil),
		knowledge.NewRetriever(emptyStore{}),
	)
}

func TestProcessMessageProvisionConfirmFlow(t *testing.T) {
	repo := newMemRepo()
	svcs := &stubServices{}
	s := newTestService(repo, svcs)
	ctx := context.Background()

	res, err := s.ProcessMessage(ctx, Request{
		ConversationID: "conv-1",
		UserID:         "u1",
		OrganizationID: "org-1",
		Token:          "tok",
		Message:        "I need a Redis instance for caching with 256MB RAM",
	})
	require.NoError(t, err)
	assert.Equal(t, model.IntentProvisionService, res.Intent)
	assert.Equal(t, workflow.StatusAwaitingConfirmation, res.Status)
	assert.NotEmpty(t, res.RunID)
	assert.Contains(t, res.ResponseText, "$0.008/hour")
	assert.Zero(t, svcs.creates)

	// a plain yes resumes the pending run
	res2, err := s.ProcessMessage(ctx, Request{
		ConversationID: "conv-1",
		UserID:         "u1",
		OrganizationID: "org-1",
		Token:          "tok",
		Message:        "yes",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, res2.Status)
	assert.Equal(t, res.RunID, res2.RunID)
	assert.Equal(t, 1, svcs.creates)
	assert.Contains(t, res2.ResponseText, "created")

	// all four turns were persisted and the assistant turns carry the run id
	turns := repo.turns["conv-1"]
	require.Len(t, turns, 4)
	assert.Equal(t, res.RunID, turns[1].Metadata[model.TurnMetaRunID])
	assert.Equal(t, res.RunID, turns[3].Metadata[model.TurnMetaRunID])
}

func TestProcessMessageRejectAborts(t *testing.T) {
	repo := newMemRepo()
	svcs := &stubServices{}
	s := newTestService(repo, svcs)
	ctx := context.Background()

	res, err := s.ProcessMessage(ctx, Request{
		ConversationID: "conv-1",
		UserID:         "u1",
		OrganizationID: "org-1",
		Message:        "create a postgresql database",
	})
	require.NoError(t, err)
	require.Equal(t, workflow.StatusAwaitingConfirmation, res.Status)

	res2, err := s.ProcessMessage(ctx, Request{
		ConversationID: "conv-1",
		UserID:         "u1",
		OrganizationID: "org-1",
		Message:        "no, cancel that",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusAborted, res2.Status)
	assert.Zero(t, svcs.creates)
}

func TestProcessMessageUnrelatedReplyKeepsGateOpen(t *testing.T) {
	repo := newMemRepo()
	svcs := &stubServices{}
	s := newTestService(repo, svcs)
	ctx := context.Background()

	res, err := s.ProcessMessage(ctx, Request{
		ConversationID: "conv-1",
		UserID:         "u1",
		OrganizationID: "org-1",
		Message:        "create a redis cache",
	})
	require.NoError(t, err)
	require.Equal(t, workflow.StatusAwaitingConfirmation, res.Status)

	// an off-topic message is answered normally without resolving the gate
	res2, err := s.ProcessMessage(ctx, Request{
		ConversationID: "conv-1",
		UserID:         "u1",
		OrganizationID: "org-1",
		Message:        "what does the starter tier include?",
	})
	require.NoError(t, err)
	assert.Empty(t, res2.RunID)
	assert.Zero(t, svcs.creates)

	// the original confirmation still works afterwards
	res3, err := s.ProcessMessage(ctx, Request{
		ConversationID: "conv-1",
		UserID:         "u1",
		OrganizationID: "org-1",
		Message:        "yes",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, res3.Status)
	assert.Equal(t, res.RunID, res3.RunID)
	assert.Equal(t, 1, svcs.creates)
}

func TestProcessMessagePassthrough(t *testing.T) {
	repo := newMemRepo()
	s := newTestService(repo, &stubServices{})

	res, err := s.ProcessMessage(context.Background(), Request{
		ConversationID: "conv-1",
		UserID:         "u1",
		OrganizationID: "org-1",
		Message:        "hello there",
	})
	require.NoError(t, err)
	assert.Equal(t, model.IntentGeneralQuestion, res.Intent)
	assert.Empty(t, res.RunID)
	assert.Equal(t, workflow.StatusCompleted, res.Status)
	assert.NotEmpty(t, res.ResponseText)
}

func TestProcessMessageGeneratesConversationID(t *testing.T) {
	repo := newMemRepo()
	s := newTestService(repo, &stubServices{})

	res, err := s.ProcessMessage(context.Background(), Request{
		UserID:         "u1",
		OrganizationID: "org-1",
		Message:        "hello",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ConversationID)
	assert.Len(t, repo.turns[res.ConversationID], 2)
}

func TestProcessMessagePersistenceFailureIsFatal(t *testing.T) {
	repo := newMemRepo()
	repo.appendErr = errx.Newf(errx.KindPersistence, "storage unreachable")
	s := newTestService(repo, &stubServices{})

	_, err := s.ProcessMessage(context.Background(), Request{
		ConversationID: "conv-1",
		UserID:         "u1",
		OrganizationID: "org-1",
		Message:        "hello",
	})
	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindPersistence))
}
