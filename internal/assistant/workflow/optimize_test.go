package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickspin-labs/assistant/internal/assistant/composer"
	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/core/errx"
)

func optimizeInput() Input {
	return Input{
		ConversationID: "conv-opt",
		UserID:         "user-1",
		OrganizationID: "org-1",
		Token:          "tok",
		Message:        "How can I reduce my bill?",
	}
}

// fleet: two idle services (8 days inactive) and one at 25% utilization.
func optimizeFleet() []model.Service {
	eightDaysAgo := time.Now().Add(-8 * 24 * time.Hour)

	idle1 := runningService("svc-a", "cache-old", model.ServiceRedis, 256, 0.008)
	idle1.Metrics.LastActivityAt = activityAt(eightDaysAgo)

	idle2 := runningService("svc-b", "queue-old", model.ServiceRabbitMQ, 512, 0.015)
	idle2.Metrics.LastActivityAt = activityAt(eightDaysAgo)

	under := runningService("svc-c", "db-main", model.ServicePostgreSQL, 1024, 0.02)
	under.Metrics.LastActivityAt = activityAt(time.Now().Add(-time.Hour))
	under.Metrics.MemoryUsageMB = 256 // 25% of 1024
	under.Metrics.Connections = 4

	return []model.Service{idle1, idle2, under}
}

func TestOptimizeIdleAndUnderutilized(t *testing.T) {
	svc := &fakeServices{services: optimizeFleet()}
	eng := testEngine(testDeps(svc, &fakeOrchestrator{}, nil))

	run, err := eng.Start(context.Background(), KindOptimize, optimizeInput())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, composer.OutcomeOptimization, run.Outcome.Kind)

	recs := run.Outcome.Recommendations
	require.Len(t, recs, 3)

	// both idle services first at high priority, the underutilized one after
	assert.Equal(t, model.PriorityHigh, recs[0].Priority)
	assert.Equal(t, model.PriorityHigh, recs[1].Priority)
	assert.Equal(t, model.PriorityMedium, recs[2].Priority)
	assert.Equal(t, model.RecIdleResourceCleanup, recs[0].Type)
	assert.Equal(t, model.RecIdleResourceCleanup, recs[1].Type)
	assert.Equal(t, model.RecResourceRightsizing, recs[2].Type)

	// within the idle pair, the bigger saving leads
	assert.GreaterOrEqual(t, recs[0].EstimatedSavingsMonthly, recs[1].EstimatedSavingsMonthly)
	for _, r := range recs {
		assert.GreaterOrEqual(t, r.EstimatedSavingsMonthly, 0.0)
	}

	// idle saves the full monthly cost, underutilized half of it
	assert.InDelta(t, 0.015*720, recs[0].EstimatedSavingsMonthly, 1e-9)
	assert.InDelta(t, 0.008*720, recs[1].EstimatedSavingsMonthly, 1e-9)
	assert.InDelta(t, 0.02*720*0.5, recs[2].EstimatedSavingsMonthly, 1e-9)

	require.NotNil(t, run.Outcome.Analysis)
	assert.InDelta(t, (0.008+0.015+0.02)*720, run.Outcome.Analysis.TotalMonthlyUSD, 1e-9)

	// advisory only: no mutating collaborator call under any input
	assert.Zero(t, svc.mutations())
}

func TestOptimizeDeterministicOverUnchangedFleet(t *testing.T) {
	fleet := optimizeFleet()

	run1 := mustOptimize(t, fleet)
	run2 := mustOptimize(t, fleet)

	require.Equal(t, len(run1.Outcome.Recommendations), len(run2.Outcome.Recommendations))
	for i := range run1.Outcome.Recommendations {
		a, b := run1.Outcome.Recommendations[i], run2.Outcome.Recommendations[i]
		assert.Equal(t, a.ServiceID, b.ServiceID)
		assert.Equal(t, a.Priority, b.Priority)
		assert.Equal(t, a.Type, b.Type)
		assert.Equal(t, a.EstimatedSavingsMonthly, b.EstimatedSavingsMonthly)
	}
	assert.Equal(t, run1.Outcome.Analysis.TotalMonthlyUSD, run2.Outcome.Analysis.TotalMonthlyUSD)
}

func mustOptimize(t *testing.T, fleet []model.Service) *Run {
	t.Helper()
	svc := &fakeServices{services: fleet}
	eng := testEngine(testDeps(svc, &fakeOrchestrator{}, nil))
	run, err := eng.Start(context.Background(), KindOptimize, optimizeInput())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, run.Status)
	return run
}

func TestOptimizeFetchTimeout(t *testing.T) {
	svc := &fakeServices{
		listErr: errx.Newf(errx.KindCollaboratorTimeout, "services api timed out"),
	}
	eng := testEngine(testDeps(svc, &fakeOrchestrator{}, nil))

	run, err := eng.Start(context.Background(), KindOptimize, optimizeInput())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, run.Status)
	assert.True(t, errx.IsKind(run.Err, errx.KindCollaboratorTimeout))
	assert.Empty(t, run.Outcome.Recommendations)
	assert.Nil(t, run.Outcome.Analysis)
}

func TestOptimizeEmptyOrganizationCompletes(t *testing.T) {
	svc := &fakeServices{}
	eng := testEngine(testDeps(svc, &fakeOrchestrator{}, nil))

	run, err := eng.Start(context.Background(), KindOptimize, optimizeInput())
	require.NoError(t, err)

	// an org with no services is a valid empty fleet, not a lookup failure
	require.Equal(t, StatusCompleted, run.Status)
	assert.NoError(t, run.Err)
	assert.Equal(t, composer.OutcomeOptimization, run.Outcome.Kind)
	assert.Empty(t, run.Outcome.Recommendations)
	require.NotNil(t, run.Outcome.Analysis)
	assert.Zero(t, run.Outcome.Analysis.TotalMonthlyUSD)
	assert.Zero(t, run.Outcome.Analysis.OptimizationPotential)
	assert.Empty(t, run.Outcome.Analysis.TopExpensiveServices)
	assert.Zero(t, svc.mutations())
}

func TestOptimizeHealthyFleetHasNoRecommendations(t *testing.T) {
	svc := runningService("svc-ok", "cache-busy", model.ServiceRedis, 256, 0.008)
	svc.Metrics.LastActivityAt = activityAt(time.Now().Add(-time.Minute))
	svc.Metrics.MemoryUsageMB = 200 // 78% utilization
	fake := &fakeServices{services: []model.Service{svc}}
	eng := testEngine(testDeps(fake, &fakeOrchestrator{}, nil))

	run, err := eng.Start(context.Background(), KindOptimize, optimizeInput())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, run.Status)
	assert.Empty(t, run.Outcome.Recommendations)
	assert.Zero(t, run.Outcome.Analysis.OptimizationPotential)
}
