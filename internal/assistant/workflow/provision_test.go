package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickspin-labs/assistant/internal/assistant/composer"
	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/core/errx"
)

func provisionInput(message string) Input {
	return Input{
		ConversationID: "conv-1",
		UserID:         "user-1",
		OrganizationID: "org-1",
		Token:          "tok",
		Message:        message,
	}
}

func TestProvisionRedisEndToEnd(t *testing.T) {
	svc := &fakeServices{quota: model.Quota{MaxServices: 10, MaxMemoryMB: 8192}}
	eng := testEngine(testDeps(svc, &fakeOrchestrator{}, nil))

	run, err := eng.Start(context.Background(), KindProvision,
		provisionInput("I need a Redis instance for caching with 256MB RAM"))
	require.NoError(t, err)

	// paused at the estimate gate, nothing created yet
	require.Equal(t, StatusAwaitingConfirmation, run.Status)
	assert.Equal(t, "Estimate", run.CurrentStep)
	assert.Zero(t, svc.mutations())

	require.NotNil(t, run.Outcome.Config)
	assert.Equal(t, model.ServiceRedis, run.Outcome.Config.ServiceType)
	assert.Equal(t, 256, run.Outcome.Config.MemoryMB)
	assert.Equal(t, model.TierStarter, run.Outcome.Config.Tier)

	require.NotNil(t, run.Outcome.Estimate)
	assert.InDelta(t, 0.008, run.Outcome.Estimate.HourlyUSD, 1e-9)

	// accept completes the run with exactly one create call
	resumed, err := eng.Resume(context.Background(), run.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, resumed.Status)
	assert.Equal(t, 1, svc.mutations())
	assert.Equal(t, composer.OutcomeProvisioned, resumed.Outcome.Kind)
	require.NotNil(t, resumed.Outcome.Service)
	assert.Equal(t, model.StatusProvisioning, resumed.Outcome.Service.Status)

	// audit trail covers every step, in declared order
	var steps []string
	for _, so := range resumed.StepOutputs {
		steps = append(steps, so.Step)
	}
	assert.Equal(t, []string{"Extract", "Validate", "Estimate", "Execute", "Summarize"}, steps)
}

func TestProvisionRejectAborts(t *testing.T) {
	svc := &fakeServices{quota: model.Quota{MaxServices: 10, MaxMemoryMB: 8192}}
	eng := testEngine(testDeps(svc, &fakeOrchestrator{}, nil))

	run, err := eng.Start(context.Background(), KindProvision,
		provisionInput("set up a postgresql database"))
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingConfirmation, run.Status)

	resumed, err := eng.Resume(context.Background(), run.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusAborted, resumed.Status)
	assert.Equal(t, composer.OutcomeAborted, resumed.Outcome.Kind)
	assert.Zero(t, svc.mutations())

	// a terminal run cannot be resumed again
	_, err = eng.Resume(context.Background(), run.ID, true)
	assert.Error(t, err)
	assert.Zero(t, svc.mutations())
}

func TestProvisionExtractionFailure(t *testing.T) {
	svc := &fakeServices{quota: model.Quota{}}
	eng := testEngine(testDeps(svc, &fakeOrchestrator{}, nil))

	run, err := eng.Start(context.Background(), KindProvision,
		provisionInput("please create something nice"))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, run.Status)
	assert.True(t, errx.IsKind(run.Err, errx.KindExtraction))
	assert.Equal(t, "Extract", run.CurrentStep)
	assert.Empty(t, run.StepOutputs)
	assert.Zero(t, svc.mutations())
}

func TestProvisionValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		quota    model.Quota
		quotaErr error
		wantKind errx.Kind
	}{
		{
			name:     "service limit reached",
			quota:    model.Quota{MaxServices: 2, UsedServices: 2, MaxMemoryMB: 8192},
			wantKind: errx.KindQuotaExceeded,
		},
		{
			name:     "memory quota exceeded",
			quota:    model.Quota{MaxServices: 10, MaxMemoryMB: 512, UsedMemoryMB: 400},
			wantKind: errx.KindQuotaExceeded,
		},
		{
			name:     "tier not allowed",
			quota:    model.Quota{MaxServices: 10, MaxMemoryMB: 8192, AllowedTiers: []model.ServiceTier{model.TierPro}},
			wantKind: errx.KindPermissionDenied,
		},
		{
			name:     "quota endpoint denies access",
			quotaErr: errx.Newf(errx.KindPermissionDenied, "forbidden"),
			wantKind: errx.KindPermissionDenied,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeServices{quota: tc.quota, quotaErr: tc.quotaErr}
			eng := testEngine(testDeps(svc, &fakeOrchestrator{}, nil))

			run, err := eng.Start(context.Background(), KindProvision,
				provisionInput("create a redis cache with 256MB"))
			require.NoError(t, err)

			assert.Equal(t, StatusFailed, run.Status)
			assert.True(t, errx.IsKind(run.Err, tc.wantKind), "got %v", run.Err)
			assert.Zero(t, svc.mutations())

			// Extract's output survives the failure for diagnostic replay
			_, ok := run.Output("Extract")
			assert.True(t, ok)
		})
	}
}

func TestProvisionExecuteFailureCarriesResourceID(t *testing.T) {
	svc := &fakeServices{
		quota: model.Quota{MaxServices: 10, MaxMemoryMB: 8192},
		createErr: &errx.Error{
			Kind:       errx.KindProvision,
			Message:    "backing cluster rejected the instance",
			ResourceID: "svc-partial-123",
		},
	}
	eng := testEngine(testDeps(svc, &fakeOrchestrator{}, nil))

	run, err := eng.Start(context.Background(), KindProvision,
		provisionInput("provision a rabbitmq broker"))
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingConfirmation, run.Status)

	resumed, err := eng.Resume(context.Background(), run.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, resumed.Status)
	assert.True(t, errx.IsKind(resumed.Err, errx.KindProvision))

	var xe *errx.Error
	require.ErrorAs(t, resumed.Err, &xe)
	assert.Equal(t, "svc-partial-123", xe.ResourceID)

	// the earlier steps' outputs are retained, not rolled back
	_, ok := resumed.Output("Estimate")
	assert.True(t, ok)
	assert.Equal(t, 1, svc.mutations())
}

func TestProvisionDefaults(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		wantType    model.ServiceType
		wantMemory  int
		wantStorage int
		wantTier    model.ServiceTier
	}{
		{"redis default memory", "create a redis cache", model.ServiceRedis, 256, 0, model.TierStarter},
		{"rabbitmq default memory", "i want a rabbitmq queue", model.ServiceRabbitMQ, 512, 0, model.TierStarter},
		{"database defaults", "set up mongodb", model.ServiceMongoDB, 1024, 10, model.TierStarter},
		{"explicit memory", "create redis with 2GB memory", model.ServiceRedis, 2048, 0, model.TierStarter},
		{"production upgrades tier", "create a production postgresql", model.ServicePostgreSQL, 1024, 10, model.TierPro},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeServices{quota: model.Quota{MaxServices: 100, MaxMemoryMB: 1 << 20}}
			eng := testEngine(testDeps(svc, &fakeOrchestrator{}, nil))

			run, err := eng.Start(context.Background(), KindProvision, provisionInput(tc.message))
			require.NoError(t, err)
			require.Equal(t, StatusAwaitingConfirmation, run.Status)

			cfg := run.Outcome.Config
			require.NotNil(t, cfg)
			assert.Equal(t, tc.wantType, cfg.ServiceType)
			assert.Equal(t, tc.wantMemory, cfg.MemoryMB)
			assert.Equal(t, tc.wantStorage, cfg.StorageGB)
			assert.Equal(t, tc.wantTier, cfg.Tier)
			assert.Equal(t, 1, cfg.Replicas)
		})
	}
}
