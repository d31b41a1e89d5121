package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/quickspin-labs/assistant/internal/assistant/composer"
	"github.com/quickspin-labs/assistant/internal/assistant/intent"
	"github.com/quickspin-labs/assistant/internal/assistant/knowledge"
	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/core/errx"
	logx "github.com/quickspin-labs/assistant/pkg/logger"
)

// Provision drives a new service from natural language to a created resource.
// The confirmation gate sits at Estimate: nothing is created until the user
// has seen the cost and explicitly accepted.
func provisionDefinition() Definition {
	return Definition{
		Kind: KindProvision,
		Steps: []Step{
			{Name: "Extract", Run: stepExtract},
			{Name: "Validate", Run: stepValidate},
			{Name: "Estimate", Run: stepEstimate},
			{Name: "Execute", Run: stepExecute},
			{Name: "Summarize", Run: stepSummarize},
		},
	}
}

// provisionProposal is the confirmation payload shown to the user.
type provisionProposal struct {
	Name     string              `json:"name"`
	Config   model.ServiceConfig `json:"config"`
	Estimate model.CostEstimate  `json:"estimate"`
}

// extractedConfig is the JSON shape the extraction prompt asks the model for.
type extractedConfig struct {
	ServiceType      string  `json:"service_type"`
	Tier             string  `json:"tier"`
	MemoryMB         int     `json:"memory_mb"`
	CPUCores         float64 `json:"cpu_cores"`
	StorageGB        int     `json:"storage_gb"`
	Replicas         int     `json:"replicas"`
	HighAvailability bool    `json:"high_availability"`
}

const extractPrompt = `Extract the service configuration from the user's request.

Reference documentation:
%s

Reply with ONLY a JSON object, no prose:
{"service_type": "redis|rabbitmq|postgresql|mongodb|mysql|elasticsearch",
 "tier": "starter|pro|enterprise",
 "memory_mb": 0, "cpu_cores": 0, "storage_gb": 0, "replicas": 1,
 "high_availability": false}

Leave a numeric field at 0 when the user did not specify it.
User request: %s`

func stepExtract(ctx context.Context, r *Run, d *Deps) StepResult {
	var docs string
	if d.Retriever != nil {
		snips := d.Retriever.Retrieve(ctx, r.Message, knowledge.CategorySetup, 1)
		for _, s := range snips {
			docs += s.Content + "\n"
		}
	}

	cfg, ok := extractWithModel(ctx, d, r.Message, docs)
	if !ok {
		cfg, ok = extractWithRules(r.Message)
	}
	if !ok {
		return Fail(errx.Newf(errx.KindExtraction,
			"no recognizable service type in request"))
	}
	applyDefaults(&cfg)

	name := fmt.Sprintf("%s-%s-%s", cfg.ServiceType, cfg.Tier, uuid.NewString()[:8])
	r.Outcome.Config = &cfg
	r.Outcome.ServiceName = name
	return Advance(provisionProposal{Name: name, Config: cfg})
}

func extractWithModel(ctx context.Context, d *Deps, message, docs string) (model.ServiceConfig, bool) {
	if d.Completer == nil {
		return model.ServiceConfig{}, false
	}
	lctx, cancel := d.llmCtx(ctx)
	defer cancel()

	reply, err := d.Completer.Complete(lctx, []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(extractPrompt, docs, message)),
	})
	if err != nil {
		logx.Warn().Err(err).Msg("extraction model call failed, using rule-based extraction")
		return model.ServiceConfig{}, false
	}

	var ec extractedConfig
	if err := json.Unmarshal([]byte(stripFences(reply)), &ec); err != nil {
		logx.Warn().Err(err).Msg("extraction reply was not valid JSON, using rule-based extraction")
		return model.ServiceConfig{}, false
	}
	st := model.ServiceType(strings.ToLower(ec.ServiceType))
	if !knownServiceType(st) {
		return model.ServiceConfig{}, false
	}
	cfg := model.ServiceConfig{
		ServiceType:      st,
		Tier:             model.ServiceTier(strings.ToLower(ec.Tier)),
		MemoryMB:         ec.MemoryMB,
		CPUCores:         ec.CPUCores,
		StorageGB:        ec.StorageGB,
		Replicas:         ec.Replicas,
		HighAvailability: ec.HighAvailability,
	}
	return cfg, true
}

// extractWithRules is the deterministic fallback: service type by name scan,
// memory by pattern, tier upgraded for production wording.
func extractWithRules(message string) (model.ServiceConfig, bool) {
	st := intent.DetectServiceType(message)
	if st == "" {
		return model.ServiceConfig{}, false
	}
	cfg := model.ServiceConfig{ServiceType: st}
	if mb, ok := parseMemoryMB(message); ok {
		cfg.MemoryMB = mb
	}
	lower := strings.ToLower(message)
	if strings.Contains(lower, "production") || strings.Contains(lower, "high availability") {
		cfg.Tier = model.TierPro
		cfg.HighAvailability = strings.Contains(lower, "high availability")
	}
	return cfg, true
}

var memoryPattern = regexp.MustCompile(`(?i)(\d+)\s*(mb|gb)\b`)

func parseMemoryMB(message string) (int, bool) {
	m := memoryPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	var n int
	fmt.Sscanf(m[1], "%d", &n)
	if strings.EqualFold(m[2], "gb") {
		n *= 1024
	}
	return n, n > 0
}

// applyDefaults fills unspecified fields with the platform defaults: starter
// tier, 256MB for redis, 512MB for rabbitmq, 1GB for databases, half a core,
// 10GB storage for databases, one replica.
func applyDefaults(cfg *model.ServiceConfig) {
	switch cfg.Tier {
	case model.TierStarter, model.TierPro, model.TierEnterprise:
	default:
		cfg.Tier = model.TierStarter
	}
	if cfg.MemoryMB <= 0 {
		switch {
		case cfg.ServiceType == model.ServiceRedis:
			cfg.MemoryMB = 256
		case cfg.ServiceType == model.ServiceRabbitMQ:
			cfg.MemoryMB = 512
		default:
			cfg.MemoryMB = 1024
		}
	}
	if cfg.CPUCores <= 0 {
		cfg.CPUCores = 0.5
	}
	if cfg.ServiceType.IsDatabase() && cfg.StorageGB <= 0 {
		cfg.StorageGB = 10
	}
	if !cfg.ServiceType.IsDatabase() {
		cfg.StorageGB = 0
	}
	if cfg.Replicas <= 0 {
		cfg.Replicas = 1
	}
}

func knownServiceType(st model.ServiceType) bool {
	for _, k := range model.KnownServiceTypes {
		if k == st {
			return true
		}
	}
	return false
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func stepValidate(ctx context.Context, r *Run, d *Deps) StepResult {
	cfg := r.Outcome.Config

	sctx, cancel := d.stepCtx(ctx)
	defer cancel()
	quota, err := d.Services.GetQuota(sctx, r.Token, r.OrganizationID)
	if err != nil {
		return Fail(err)
	}

	if !quota.TierAllowed(cfg.Tier) {
		return Fail(errx.Newf(errx.KindPermissionDenied,
			"tier %q is not available to your organization", cfg.Tier))
	}
	if quota.MaxServices > 0 && quota.UsedServices+1 > quota.MaxServices {
		return Fail(errx.Newf(errx.KindQuotaExceeded,
			"service limit reached (%d of %d in use)", quota.UsedServices, quota.MaxServices))
	}
	replicas := cfg.Replicas
	if replicas < 1 {
		replicas = 1
	}
	requested := cfg.MemoryMB * replicas
	if quota.MaxMemoryMB > 0 && quota.UsedMemoryMB+requested > quota.MaxMemoryMB {
		return Fail(errx.Newf(errx.KindQuotaExceeded,
			"memory quota exceeded: %dMB requested, %dMB of %dMB in use",
			requested, quota.UsedMemoryMB, quota.MaxMemoryMB))
	}
	return Advance(quota)
}

func stepEstimate(ctx context.Context, r *Run, d *Deps) StepResult {
	est := d.Pricing.Estimate(*r.Outcome.Config)
	r.Outcome.Kind = composer.OutcomeConfirmationRequired
	r.Outcome.Estimate = &est
	return RequireConfirmation(provisionProposal{
		Name:     r.Outcome.ServiceName,
		Config:   *r.Outcome.Config,
		Estimate: est,
	})
}

// stepExecute is the one mutating step of the workflow. It is never retried
// automatically; a failure here may leave a partially-created resource, so
// the error carries the remote resource id when the platform reported one.
func stepExecute(ctx context.Context, r *Run, d *Deps) StepResult {
	sctx, cancel := d.stepCtx(ctx)
	defer cancel()

	svc, err := d.Services.CreateService(sctx, r.Token, model.ProvisionRequest{
		Name:   r.Outcome.ServiceName,
		Config: *r.Outcome.Config,
	})
	if err != nil {
		return Fail(err)
	}
	r.Outcome.Service = svc
	return Advance(svc)
}

func stepSummarize(ctx context.Context, r *Run, d *Deps) StepResult {
	r.Outcome.Kind = composer.OutcomeProvisioned
	return Advance(struct {
		ServiceID string              `json:"service_id"`
		Status    model.ServiceStatus `json:"status"`
	}{ServiceID: r.Outcome.Service.ID, Status: r.Outcome.Service.Status})
}
