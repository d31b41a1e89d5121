package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/quickspin-labs/assistant/internal/assistant/composer"
	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/assistant/pricing"
	"github.com/quickspin-labs/assistant/internal/core/errx"
	logx "github.com/quickspin-labs/assistant/pkg/logger"
)

// Optimize is read-only and advisory: it inspects the organization's fleet
// and proposes savings but never executes a mutating action, so it has no
// confirmation gate. Re-running it over an unchanged fleet yields identical
// recommendations in identical order.
func optimizeDefinition() Definition {
	return Definition{
		Kind: KindOptimize,
		Steps: []Step{
			{Name: "FetchServices", Run: stepFetchServices},
			{Name: "AnalyzeUsage", Run: stepAnalyzeUsage},
			{Name: "CalculateCosts", Run: stepCalculateCosts},
			{Name: "GenerateRecommendations", Run: stepGenerateRecommendations},
		},
	}
}

// usageClass is the per-service verdict of AnalyzeUsage.
type usageClass string

const (
	usageIdle          usageClass = "idle"
	usageUnderutilized usageClass = "underutilized"
	usageNominal       usageClass = "nominal"
)

type serviceUsage struct {
	Service     model.Service `json:"service"`
	Class       usageClass    `json:"class"`
	Utilization float64       `json:"utilization"`
	MonthlyUSD  float64       `json:"monthly_usd"`
}

func stepFetchServices(ctx context.Context, r *Run, d *Deps) StepResult {
	sctx, cancel := d.stepCtx(ctx)
	defer cancel()

	services, err := d.Services.ListServices(sctx, r.Token, r.OrganizationID)
	if err != nil {
		return Fail(err)
	}
	// an empty organization is a valid answer, not a failure; the run
	// completes with a zero-cost analysis and no recommendations.
	// stable iteration order regardless of API ordering
	sort.SliceStable(services, func(i, j int) bool { return services[i].ID < services[j].ID })
	return Advance(services)
}

func stepAnalyzeUsage(ctx context.Context, r *Run, d *Deps) StepResult {
	out, _ := r.Output("FetchServices")
	services, ok := out.([]model.Service)
	if !ok {
		return Fail(errx.Newf(errx.KindServiceNotFound, "service list missing"))
	}

	now := time.Now().UTC()
	usages := make([]serviceUsage, 0, len(services))
	for _, svc := range services {
		u := serviceUsage{
			Service:     svc,
			Class:       classifyUsage(svc, now, d.IdleAfter, d.UtilizationThreshold),
			Utilization: svc.MemoryUtilization(),
			MonthlyUSD:  pricing.MonthlyCost(svc.EstimatedCostHourly),
		}
		usages = append(usages, u)
	}
	return Advance(usages)
}

// classifyUsage labels one service. Stopped and still-provisioning services
// are nominal: there is nothing to save on them yet.
func classifyUsage(svc model.Service, now time.Time, idleAfter time.Duration, utilThreshold float64) usageClass {
	if svc.Status != model.StatusRunning {
		return usageNominal
	}
	if svc.Metrics.LastActivityAt != nil && now.Sub(*svc.Metrics.LastActivityAt) >= idleAfter {
		return usageIdle
	}
	if svc.Metrics.LastActivityAt == nil && svc.Metrics.Connections == 0 && now.Sub(svc.CreatedAt) >= idleAfter {
		return usageIdle
	}
	if util := svc.MemoryUtilization(); util > 0 && util < utilThreshold {
		return usageUnderutilized
	}
	return usageNominal
}

func stepCalculateCosts(ctx context.Context, r *Run, d *Deps) StepResult {
	out, _ := r.Output("AnalyzeUsage")
	usages, ok := out.([]serviceUsage)
	if !ok {
		return Fail(errx.Newf(errx.KindServiceNotFound, "usage analysis missing"))
	}

	analysis := model.CostAnalysis{BreakdownByServiceType: make(map[string]float64)}
	costs := make([]model.ServiceCost, 0, len(usages))
	for _, u := range usages {
		analysis.TotalMonthlyUSD += u.MonthlyUSD
		analysis.BreakdownByServiceType[string(u.Service.ServiceType)] += u.MonthlyUSD
		costs = append(costs, model.ServiceCost{
			ServiceID:   u.Service.ID,
			ServiceName: u.Service.Name,
			ServiceType: u.Service.ServiceType,
			MonthlyUSD:  u.MonthlyUSD,
		})
	}
	sort.SliceStable(costs, func(i, j int) bool { return costs[i].MonthlyUSD > costs[j].MonthlyUSD })
	if len(costs) > 5 {
		costs = costs[:5]
	}
	analysis.TopExpensiveServices = costs

	// billing is context, not input: the analysis stands without it
	sctx, cancel := d.stepCtx(ctx)
	defer cancel()
	if billing, err := d.Services.GetBilling(sctx, r.Token, r.OrganizationID); err != nil {
		logx.Warn().Err(err).Str("runID", r.ID).Msg("billing summary unavailable")
	} else {
		analysis.Billing = billing
	}

	r.Outcome.Analysis = &analysis
	return Advance(analysis)
}

// stepGenerateRecommendations emits one recommendation per idle or
// underutilized service: idle resources are pure waste (high priority, full
// monthly cost recoverable), underutilized ones can drop a size (medium
// priority, half the monthly cost recoverable).
func stepGenerateRecommendations(ctx context.Context, r *Run, d *Deps) StepResult {
	out, _ := r.Output("AnalyzeUsage")
	usages, ok := out.([]serviceUsage)
	if !ok {
		return Fail(errx.Newf(errx.KindServiceNotFound, "usage analysis missing"))
	}

	var recs []model.Recommendation
	var potential float64
	for _, u := range usages {
		switch u.Class {
		case usageIdle:
			recs = append(recs, model.Recommendation{
				ID:       uuid.NewString(),
				Type:     model.RecIdleResourceCleanup,
				Priority: model.PriorityHigh,
				Title:    fmt.Sprintf("Delete idle service %s", u.Service.Name),
				Description: fmt.Sprintf(
					"%s has had no activity for over %s; removing it recovers its full cost.",
					u.Service.Name, humanDuration(d.IdleAfter)),
				ServiceID:               u.Service.ID,
				EstimatedSavingsMonthly: u.MonthlyUSD,
				Impact:                  "none expected, the service is unused",
			})
			potential += u.MonthlyUSD
		case usageUnderutilized:
			saving := u.MonthlyUSD * 0.5
			recs = append(recs, model.Recommendation{
				ID:       uuid.NewString(),
				Type:     model.RecResourceRightsizing,
				Priority: model.PriorityMedium,
				Title:    fmt.Sprintf("Downsize %s", u.Service.Name),
				Description: fmt.Sprintf(
					"%s uses %.0f%% of its allocation; a smaller size covers the load comfortably.",
					u.Service.Name, u.Utilization*100),
				ServiceID:               u.Service.ID,
				EstimatedSavingsMonthly: saving,
				Impact:                  "brief reconfiguration window",
			})
			potential += saving
		}
	}
	model.SortRecommendations(recs)

	if r.Outcome.Analysis != nil {
		r.Outcome.Analysis.OptimizationPotential = potential
	}
	r.Outcome.Kind = composer.OutcomeOptimization
	r.Outcome.Recommendations = recs
	return Advance(recs)
}

func humanDuration(d time.Duration) string {
	if d >= 24*time.Hour {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return d.String()
}
