package model

import "sort"

// RecommendationType categorises an optimization opportunity.
type RecommendationType string

const (
	RecCostOptimization    RecommendationType = "cost_optimization"
	RecPerformanceTuning   RecommendationType = "performance_tuning"
	RecResourceRightsizing RecommendationType = "resource_rightsizing"
	RecIdleResourceCleanup RecommendationType = "idle_resource_cleanup"
	RecRestartService      RecommendationType = "restart_service"
	RecScaleService        RecommendationType = "scale_service"
	RecShowLogs            RecommendationType = "show_logs"
)

// Mutating reports whether acting on the recommendation changes remote state.
// Mutating recommendations trigger the confirmation gate in the diagnose
// workflow; the assistant never executes them on its own.
func (t RecommendationType) Mutating() bool {
	switch t {
	case RecRestartService, RecScaleService, RecIdleResourceCleanup:
		return true
	default:
		return false
	}
}

// RecommendationPriority orders recommendations for the user.
type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

// rank maps priorities to a sortable ordinal, highest first.
func (p RecommendationPriority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Recommendation is a single optimization or remediation opportunity produced
// by the diagnose or optimize workflows.
type Recommendation struct {
	ID                      string                 `json:"id"`
	Type                    RecommendationType     `json:"type"`
	Priority                RecommendationPriority `json:"priority"`
	Title                   string                 `json:"title"`
	Description             string                 `json:"description"`
	ServiceID               string                 `json:"service_id,omitempty"`
	EstimatedSavingsMonthly float64                `json:"estimated_savings_monthly"`
	Impact                  string                 `json:"impact,omitempty"`
	Metadata                map[string]any         `json:"metadata,omitempty"`
}

// SortRecommendations orders recommendations by priority (high first), then
// by descending estimated monthly saving. The sort is stable so equal entries
// keep their production order, which keeps repeated runs over unchanged input
// byte-identical.
func SortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority.rank() != recs[j].Priority.rank() {
			return recs[i].Priority.rank() < recs[j].Priority.rank()
		}
		return recs[i].EstimatedSavingsMonthly > recs[j].EstimatedSavingsMonthly
	})
}

// CostAnalysis summarises current spend across an organization's services.
type CostAnalysis struct {
	TotalMonthlyUSD        float64            `json:"total_monthly_usd"`
	BreakdownByServiceType map[string]float64 `json:"breakdown_by_service_type"`
	TopExpensiveServices   []ServiceCost      `json:"top_expensive_services,omitempty"`
	OptimizationPotential  float64            `json:"optimization_potential"`
	Billing                *BillingSummary    `json:"billing,omitempty"`
}

// ServiceCost pairs a service with its monthly cost for ranking.
type ServiceCost struct {
	ServiceID   string      `json:"service_id"`
	ServiceName string      `json:"service_name"`
	ServiceType ServiceType `json:"service_type"`
	MonthlyUSD  float64     `json:"monthly_usd"`
}
