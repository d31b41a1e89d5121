// Package pricing holds the deterministic cost table for managed services.
// Estimation must be reproducible: the same config always prices to the same
// estimate, so the confirmation the user accepted is exactly what execution
// would bill for.
package pricing

import (
	"github.com/quickspin-labs/assistant/internal/assistant/model"
)

// HoursPerMonth is the billing convention used across the platform.
const HoursPerMonth = 24 * 30

// Hourly USD rates. A starter Redis instance at 256MB / 0.5 cores prices to
// $0.008/h: 0.004 base + 0.003 memory + 0.001 cpu.
const (
	perGBMemoryHourly  = 0.012
	perCPUCoreHourly   = 0.002
	perGBStorageHourly = 0.0002
)

var tierBaseHourly = map[model.ServiceTier]float64{
	model.TierStarter:    0.004,
	model.TierPro:        0.016,
	model.TierEnterprise: 0.060,
}

// Table is the pricing collaborator: a stateless estimator over the fixed
// rate table, injected into workflow steps so tests can substitute it.
type Table struct{}

// NewTable returns the production pricing table.
func NewTable() *Table {
	return &Table{}
}

// Estimate prices a service configuration. Storage is only billed for
// database types; replicas multiply the whole estimate.
func (t *Table) Estimate(cfg model.ServiceConfig) model.CostEstimate {
	base := tierBaseHourly[cfg.Tier]
	if base == 0 {
		base = tierBaseHourly[model.TierStarter]
	}

	memory := float64(cfg.MemoryMB) / 1024.0 * perGBMemoryHourly
	cpu := cfg.CPUCores * perCPUCoreHourly

	var storage float64
	if cfg.ServiceType.IsDatabase() {
		storage = float64(cfg.StorageGB) * perGBStorageHourly
	}

	hourly := base + memory + cpu + storage
	replicas := cfg.Replicas
	if replicas < 1 {
		replicas = 1
	}
	hourly *= float64(replicas)

	return model.CostEstimate{
		HourlyUSD:  hourly,
		MonthlyUSD: hourly * HoursPerMonth,
		Breakdown: map[string]float64{
			"tier_base": base,
			"memory":    memory,
			"cpu":       cpu,
			"storage":   storage,
		},
	}
}

// MonthlyCost converts a known hourly rate to the monthly convention. Used
// when the services API already reports an hourly figure.
func MonthlyCost(hourlyUSD float64) float64 {
	return hourlyUSD * HoursPerMonth
}
