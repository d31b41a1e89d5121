package model

import "time"

// ServiceType enumerates the managed service types QuickSpin can provision.
type ServiceType string

const (
	ServiceRedis         ServiceType = "redis"
	ServiceRabbitMQ      ServiceType = "rabbitmq"
	ServicePostgreSQL    ServiceType = "postgresql"
	ServiceMongoDB       ServiceType = "mongodb"
	ServiceMySQL         ServiceType = "mysql"
	ServiceElasticsearch ServiceType = "elasticsearch"
)

// KnownServiceTypes lists every provisionable service type, in the order the
// extraction step scans for them.
var KnownServiceTypes = []ServiceType{
	ServiceRedis,
	ServiceRabbitMQ,
	ServicePostgreSQL,
	ServiceMongoDB,
	ServiceMySQL,
	ServiceElasticsearch,
}

// IsDatabase reports whether the service type needs persistent storage sizing.
func (t ServiceType) IsDatabase() bool {
	switch t {
	case ServicePostgreSQL, ServiceMongoDB, ServiceMySQL, ServiceElasticsearch:
		return true
	default:
		return false
	}
}

// ServiceTier enumerates the QuickSpin pricing tiers.
type ServiceTier string

const (
	TierStarter    ServiceTier = "starter"
	TierPro        ServiceTier = "pro"
	TierEnterprise ServiceTier = "enterprise"
)

// ServiceStatus reflects the lifecycle state reported by the services API.
type ServiceStatus string

const (
	StatusPending      ServiceStatus = "pending"
	StatusProvisioning ServiceStatus = "provisioning"
	StatusRunning      ServiceStatus = "running"
	StatusFailed       ServiceStatus = "failed"
	StatusStopped      ServiceStatus = "stopped"
	StatusDeleting     ServiceStatus = "deleting"
)

// ServiceConfig is the extracted provisioning intent. It is produced once by
// the provision workflow's extraction step and treated as immutable by the
// validation, estimation and execution steps that consume it.
type ServiceConfig struct {
	ServiceType      ServiceType `json:"service_type"`
	Tier             ServiceTier `json:"tier"`
	MemoryMB         int         `json:"memory_mb"`
	CPUCores         float64     `json:"cpu_cores"`
	StorageGB        int         `json:"storage_gb"`
	Replicas         int         `json:"replicas"`
	BackupEnabled    bool        `json:"backup_enabled"`
	HighAvailability bool        `json:"high_availability"`
}

// Service is a managed service instance as reported by the services API.
type Service struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	ServiceType         ServiceType    `json:"service_type"`
	Tier                ServiceTier    `json:"tier"`
	Status              ServiceStatus  `json:"status"`
	OrganizationID      string         `json:"organization_id"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	Config              ServiceConfig  `json:"config"`
	ConnectionInfo      map[string]any `json:"connection_info,omitempty"`
	Metrics             ServiceMetrics `json:"metrics"`
	EstimatedCostHourly float64        `json:"estimated_cost_hourly"`
}

// ServiceMetrics is the resource-usage snapshot the services API returns for
// a single instance.
type ServiceMetrics struct {
	MemoryUsageMB   float64    `json:"memory_usage_mb"`
	CPUUsagePercent float64    `json:"cpu_usage_percent"`
	Connections     int        `json:"connections"`
	LastActivityAt  *time.Time `json:"last_activity_at,omitempty"`
}

// MemoryUtilization returns memory usage as a fraction of the configured
// limit, or 0 when the limit is unknown.
func (s *Service) MemoryUtilization() float64 {
	if s.Config.MemoryMB <= 0 {
		return 0
	}
	return s.Metrics.MemoryUsageMB / float64(s.Config.MemoryMB)
}

// ProvisionRequest asks the services API to create a new instance.
type ProvisionRequest struct {
	Name   string        `json:"name"`
	Config ServiceConfig `json:"config"`
}

// Quota is the caller's organization-level allowance, checked by the
// provision workflow's validation step.
type Quota struct {
	MaxServices  int           `json:"max_services"`
	MaxMemoryMB  int           `json:"max_memory_mb"`
	UsedServices int           `json:"used_services"`
	UsedMemoryMB int           `json:"used_memory_mb"`
	AllowedTiers []ServiceTier `json:"allowed_tiers"`
}

// TierAllowed reports whether the organization may provision the given tier.
// An empty allow-list means every tier is permitted.
func (q Quota) TierAllowed(tier ServiceTier) bool {
	if len(q.AllowedTiers) == 0 {
		return true
	}
	for _, t := range q.AllowedTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// BillingSummary is the organization-level spend snapshot from the billing
// endpoint.
type BillingSummary struct {
	OrganizationID string             `json:"organization_id"`
	MonthToDateUSD float64            `json:"month_to_date_usd"`
	ProjectedUSD   float64            `json:"projected_usd"`
	CostPerService map[string]float64 `json:"cost_per_service,omitempty"`
	BillingPeriod  string             `json:"billing_period"`
}

// CostEstimate is the deterministic pricing outcome for a ServiceConfig.
// Derived, never persisted on its own.
type CostEstimate struct {
	HourlyUSD  float64            `json:"hourly_usd"`
	MonthlyUSD float64            `json:"monthly_usd"`
	Breakdown  map[string]float64 `json:"breakdown,omitempty"`
}
