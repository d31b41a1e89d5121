package model

// PodStatus is the container-orchestration view of a service's pod.
type PodStatus struct {
	Name       string            `json:"name"`
	Namespace  string            `json:"namespace"`
	Phase      string            `json:"phase"`
	Conditions []PodCondition    `json:"conditions,omitempty"`
	Containers []ContainerStatus `json:"containers,omitempty"`
}

// PodCondition mirrors a single pod condition entry.
type PodCondition struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ContainerStatus summarises one container inside the pod.
type ContainerStatus struct {
	Name         string `json:"name"`
	Ready        bool   `json:"ready"`
	RestartCount int32  `json:"restart_count"`
	State        string `json:"state,omitempty"`
}

// TotalRestarts sums restart counts across all containers.
func (p *PodStatus) TotalRestarts() int32 {
	var n int32
	for _, c := range p.Containers {
		n += c.RestartCount
	}
	return n
}

// DiagnosticBundle aggregates everything the diagnose workflow gathers for a
// service in one pass. Fields that could not be collected are left at their
// zero value with the corresponding entry in Missing; a partial bundle is
// valid input for analysis. Read-only after assembly.
type DiagnosticBundle struct {
	Service   Service        `json:"service"`
	Metrics   ServiceMetrics `json:"metrics"`
	Logs      []string       `json:"logs,omitempty"`
	PodStatus *PodStatus     `json:"pod_status,omitempty"`
	Missing   []string       `json:"missing,omitempty"`
}

// Has reports whether the named section was gathered successfully.
func (b *DiagnosticBundle) Has(section string) bool {
	for _, m := range b.Missing {
		if m == section {
			return false
		}
	}
	return true
}
