package domain

import "time"

// HealthStatus is the per-source poll state. Every cycle re-enters checking
// and lands on healthy or error; there are no terminal states.
type HealthStatus string

const (
	HealthChecking HealthStatus = "checking"
	HealthHealthy  HealthStatus = "healthy"
	HealthError    HealthStatus = "error"
)

// OverallStatus is the composite across all known sources.
type OverallStatus string

const (
	OverallHealthy  OverallStatus = "healthy"
	OverallDegraded OverallStatus = "degraded"
)

// HealthSample is one source's latest poll result. Samples are independently
// owned; one source's failure never corrupts another's sample.
type HealthSample struct {
	SourceID  string       `json:"sourceId"`
	Status    HealthStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Detail    string       `json:"detail,omitempty"`
}

// TelemetrySnapshot is the aggregate the status surface renders.
type TelemetrySnapshot struct {
	Overall        OverallStatus  `json:"overall"`
	Sources        []HealthSample `json:"sources"`
	RecentFailures int            `json:"recentFailures"`
	ActionRequired bool           `json:"actionRequired"`
	TakenAt        time.Time      `json:"takenAt"`
}
