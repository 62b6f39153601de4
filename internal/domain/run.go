package domain

import (
	"strings"
	"time"
)

// Flow is an orchestrator pipeline definition record.
type Flow struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// FlowRun is one orchestrator run record. StateType is the machine-readable
// terminal classification; StateName is the display label.
type FlowRun struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StateType string    `json:"state_type"`
	StateName string    `json:"state_name"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}

// TerminalState buckets run outcomes for the rolling failure window.
type TerminalState string

const (
	TerminalFailed    TerminalState = "failed"
	TerminalSucceeded TerminalState = "succeeded"
	TerminalOther     TerminalState = "other"
)

// RunOutcome is the reduced record the telemetry aggregator keeps per run.
type RunOutcome struct {
	RunID     string        `json:"runId"`
	CreatedAt time.Time     `json:"createdAt"`
	Terminal  TerminalState `json:"terminalState"`
}

// Outcome reduces a FlowRun to its terminal bucket. StateType wins when set;
// StateName is the fallback for orchestrators that omit the type.
func (r FlowRun) Outcome() RunOutcome {
	state := r.StateType
	if state == "" {
		state = r.StateName
	}
	terminal := TerminalOther
	switch strings.ToLower(state) {
	case "failed", "crashed":
		terminal = TerminalFailed
	case "completed", "succeeded":
		terminal = TerminalSucceeded
	}
	return RunOutcome{RunID: r.ID, CreatedAt: r.Created, Terminal: terminal}
}

// RecentFailure reports whether the run counts against the rolling window:
// created within the window and terminally failed.
func (o RunOutcome) RecentFailure(now time.Time, window time.Duration) bool {
	if o.Terminal != TerminalFailed {
		return false
	}
	age := now.Sub(o.CreatedAt)
	return age >= 0 && age <= window
}

// LineageJob is a lineage-service job record.
type LineageJob struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// LineageNamespace is a lineage-service namespace record.
type LineageNamespace struct {
	Name string `json:"name"`
}
