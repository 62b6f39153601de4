package domain

import (
	"fmt"
	"strings"
	"time"
)

// PollIntervals holds the per-source telemetry schedules. Sources poll
// independently; there is no shared tick.
type PollIntervals struct {
	Orchestrator time.Duration
	Lineage      time.Duration
	Lifecycle    time.Duration
}

// ObservabilityConfig controls the /metrics and /healthz listener.
type ObservabilityConfig struct {
	ListenAddress string
	EnableMetrics bool
	EnableHealthz bool
}

// Config is the validated runtime configuration.
type Config struct {
	ContractURL         string
	OrchestratorURL     string
	LineageURL          string
	LifecycleStatusPath string
	StorePath           string
	HTTPTimeout         time.Duration
	FailureWindow       time.Duration
	Poll                PollIntervals
	Observability       ObservabilityConfig
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ContractURL) == "" {
		return NewError(CodeInvalidArgument, "config.validate", "contractURL is required", nil)
	}
	if strings.TrimSpace(c.OrchestratorURL) == "" {
		return NewError(CodeInvalidArgument, "config.validate", "orchestratorURL is required", nil)
	}
	if strings.TrimSpace(c.LineageURL) == "" {
		return NewError(CodeInvalidArgument, "config.validate", "lineageURL is required", nil)
	}
	if strings.TrimSpace(c.StorePath) == "" {
		return NewError(CodeInvalidArgument, "config.validate", "storePath is required", nil)
	}
	if c.HTTPTimeout <= 0 {
		return NewError(CodeInvalidArgument, "config.validate", "httpTimeoutSeconds must be positive", nil)
	}
	if c.FailureWindow <= 0 {
		return NewError(CodeInvalidArgument, "config.validate", "failureWindowMinutes must be positive", nil)
	}
	for name, interval := range map[string]time.Duration{
		"pollSeconds.orchestrator": c.Poll.Orchestrator,
		"pollSeconds.lineage":      c.Poll.Lineage,
		"pollSeconds.lifecycle":    c.Poll.Lifecycle,
	} {
		if interval <= 0 {
			return NewError(CodeInvalidArgument, "config.validate", fmt.Sprintf("%s must be positive", name), nil)
		}
	}
	return nil
}
