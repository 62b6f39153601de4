package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"opsd/internal/domain"
)

// Loader reads the console configuration from a YAML file.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storePath", domain.DefaultStorePath)
	v.SetDefault("httpTimeoutSeconds", domain.DefaultHTTPTimeoutSeconds)
	v.SetDefault("failureWindowMinutes", domain.DefaultFailureWindowMinutes)
	v.SetDefault("pollSeconds.orchestrator", domain.DefaultOrchestratorPollSeconds)
	v.SetDefault("pollSeconds.lineage", domain.DefaultLineagePollSeconds)
	v.SetDefault("pollSeconds.lifecycle", domain.DefaultLifecyclePollSeconds)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("observability.metrics", true)
	v.SetDefault("observability.healthz", true)
}

type rawConfig struct {
	ContractURL          string                 `mapstructure:"contractURL"`
	OrchestratorURL      string                 `mapstructure:"orchestratorURL"`
	LineageURL           string                 `mapstructure:"lineageURL"`
	LifecycleStatusPath  string                 `mapstructure:"lifecycleStatusPath"`
	StorePath            string                 `mapstructure:"storePath"`
	HTTPTimeoutSeconds   int                    `mapstructure:"httpTimeoutSeconds"`
	FailureWindowMinutes int                    `mapstructure:"failureWindowMinutes"`
	PollSeconds          rawPollSeconds         `mapstructure:"pollSeconds"`
	Observability        rawObservabilityConfig `mapstructure:"observability"`
}

type rawPollSeconds struct {
	Orchestrator int `mapstructure:"orchestrator"`
	Lineage      int `mapstructure:"lineage"`
	Lifecycle    int `mapstructure:"lifecycle"`
}

type rawObservabilityConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
	Metrics       bool   `mapstructure:"metrics"`
	Healthz       bool   `mapstructure:"healthz"`
}

// Load reads, decodes, and validates the config file at path.
func (l *Loader) Load(path string) (domain.Config, error) {
	if path == "" {
		return domain.Config{}, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Config{}, fmt.Errorf("read config: %w", err)
	}

	v := newConfigViper()
	if err := v.ReadConfig(bytes.NewBuffer(data)); err != nil {
		return domain.Config{}, fmt.Errorf("parse config: %w", err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg := domain.Config{
		ContractURL:         raw.ContractURL,
		OrchestratorURL:     raw.OrchestratorURL,
		LineageURL:          raw.LineageURL,
		LifecycleStatusPath: raw.LifecycleStatusPath,
		StorePath:           raw.StorePath,
		HTTPTimeout:         time.Duration(raw.HTTPTimeoutSeconds) * time.Second,
		FailureWindow:       time.Duration(raw.FailureWindowMinutes) * time.Minute,
		Poll: domain.PollIntervals{
			Orchestrator: time.Duration(raw.PollSeconds.Orchestrator) * time.Second,
			Lineage:      time.Duration(raw.PollSeconds.Lineage) * time.Second,
			Lifecycle:    time.Duration(raw.PollSeconds.Lifecycle) * time.Second,
		},
		Observability: domain.ObservabilityConfig{
			ListenAddress: raw.Observability.ListenAddress,
			EnableMetrics: raw.Observability.Metrics,
			EnableHealthz: raw.Observability.Healthz,
		},
	}

	if err := cfg.Validate(); err != nil {
		return domain.Config{}, err
	}

	l.logger.Debug("config loaded",
		zap.String("path", path),
		zap.String("orchestratorURL", cfg.OrchestratorURL),
		zap.String("lineageURL", cfg.LineageURL),
	)
	return cfg, nil
}
