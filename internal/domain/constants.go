package domain

const (
	DefaultHTTPTimeoutSeconds         = 10
	DefaultOrchestratorPollSeconds    = 30
	DefaultLineagePollSeconds         = 60
	DefaultLifecyclePollSeconds       = 300
	DefaultFailureWindowMinutes       = 30
	DefaultFlowRunListLimit           = 10
	DefaultObservabilityListenAddress = "0.0.0.0:9464"
	DefaultStorePath                  = "opsd.db"
)
