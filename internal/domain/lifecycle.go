package domain

// LifecycleIdentity describes who verified the external environment.
type LifecycleIdentity struct {
	ARN     string `json:"arn"`
	Account string `json:"account"`
	Source  string `json:"source"`
}

// LifecycleStatus is the external, read-only verification document the
// console consumes as one telemetry source.
type LifecycleStatus struct {
	Success    bool               `json:"success"`
	VerifiedAt string             `json:"verified_at"`
	Identity   *LifecycleIdentity `json:"identity,omitempty"`
	Notes      string             `json:"notes,omitempty"`
}
