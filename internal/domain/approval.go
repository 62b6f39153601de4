package domain

import "time"

// ApprovalStatus is the current human-in-the-loop decision for a run.
type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// AuditAction labels one governance decision in the audit trail.
type AuditAction string

const (
	AuditApprove AuditAction = "approve"
	AuditReject  AuditAction = "reject"
)

// Approval is the mutable current state per run: the latest decision wins.
type Approval struct {
	ID        string         `json:"id"`
	RunID     string         `json:"runId"`
	Status    ApprovalStatus `json:"status"`
	Operator  string         `json:"operator"`
	Timestamp time.Time      `json:"timestamp"`
	Comment   string         `json:"comment,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// AuditEntry is immutable history. The set only grows; every approve or
// reject call appends exactly one entry, never merged or deduplicated.
type AuditEntry struct {
	ID             string         `json:"id"`
	RunID          string         `json:"runId"`
	Action         AuditAction    `json:"action"`
	Operator       string         `json:"operator"`
	Timestamp      time.Time      `json:"timestamp"`
	PreviousStatus ApprovalStatus `json:"previousStatus,omitempty"`
	NewStatus      ApprovalStatus `json:"newStatus"`
	Comment        string         `json:"comment,omitempty"`
}
