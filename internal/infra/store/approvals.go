package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"opsd/internal/domain"
)

var ErrApprovalNotFound = errors.New("no approval recorded for run")

// Approve records an approved decision for runID. The new current Approval
// and exactly one AuditEntry are written in a single transaction: a failed
// write applies neither.
func (s *Store) Approve(runID, operator, comment string) (domain.Approval, error) {
	return s.decide(runID, operator, domain.ApprovalApproved, comment, "")
}

// Reject records a rejected decision for runID, with an optional reason.
func (s *Store) Reject(runID, operator, reason, comment string) (domain.Approval, error) {
	return s.decide(runID, operator, domain.ApprovalRejected, comment, reason)
}

func (s *Store) decide(runID, operator string, status domain.ApprovalStatus, comment, reason string) (domain.Approval, error) {
	if strings.TrimSpace(runID) == "" {
		return domain.Approval{}, domain.NewError(domain.CodeInvalidArgument, "store.decide", "run id is required", nil)
	}
	if strings.TrimSpace(operator) == "" {
		return domain.Approval{}, domain.NewError(domain.CodeInvalidArgument, "store.decide", "operator is required", nil)
	}

	now := s.stamp()
	approval := domain.Approval{
		ID:        uuid.NewString(),
		RunID:     runID,
		Status:    status,
		Operator:  operator,
		Timestamp: now,
		Comment:   comment,
		Reason:    reason,
	}
	action := domain.AuditApprove
	if status == domain.ApprovalRejected {
		action = domain.AuditReject
	}

	err := s.update(func(tx *bolt.Tx) error {
		approvals := tx.Bucket([]byte(approvalsBucketName))
		audit := tx.Bucket([]byte(auditBucketName))
		if approvals == nil || audit == nil {
			return fmt.Errorf("store schema is missing buckets")
		}

		var previous domain.ApprovalStatus
		if raw := approvals.Get([]byte(runID)); raw != nil {
			var prior domain.Approval
			if err := json.Unmarshal(raw, &prior); err != nil {
				return fmt.Errorf("decode prior approval for %s: %w", runID, err)
			}
			previous = prior.Status
		}

		entry := domain.AuditEntry{
			ID:             uuid.NewString(),
			RunID:          runID,
			Action:         action,
			Operator:       operator,
			Timestamp:      now,
			PreviousStatus: previous,
			NewStatus:      status,
			Comment:        comment,
		}

		approvalJSON, err := json.Marshal(approval)
		if err != nil {
			return fmt.Errorf("encode approval: %w", err)
		}
		entryJSON, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode audit entry: %w", err)
		}

		if err := approvals.Put([]byte(runID), approvalJSON); err != nil {
			return fmt.Errorf("write approval: %w", err)
		}
		seq, err := audit.NextSequence()
		if err != nil {
			return fmt.Errorf("allocate audit sequence: %w", err)
		}
		return audit.Put(auditKey(seq), entryJSON)
	})
	if err != nil {
		return domain.Approval{}, err
	}
	return approval, nil
}

// GetApproval returns the current decision for runID. ErrApprovalNotFound
// when no decision has been recorded yet.
func (s *Store) GetApproval(runID string) (domain.Approval, error) {
	var approval domain.Approval
	err := s.view(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(approvalsBucketName))
		if bucket == nil {
			return fmt.Errorf("store schema is missing buckets")
		}
		raw := bucket.Get([]byte(runID))
		if raw == nil {
			return ErrApprovalNotFound
		}
		return json.Unmarshal(raw, &approval)
	})
	if err != nil {
		return domain.Approval{}, err
	}
	return approval, nil
}

// History returns every audit entry for runID, most recent first. The trail
// is append-only: repeated decisions are never collapsed.
func (s *Store) History(runID string) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	err := s.view(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(auditBucketName))
		if bucket == nil {
			return fmt.Errorf("store schema is missing buckets")
		}
		cursor := bucket.Cursor()
		for key, value := cursor.Last(); key != nil; key, value = cursor.Prev() {
			var entry domain.AuditEntry
			if err := json.Unmarshal(value, &entry); err != nil {
				return fmt.Errorf("decode audit entry: %w", err)
			}
			if entry.RunID == runID {
				entries = append(entries, entry)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func auditKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
