package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"opsd/internal/domain"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opsd.db")
	s, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetApprovalUnset(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetApproval("r1")
	require.ErrorIs(t, err, ErrApprovalNotFound)
}

func TestApproveThenReject(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Approve("r1", "alice", "")
	require.NoError(t, err)
	_, err = s.Reject("r1", "bob", "stale inputs", "")
	require.NoError(t, err)

	current, err := s.GetApproval("r1")
	require.NoError(t, err)
	require.Equal(t, domain.ApprovalRejected, current.Status)
	require.Equal(t, "bob", current.Operator)
	require.Equal(t, "stale inputs", current.Reason)

	history, err := s.History("r1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, domain.AuditReject, history[0].Action)
	require.Equal(t, domain.AuditApprove, history[1].Action)
	require.Equal(t, domain.ApprovalApproved, history[0].PreviousStatus)
	require.Equal(t, domain.ApprovalStatus(""), history[1].PreviousStatus)
}

func TestRepeatApprovalsAppendDistinctEntries(t *testing.T) {
	fixed := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	s := openTestStore(t, WithClock(func() time.Time { return fixed }))

	_, err := s.Approve("r1", "alice", "first pass")
	require.NoError(t, err)
	_, err = s.Approve("r1", "alice", "second pass")
	require.NoError(t, err)

	history, err := s.History("r1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotEqual(t, history[0].ID, history[1].ID)
	// Newest first, and strictly increasing even on a frozen clock.
	require.True(t, history[0].Timestamp.After(history[1].Timestamp))

	current, err := s.GetApproval("r1")
	require.NoError(t, err)
	require.Equal(t, "second pass", current.Comment)
}

func TestHistoryIsScopedToRun(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Approve("r1", "alice", "")
	require.NoError(t, err)
	_, err = s.Approve("r2", "bob", "")
	require.NoError(t, err)
	_, err = s.Reject("r1", "carol", "", "")
	require.NoError(t, err)

	history, err := s.History("r1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, entry := range history {
		require.Equal(t, "r1", entry.RunID)
	}

	history, err = s.History("r3")
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestDecisionSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opsd.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Approve("r1", "alice", "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()

	current, err := reopened.GetApproval("r1")
	require.NoError(t, err)
	require.Equal(t, domain.ApprovalApproved, current.Status)

	history, err := reopened.History("r1")
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestClosedStoreRejectsMutation(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Approve("r1", "alice", "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Reject("r1", "bob", "", "")
	require.ErrorIs(t, err, ErrStoreClosed)

	// The failed mutation applied neither the approval nor an audit entry.
	reopened, err := Open(s.Path())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	current, err := reopened.GetApproval("r1")
	require.NoError(t, err)
	require.Equal(t, domain.ApprovalApproved, current.Status)

	history, err := reopened.History("r1")
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestDecideValidatesInput(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Approve("", "alice", "")
	require.Error(t, err)
	_, err = s.Approve("r1", " ", "")
	require.Error(t, err)
}

func TestPrefsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	enabled, err := s.GetBool(PrefTelemetryEnabled, true)
	require.NoError(t, err)
	require.True(t, enabled)

	require.NoError(t, s.SetBool(PrefTelemetryEnabled, false))
	enabled, err = s.GetBool(PrefTelemetryEnabled, true)
	require.NoError(t, err)
	require.False(t, enabled)
}
