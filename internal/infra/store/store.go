// Package store persists console state in a single bbolt database:
// approvals, their append-only audit trail, and operator preferences.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	approvalsBucketName = "approvals"
	auditBucketName     = "audit"
	prefsBucketName     = "prefs"
)

var ErrStoreClosed = errors.New("console store is closed")

// Store owns the database handle. Open lazily from callers that may never
// touch disk; the schema is ensured once at open time.
type Store struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
	nowFn  func() time.Time

	lastMu    sync.Mutex
	lastStamp time.Time
}

type Option func(*Store)

// WithClock overrides the timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.nowFn = now }
}

func Open(path string, opts ...Option) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}
	options := &bolt.Options{Timeout: time.Second}
	base, err := bolt.Open(trimmed, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	if err := ensureSchema(base); err != nil {
		_ = base.Close()
		return nil, err
	}
	s := &Store{
		db:    base,
		path:  trimmed,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func ensureSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{approvalsBucketName, auditBucketName, prefsBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) view(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Update(fn)
}

// stamp returns a timestamp that is strictly after every previously issued
// one, so repeated decisions never share a timestamp even on coarse clocks.
func (s *Store) stamp() time.Time {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	now := s.nowFn()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = now
	return now
}
