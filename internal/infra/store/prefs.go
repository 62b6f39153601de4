package store

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Preference keys.
const (
	PrefTelemetryEnabled = "telemetry.enabled"
)

// GetBool reads a boolean preference, falling back to fallback when unset.
func (s *Store) GetBool(key string, fallback bool) (bool, error) {
	value := fallback
	err := s.view(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(prefsBucketName))
		if bucket == nil {
			return fmt.Errorf("store schema is missing buckets")
		}
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}
		value = string(raw) == "true"
		return nil
	})
	if err != nil {
		return fallback, err
	}
	return value, nil
}

// SetBool persists a boolean preference.
func (s *Store) SetBool(key string, value bool) error {
	encoded := "false"
	if value {
		encoded = "true"
	}
	return s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(prefsBucketName))
		if bucket == nil {
			return fmt.Errorf("store schema is missing buckets")
		}
		return bucket.Put([]byte(key), []byte(encoded))
	})
}
