// Package failures persists failed compression jobs for diagnostics.
package failures

import (
	"encoding/json"
	"fmt"
	"time"

	pebble "github.com/cockroachdb/pebble"
)

// FailureRecord represents one failed compression job. Diagnostics is
// the truncated engine stderr, when the failure produced any.
type FailureRecord struct {
	JobID       string    `json:"job_id"`
	Timestamp   time.Time `json:"timestamp"`
	ErrorCode   string    `json:"error_code"`
	Error       string    `json:"error"`
	Diagnostics string    `json:"diagnostics,omitempty"`
}

var db *pebble.DB

// Init initializes the failure store
func Init(dbPath string) error {
	var err error
	db, err = pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("failed to open failure store: %w", err)
	}
	return nil
}

// Close closes the failure store
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// StoreFailure records a failed compression job under its id.
func StoreFailure(jobID, errorCode, message, diagnostics string) error {
	if db == nil {
		return fmt.Errorf("failure store not initialized")
	}

	record := FailureRecord{
		JobID:       jobID,
		Timestamp:   time.Now(),
		ErrorCode:   errorCode,
		Error:       message,
		Diagnostics: diagnostics,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal failure record: %w", err)
	}

	return db.Set([]byte(jobID), data, pebble.Sync)
}

// GetFailure retrieves a failure record by job id. Returns nil when no
// failure is recorded for the id.
func GetFailure(jobID string) (*FailureRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("failure store not initialized")
	}

	data, closer, err := db.Get([]byte(jobID))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get failure: %w", err)
	}
	defer closer.Close()

	var record FailureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failure record: %w", err)
	}

	return &record, nil
}

// DeleteFailure removes a failure record
func DeleteFailure(jobID string) error {
	if db == nil {
		return fmt.Errorf("failure store not initialized")
	}
	return db.Delete([]byte(jobID), pebble.Sync)
}

// ListFailures returns all failure records (for admin purposes)
func ListFailures() ([]FailureRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("failure store not initialized")
	}

	var records []FailureRecord
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var record FailureRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue // Skip invalid records
		}
		records = append(records, record)
	}

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration error: %w", err)
	}

	return records, nil
}

// Count returns the number of stored failure records.
func Count() (int, error) {
	records, err := ListFailures()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// CleanupOldRecords removes failure records older than maxAge.
func CleanupOldRecords(maxAge time.Duration) error {
	if db == nil {
		return fmt.Errorf("failure store not initialized")
	}

	cutoff := time.Now().Add(-maxAge)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	defer iter.Close()

	var keysToDelete [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		var record FailureRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue
		}
		if record.Timestamp.Before(cutoff) {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			keysToDelete = append(keysToDelete, key)
		}
	}

	for _, key := range keysToDelete {
		if err := db.Delete(key, pebble.Sync); err != nil {
			return fmt.Errorf("failed to delete old failure record: %w", err)
		}
	}

	return nil
}
