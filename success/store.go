// Package success persists completed compression jobs: sizes, ratio,
// timing and where the artifact went.
package success

import (
	"encoding/json"
	"fmt"
	"time"

	pebble "github.com/cockroachdb/pebble"
)

// SuccessRecord represents one completed compression job.
type SuccessRecord struct {
	JobID            string    `json:"job_id"`
	Timestamp        time.Time `json:"timestamp"`
	StorageKey       string    `json:"storage_key"`
	OriginalSize     int64     `json:"original_size"`
	CompressedSize   int64     `json:"compressed_size"`
	CompressionRatio float64   `json:"compression_ratio"`
	ProcessingTime   float64   `json:"processing_time"` // seconds, transcode step only
}

var db *pebble.DB

// Init initializes the success store
func Init(dbPath string) error {
	var err error
	db, err = pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("failed to open success store: %w", err)
	}
	return nil
}

// Close closes the success store
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// StoreSuccess records a completed compression job under its id.
func StoreSuccess(record SuccessRecord) error {
	if db == nil {
		return fmt.Errorf("success store not initialized")
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal success record: %w", err)
	}

	return db.Set([]byte(record.JobID), data, pebble.Sync)
}

// GetSuccess retrieves a success record by job id. Returns nil when
// the id has no record.
func GetSuccess(jobID string) (*SuccessRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("success store not initialized")
	}

	data, closer, err := db.Get([]byte(jobID))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	var record SuccessRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal success record: %w", err)
	}

	return &record, nil
}

// DeleteSuccess removes a success record
func DeleteSuccess(jobID string) error {
	if db == nil {
		return fmt.Errorf("success store not initialized")
	}
	return db.Delete([]byte(jobID), pebble.Sync)
}

// ListSuccessRecords returns all success records (for admin/debugging)
func ListSuccessRecords() ([]SuccessRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("success store not initialized")
	}

	var records []SuccessRecord
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var record SuccessRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue // Skip invalid records
		}
		records = append(records, record)
	}

	return records, nil
}

// Count returns the number of stored success records.
func Count() (int, error) {
	records, err := ListSuccessRecords()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// CleanupOldRecords removes success records older than maxAge.
func CleanupOldRecords(maxAge time.Duration) error {
	if db == nil {
		return fmt.Errorf("success store not initialized")
	}

	cutoff := time.Now().Add(-maxAge)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	defer iter.Close()

	var keysToDelete [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		var record SuccessRecord
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
			return fmt.Errorf("failed to delete old success record: %w", err)
		}
	}

	return nil
}
