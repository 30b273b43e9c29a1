package failures

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	code := m.Run()

	// Test databases are directories of pebble files
	matches, err := filepath.Glob("test_*.db")
	if err == nil {
		for _, dir := range matches {
			os.RemoveAll(dir)
		}
	}

	os.Exit(code)
}

func TestFailureStore(t *testing.T) {
	if err := Init("test_failures.db"); err != nil {
		t.Fatalf("Failed to initialize failure store: %v", err)
	}
	defer Close()

	jobID := "job-f-123"
	err := StoreFailure(jobID, "TRANSCODE_FAILED", "transcoding failed", "Unknown encoder 'h266'")
	if err != nil {
		t.Fatalf("Failed to store failure: %v", err)
	}

	record, err := GetFailure(jobID)
	if err != nil {
		t.Fatalf("Failed to get failure: %v", err)
	}
	if record == nil {
		t.Fatal("Expected failure record, got nil")
	}
	if record.JobID != jobID {
		t.Errorf("Expected job id %s, got %s", jobID, record.JobID)
	}
	if record.ErrorCode != "TRANSCODE_FAILED" {
		t.Errorf("Expected error code TRANSCODE_FAILED, got %s", record.ErrorCode)
	}
	if record.Diagnostics == "" {
		t.Error("Expected diagnostics to survive the round trip")
	}
	if time.Since(record.Timestamp) > time.Minute {
		t.Error("Timestamp should be recent")
	}

	// Non-existent lookups return nil without error
	missing, err := GetFailure("no-such-job")
	if err != nil {
		t.Fatalf("Failed to get non-existent failure: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for non-existent failure")
	}

	if err := DeleteFailure(jobID); err != nil {
		t.Fatalf("Failed to delete failure: %v", err)
	}
	deleted, err := GetFailure(jobID)
	if err != nil {
		t.Fatalf("Failed to get deleted failure: %v", err)
	}
	if deleted != nil {
		t.Error("Expected failure record to be deleted")
	}
}

func TestFailureListAndCount(t *testing.T) {
	if err := Init("test_failures_list.db"); err != nil {
		t.Fatalf("Failed to initialize failure store: %v", err)
	}
	defer Close()

	for _, id := range []string{"job-a", "job-b", "job-c"} {
		if err := StoreFailure(id, "PROCESSING_TIMEOUT", "transcoding exceeded the processing time limit", ""); err != nil {
			t.Fatalf("Failed to store failure %s: %v", id, err)
		}
	}

	records, err := ListFailures()
	if err != nil {
		t.Fatalf("Failed to list failures: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Expected 3 records, got %d", len(records))
	}

	count, err := Count()
	if err != nil {
		t.Fatalf("Failed to count failures: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected count 3, got %d", count)
	}
}

func TestFailureStoreNotInitialized(t *testing.T) {
	Close()
	db = nil

	if err := StoreFailure("job-x", "INTERNAL_ERROR", "boom", ""); err == nil {
		t.Error("Expected error when store is not initialized")
	}
}
