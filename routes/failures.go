package routes

import (
	"encoding/json"
	"fmt"
	"net/http"

	"vidpress/failures"
	"vidpress/logger"
)

// FailureHandler returns the failure record for a job by id
func FailureHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Failure lookup request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		logger.Warnf("Invalid method for failures endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := r.URL.Query().Get("id")
	if jobID == "" {
		logger.Warn("Missing id parameter in failure lookup request")
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	record, err := failures.GetFailure(jobID)
	if err != nil {
		logger.Errorf("Failed to look up failure record %s: %v", jobID, err)
		http.Error(w, "Failed to look up failure record", http.StatusInternalServerError)
		return
	}
	if record == nil {
		logger.Warnf("Failure record not found: %s", jobID)
		http.Error(w, fmt.Sprintf("No failure record for job %s", jobID), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(record); err != nil {
		logger.Errorf("Failed to encode failure response: %v", err)
		return
	}
}

// FailureListHandler returns all failure records
func FailureListHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Failure list request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		logger.Warnf("Invalid method for failures list endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := failures.ListFailures()
	if err != nil {
		logger.Errorf("Failed to list failure records: %v", err)
		http.Error(w, "Failed to list failure records", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"records": records,
		"count":   len(records),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Errorf("Failed to encode failure list response: %v", err)
		return
	}
}
