package routes

import (
	"encoding/json"
	"fmt"
	"net/http"

	"vidpress/logger"
	"vidpress/success"
)

// SuccessHandler returns the success record for a job by id
func SuccessHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Success lookup request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		logger.Warnf("Invalid method for success endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := r.URL.Query().Get("id")
	if jobID == "" {
		logger.Warn("Missing id parameter in success lookup request")
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	record, err := success.GetSuccess(jobID)
	if err != nil {
		logger.Errorf("Failed to look up success record %s: %v", jobID, err)
		http.Error(w, "Failed to look up success record", http.StatusInternalServerError)
		return
	}
	if record == nil {
		logger.Warnf("Success record not found: %s", jobID)
		http.Error(w, fmt.Sprintf("No success record for job %s", jobID), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(record); err != nil {
		logger.Errorf("Failed to encode success response: %v", err)
		return
	}
}

// SuccessListHandler returns all success records
func SuccessListHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Success list request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		logger.Warnf("Invalid method for success list endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := success.ListSuccessRecords()
	if err != nil {
		logger.Errorf("Failed to list success records: %v", err)
		http.Error(w, "Failed to list success records", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"records": records,
		"count":   len(records),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Errorf("Failed to encode success list response: %v", err)
		return
	}
}
