package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"vidpress/failures"
	"vidpress/job"
	"vidpress/logger"
	"vidpress/success"
)

// ServiceStatusResponse reports the current capacity and lifetime job
// counters of the service.
type ServiceStatusResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Version        string    `json:"version"`
	ActiveJobs     int       `json:"active_jobs"`
	MaxConcurrency int       `json:"max_concurrency"`
	CompletedJobs  int       `json:"completed_jobs"`
	FailedJobs     int       `json:"failed_jobs"`
}

// ServiceStatusHandler returns slot usage and job counters.
type ServiceStatusHandler struct {
	Sem *job.Semaphore
}

func (h *ServiceStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Status request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		logger.Warnf("Invalid method for status endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	completed, err := success.Count()
	if err != nil {
		logger.Errorf("Failed to count success records: %v", err)
	}
	failed, err := failures.Count()
	if err != nil {
		logger.Errorf("Failed to count failure records: %v", err)
	}

	response := ServiceStatusResponse{
		Status:         "ok",
		Timestamp:      time.Now(),
		Version:        version,
		ActiveJobs:     h.Sem.Active(),
		MaxConcurrency: h.Sem.Capacity(),
		CompletedJobs:  completed,
		FailedJobs:     failed,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Errorf("Failed to encode status response: %v", err)
		return
	}
}
