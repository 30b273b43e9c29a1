package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"vidpress/config"
	"vidpress/credentials"
	"vidpress/failures"
	"vidpress/job"
	"vidpress/logger"
	"vidpress/routes"
	"vidpress/storage"
	"vidpress/success"
	"vidpress/transcode"
)

func main() {
	logger.Info("Starting Vidpress server initialization")

	if err := os.MkdirAll(config.GetDataDir(), 0755); err != nil {
		logger.Fatalf("Failed to create data directory: %v", err)
	}

	// Initialize credentials store
	logger.Debug("Initializing credentials database")
	if err := credentials.OpenDB(config.GetCredentialsDBPath()); err != nil {
		logger.Fatalf("Failed to initialize credentials store: %v", err)
	}
	defer credentials.CloseDB()
	logger.Info("Credentials database initialized successfully")

	// Initialize failure store
	logger.Debug("Initializing failures database")
	if err := failures.Init(config.GetFailuresDBPath()); err != nil {
		logger.Fatalf("Failed to initialize failure store: %v", err)
	}
	defer failures.Close()
	logger.Info("Failures database initialized successfully")

	// Initialize success store
	logger.Debug("Initializing success database")
	if err := success.Init(config.GetSuccessDBPath()); err != nil {
		logger.Fatalf("Failed to initialize success store: %v", err)
	}
	defer success.Close()
	logger.Info("Success database initialized successfully")

	backend, err := buildBackend()
	if err != nil {
		logger.Fatalf("Failed to initialize storage backend: %v", err)
	}
	logger.Infof("Storage backend %q initialized", config.GetStorageBackend())

	sem := job.NewSemaphore(config.GetConcurrency())

	pipeline := &job.Pipeline{
		Runner: &transcode.FFmpeg{
			Path:           config.GetFFmpegPath(),
			MaxStderrBytes: config.GetMaxStderrBytes(),
		},
		Backend:       backend,
		Sem:           sem,
		AllowedFlags:  config.GetAllowedFlags(),
		OutputFormats: config.GetOutputFormats(),
		RunTimeout:    config.GetTranscodeTimeout(),
		AdmissionWait: config.GetAdmissionWait(),
		SignedURLTTL:  config.GetSignedURLTTL(),
		TempRoot:      config.GetTempRoot(),
	}

	// Start cleanup routine for old records (runs every 24 hours)
	logger.Info("Starting cleanup routine (runs every 24 hours)")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cleanupRoutine(ctx, backend)

	// Register HTTP routes
	logger.Info("Registering HTTP routes")
	http.Handle("/api/v1/compress", &routes.CompressHandler{
		Pipeline:          pipeline,
		MaxUploadBytes:    config.GetMaxUploadBytes(),
		AllowedExtensions: config.GetAllowedExtensions(),
		JWTSecret:         config.GetJWTSecret(),
	})
	http.HandleFunc("/health", routes.HealthHandler)
	http.HandleFunc("/version", routes.VersionHandler)
	http.Handle("/api/v1/status", &routes.ServiceStatusHandler{Sem: sem})
	http.HandleFunc("/api/v1/credentials", routes.RegisterCredentialsHandler)
	http.HandleFunc("/api/v1/failures", routes.FailureHandler)
	http.HandleFunc("/api/v1/failures/list", routes.FailureListHandler)
	http.HandleFunc("/api/v1/success", routes.SuccessHandler)
	http.HandleFunc("/api/v1/success/list", routes.SuccessListHandler)
	if config.GetStorageBackend() == "direct" {
		fs := http.FileServer(http.Dir(config.GetDirectServeBaseDir()))
		http.Handle("/files/", http.StripPrefix("/files/", fs))
	}
	logger.Info("HTTP routes registered successfully")

	port := config.GetPort()
	logger.Infof("Vidpress server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Fatalf("Server failed to start: %v", err)
	}
}

// buildBackend resolves the configured storage backend. Credentials
// come from the credentials store when an access key is configured;
// the direct backend is wired straight from config.
func buildBackend() (storage.Backend, error) {
	name := config.GetStorageBackend()

	accessInfo := map[string]string{}
	if key := config.GetStorageCredKey(); key != "" {
		stored, err := credentials.GetCredentials(key)
		if err != nil {
			logger.Fatalf("Failed to load credentials for key %s: %v", key, err)
		}
		accessInfo = stored
	}

	if name == "direct" {
		if accessInfo["baseDir"] == "" {
			accessInfo["baseDir"] = config.GetDirectServeBaseDir()
		}
		if accessInfo["publicBaseURL"] == "" {
			accessInfo["publicBaseURL"] = config.GetPublicBaseURL()
		}
	}

	return storage.New(name, accessInfo)
}

// cleanupRoutine periodically cleans up old job records and expired
// direct-serve artifacts
func cleanupRoutine(ctx context.Context, backend storage.Backend) {
	logger.Info("Cleanup routine started - will run every 24 hours")
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup routine stopped due to context cancellation")
			return
		case <-ticker.C:
			logger.Info("Running scheduled cleanup of old records")
			maxAge := 30 * 24 * time.Hour

			if err := success.CleanupOldRecords(maxAge); err != nil {
				logger.Errorf("Failed to cleanup old success records: %v", err)
			}
			if err := failures.CleanupOldRecords(maxAge); err != nil {
				logger.Errorf("Failed to cleanup old failure records: %v", err)
			}

			if ds, ok := backend.(*storage.DirectServe); ok {
				removed, err := ds.Prune(config.GetSignedURLTTL())
				if err != nil {
					logger.Errorf("Failed to prune expired artifacts: %v", err)
				} else if removed > 0 {
					logger.Infof("Pruned %d expired artifacts", removed)
				}
			}

			logger.Info("Scheduled cleanup completed")
		}
	}
}
