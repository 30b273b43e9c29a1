package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Defaults for the compression pipeline. Every value can be overridden
// through a VIDPRESS_* environment variable; the getters below are the
// only way the rest of the code reads configuration.
const (
	defaultMaxUploadBytes   = 200 << 20 // 200 MB
	defaultTranscodeTimeout = 60 * time.Second
	defaultConcurrency      = 3
	defaultAdmissionWait    = 2 * time.Second
	defaultSignedURLTTL     = time.Hour
	defaultMaxStderrBytes   = 8 << 10
	defaultPort             = "8080"
)

// defaultAllowedFlags is the ffmpeg flag allow-list: codec, bitrate,
// quality, resolution, framerate, filter, preset/tune/profile and
// output-format selectors. Anything else is rejected before a process
// is ever spawned.
var defaultAllowedFlags = []string{
	"-c:v", "-vcodec", "-c:a", "-acodec",
	"-b:v", "-b:a", "-crf", "-s", "-r", "-vf",
	"-preset", "-tune", "-profile:v", "-f",
}

// defaultAllowedExtensions are the upload filename extensions accepted
// by the compress endpoint.
var defaultAllowedExtensions = []string{
	".mp4", ".avi", ".mov", ".mkv", ".wmv", ".flv",
	".webm", ".m4v", ".3gp", ".ogv",
}

// defaultOutputFormats are the container formats a client may request.
var defaultOutputFormats = []string{"mp4", "avi", "mov", "mkv", "webm"}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// GetDataDir returns the directory where vidpress keeps its databases.
// Configurable via VIDPRESS_DATA_DIR, defaults to "./data".
func GetDataDir() string {
	return envString("VIDPRESS_DATA_DIR", "./data")
}

// GetCredentialsDBPath returns the full path to the storage-credentials
// database. Path: {DATA_DIR}/credentials.db
func GetCredentialsDBPath() string {
	return filepath.Join(GetDataDir(), "credentials.db")
}

// GetFailuresDBPath returns the full path to the failures database.
// The failures database tracks compression jobs that failed.
// Path: {DATA_DIR}/failures.db
func GetFailuresDBPath() string {
	return filepath.Join(GetDataDir(), "failures.db")
}

// GetSuccessDBPath returns the full path to the success database.
// The success database tracks completed compression jobs.
// Path: {DATA_DIR}/success.db
func GetSuccessDBPath() string {
	return filepath.Join(GetDataDir(), "success.db")
}

// GetTempRoot returns the directory under which per-request workspaces
// are created. Configurable via VIDPRESS_TEMP_ROOT so deployments can
// point it at ephemeral container storage.
func GetTempRoot() string {
	return envString("VIDPRESS_TEMP_ROOT", os.TempDir())
}

// GetMaxUploadBytes returns the maximum accepted upload size in bytes.
func GetMaxUploadBytes() int64 {
	return envInt64("VIDPRESS_MAX_UPLOAD_BYTES", defaultMaxUploadBytes)
}

// GetTranscodeTimeout returns the hard wall-clock limit for one ffmpeg
// run. The per-request deadline is derived from this value.
func GetTranscodeTimeout() time.Duration {
	return envDuration("VIDPRESS_TRANSCODE_TIMEOUT", defaultTranscodeTimeout)
}

// GetConcurrency returns the global ceiling on simultaneously running
// compression pipelines. Kept low on purpose: every active request
// holds a full-size video on disk and an ffmpeg process on the CPU.
func GetConcurrency() int {
	n := envInt("VIDPRESS_CONCURRENCY", defaultConcurrency)
	if n < 1 {
		n = 1
	}
	return n
}

// GetAdmissionWait returns how long a request may wait for a free
// concurrency slot before being rejected with SERVICE_BUSY.
func GetAdmissionWait() time.Duration {
	return envDuration("VIDPRESS_ADMISSION_WAIT", defaultAdmissionWait)
}

// GetSignedURLTTL returns the validity window of minted download URLs.
func GetSignedURLTTL() time.Duration {
	return envDuration("VIDPRESS_SIGNED_URL_TTL", defaultSignedURLTTL)
}

// GetMaxStderrBytes returns the cap on captured ffmpeg stderr output.
// Output beyond the cap is discarded so a chatty engine cannot grow
// memory without bound.
func GetMaxStderrBytes() int {
	return envInt("VIDPRESS_MAX_STDERR_BYTES", defaultMaxStderrBytes)
}

// GetFFmpegPath returns the transcoding engine binary name or path.
func GetFFmpegPath() string {
	return envString("VIDPRESS_FFMPEG_PATH", "ffmpeg")
}

// GetAllowedFlags returns the ffmpeg flag allow-list. Override with a
// comma-separated VIDPRESS_ALLOWED_FLAGS for deployments that need a
// tighter (or wider) grammar.
func GetAllowedFlags() []string {
	if v := os.Getenv("VIDPRESS_ALLOWED_FLAGS"); v != "" {
		parts := strings.Split(v, ",")
		flags := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				flags = append(flags, p)
			}
		}
		if len(flags) > 0 {
			return flags
		}
	}
	return defaultAllowedFlags
}

// GetAllowedExtensions returns the accepted upload filename extensions.
func GetAllowedExtensions() []string {
	return defaultAllowedExtensions
}

// GetOutputFormats returns the accepted output container formats.
func GetOutputFormats() []string {
	return defaultOutputFormats
}

// GetStorageBackend selects the artifact storage backend: "gcs", "s3",
// "minio", "sftp" or "direct". Defaults to "direct" so a bare checkout
// works without cloud credentials.
func GetStorageBackend() string {
	return envString("VIDPRESS_STORAGE_BACKEND", "direct")
}

// GetStorageCredKey returns the credentials-store key the selected
// backend reads its access information from. Credentials are
// registered once via the credentials endpoint; an empty key means the
// backend falls back to environment/ambient credentials.
func GetStorageCredKey() string {
	return os.Getenv("VIDPRESS_STORAGE_CRED_KEY")
}

// GetDirectServeBaseDir returns the directory direct-serve artifacts
// are written to. Served by this process under /files/.
// Configurable via VIDPRESS_SERVE_DIR for server administrators.
func GetDirectServeBaseDir() string {
	return envString("VIDPRESS_SERVE_DIR", "./serve")
}

// GetPublicBaseURL returns the externally reachable base URL of this
// server, used to build download links for the direct and sftp
// backends.
func GetPublicBaseURL() string {
	return envString("VIDPRESS_PUBLIC_BASE_URL", "http://localhost:"+GetPort())
}

// GetJWTSecret returns the shared HMAC secret for bearer-token
// verification on the compress endpoint. Empty disables auth.
func GetJWTSecret() string {
	return os.Getenv("VIDPRESS_JWT_SECRET")
}

// GetPort returns the HTTP listen port.
func GetPort() string {
	return envString("VIDPRESS_PORT", defaultPort)
}
