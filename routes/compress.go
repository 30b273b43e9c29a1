package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"vidpress/job"
	"vidpress/logger"
	"vidpress/models"
	"vidpress/utils"

	"github.com/google/uuid"
)

// multipartMemoryLimit is the in-memory threshold for multipart
// parsing; larger parts spill to disk.
const multipartMemoryLimit = 32 << 20

// CompressHandler serves POST /api/v1/compress: multipart intake,
// optional bearer auth, then the compression pipeline.
type CompressHandler struct {
	Pipeline          *job.Pipeline
	MaxUploadBytes    int64
	AllowedExtensions []string
	JWTSecret         string // empty disables auth
}

func (h *CompressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("compress request: remoteAddr=%s", r.RemoteAddr)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.JWTSecret != "" {
		if err := h.verifyBearer(r); err != nil {
			logger.Warnf("rejected unauthenticated compress request: %v", err)
			http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, models.CodeValidation,
				fmt.Sprintf("upload exceeds the %d byte limit", h.MaxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, models.CodeValidation,
			"failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, models.CodeValidation,
			"missing file part")
		return
	}
	defer file.Close()

	if err := h.checkExtension(header.Filename); err != nil {
		writeError(w, http.StatusBadRequest, models.CodeValidation, err.Error())
		return
	}

	opts, err := parseOptions(r.FormValue("options"))
	if err != nil {
		writeError(w, http.StatusBadRequest, models.CodeValidation, err.Error())
		return
	}

	jobID := uuid.NewString()
	logger.Infof("job %s accepted: %s (%d bytes declared)", jobID, header.Filename, header.Size)

	response, err := h.Pipeline.Process(r.Context(), job.Request{
		JobID:    jobID,
		Filename: header.Filename,
		Payload:  file,
		Options:  opts,
	})
	if err != nil {
		ce := models.AsCompressionError(err)
		writeError(w, ce.HTTPStatus(), ce.Code, ce.Message)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Errorf("failed to encode compress response: %v", err)
	}
}

// verifyBearer validates the Authorization header against the shared
// secret.
func (h *CompressHandler) verifyBearer(r *http.Request) error {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return fmt.Errorf("authorization header required")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return fmt.Errorf("invalid authorization header format")
	}

	_, err := utils.VerifyUploadJWT(token, utils.VerifyConfig{
		SecretKey: []byte(h.JWTSecret),
	})
	return err
}

func (h *CompressHandler) checkExtension(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename is required")
	}
	lower := strings.ToLower(filename)
	for _, ext := range h.AllowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return nil
		}
	}
	return fmt.Errorf("file extension not allowed, accepted: %v", h.AllowedExtensions)
}

// parseOptions decodes the JSON options part. An absent part means
// default options.
func parseOptions(raw string) (models.CompressionOptions, error) {
	if raw == "" {
		raw = "{}"
	}
	var opts models.CompressionOptions
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return models.CompressionOptions{}, fmt.Errorf("invalid JSON in options")
	}
	return opts, nil
}

// writeError sends the structured error payload every failure path
// uses.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(models.ErrorResponse{
		Status:    "error",
		ErrorCode: code,
		Message:   message,
	}); err != nil {
		logger.Errorf("failed to encode error response: %v", err)
	}
}
