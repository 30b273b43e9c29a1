package models

import "time"

// CompressionOptions is the JSON "options" part of a compress request.
// FFmpegArgs is an ordered flag/value token sequence; order is
// preserved all the way to the engine invocation. Duplicate flags are
// permitted and the later instance wins, which is ffmpeg's own CLI
// precedence.
type CompressionOptions struct {
	FFmpegArgs   []string `json:"ffmpeg_args"`
	OutputFormat string   `json:"output_format,omitempty"`
}

// FileInfo carries the size metrics of one compression.
// CompressionRatio is compressed/original, so <= 1.0 means the engine
// actually shrank the file.
type FileInfo struct {
	OriginalSize     int64   `json:"original_size"`
	CompressedSize   int64   `json:"compressed_size"`
	CompressionRatio float64 `json:"compression_ratio"`
}

// CompressionResponse is the success payload of the compress endpoint.
// ProcessingTime covers the transcode step only, not upload/download.
type CompressionResponse struct {
	Status         string    `json:"status"`
	DownloadURL    string    `json:"download_url"`
	ExpiresAt      time.Time `json:"expires_at"`
	ProcessingTime float64   `json:"processing_time"`
	FileInfo       FileInfo  `json:"file_info"`
}

// ErrorResponse is the error payload of the compress endpoint.
type ErrorResponse struct {
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}
