// Package wire defines the JSON bodies exchanged with the chunking service.
package wire

import "github.com/dgallion1/docscrub/internal/document"

// ProcessingInfo echoes the parameters a chunking request ran with.
// Overlap is accepted but never applied to the produced chunks.
type ProcessingInfo struct {
	ChunkSizeWords int    `json:"chunk_size_words"`
	OverlapWords   int    `json:"overlap_words"`
	OverlapApplied bool   `json:"overlap_applied"`
	Strategy       string `json:"strategy"`
	Format         string `json:"format,omitempty"`
	Cached         bool   `json:"cached,omitempty"`
}

// ChunkResponse is returned by /chunk-file and /chunk-text and is the
// element type of /chunk-multiple results.
type ChunkResponse struct {
	Success               bool             `json:"success"`
	FileName              string           `json:"file_name,omitempty"`
	FileSizeBytes         int64            `json:"file_size_bytes,omitempty"`
	FileSizeMB            float64          `json:"file_size_mb,omitempty"`
	TotalWordCount        int              `json:"total_word_count"`
	ChunkCount            int              `json:"chunk_count"`
	Chunks                []document.Chunk `json:"chunks"`
	ProcessingInfo        *ProcessingInfo  `json:"processing_info,omitempty"`
	ProcessingTimeSeconds float64          `json:"processing_time_seconds"`
	Error                 string           `json:"error,omitempty"`
	ErrorType             string           `json:"error_type,omitempty"`
}

// MultiResponse is returned by /chunk-multiple, one result per file in
// upload order.
type MultiResponse struct {
	Results []ChunkResponse `json:"results"`
}

// TextRequest is the body of /chunk-text.
type TextRequest struct {
	Text           string `json:"text"`
	ChunkSizeWords int    `json:"chunk_size_words,omitempty"`
	OverlapWords   int    `json:"overlap_words,omitempty"`
}

// FormatsResponse is returned by /supported-formats.
type FormatsResponse struct {
	SupportedFormats []string          `json:"supported_formats"`
	Descriptions     map[string]string `json:"descriptions,omitempty"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Version   string `json:"version"`
}

// ErrorResponse is the body of non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Multipart and query field names.
const (
	FieldFile           = "file"
	FieldFiles          = "files"
	FieldChunkSizeWords = "chunk_size_words"
	FieldOverlapWords   = "overlap_words"
)
