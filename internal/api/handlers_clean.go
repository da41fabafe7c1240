package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docscrub/internal/apperr"
	"github.com/dgallion1/docscrub/internal/document"
	"github.com/dgallion1/docscrub/internal/httpx"
	"github.com/dgallion1/docscrub/internal/pipeline"
)

// handleClean runs the batch synchronously and returns one outcome per
// uploaded file, in upload order.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.readUploads(w, r)
	if !ok {
		return
	}

	outcomes := s.orch.ProcessBatch(r.Context(), docs)
	s.log.Info("batch cleaned", "summary", pipeline.Describe(outcomes))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"results": outcomes})
}

// handleSubmitJob queues the batch for background processing.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.readUploads(w, r)
	if !ok {
		return
	}

	job, err := s.queue.Submit(docs)
	if errors.Is(err, pipeline.ErrQueueFull) || errors.Is(err, pipeline.ErrQueueStopped) {
		httpx.JSONError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		s.log.Error("submit job", "error", err)
		httpx.JSONError(w, "failed to queue job", http.StatusInternalServerError)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]any{
		"job_id":    job.ID,
		"status":    job.Snapshot().Status,
		"documents": len(docs),
		"poll_url":  fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

// readUploads enforces the request size bound before parsing anything and
// collects the uploaded files. It writes the error response itself.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]document.Document, bool) {
	limit := s.cfg.MaxRequestBytes
	if r.ContentLength > limit {
		writeAppError(w, apperr.Newf(apperr.ErrSizeLimit, "request of %d bytes exceeds the %d byte limit", r.ContentLength, limit))
		return nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeAppError(w, apperr.Newf(apperr.ErrSizeLimit, "request exceeds the %d byte limit", limit))
			return nil, false
		}
		httpx.JSONError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	files := append(r.MultipartForm.File["files"], r.MultipartForm.File["file"]...)
	if len(files) == 0 {
		httpx.JSONError(w, "at least one file is required", http.StatusBadRequest)
		return nil, false
	}

	docs := make([]document.Document, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			httpx.JSONError(w, "failed to open file "+fh.Filename, http.StatusBadRequest)
			return nil, false
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			httpx.JSONError(w, "failed to read file "+fh.Filename, http.StatusBadRequest)
			return nil, false
		}
		docs = append(docs, document.New(sanitizeFilename(fh.Filename), data))
	}
	return docs, true
}

func writeAppError(w http.ResponseWriter, err error) {
	httpx.WriteJSON(w, apperr.HTTPStatus(err), map[string]string{
		"error":      err.Error(),
		"error_kind": apperr.Kind(err),
	})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
