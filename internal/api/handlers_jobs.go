package api

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docscrub/internal/archive"
	"github.com/dgallion1/docscrub/internal/httpx"
)

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.queue.GetJob(jobID)
	if job == nil {
		httpx.JSONError(w, "job not found", http.StatusNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, job.Snapshot())
}

// handleArtifact streams a stored artifact as a download.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rc, err := s.store.Open(r.Context(), name)
	if errors.Is(err, archive.ErrNotFound) {
		httpx.JSONError(w, "artifact not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("open artifact", "name", name, "error", err)
		httpx.JSONError(w, "failed to open artifact", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	switch filepath.Ext(name) {
	case ".zip":
		w.Header().Set("Content-Type", "application/zip")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		s.log.Warn("artifact download interrupted", "name", name, "error", err)
	}
}

func (s *Server) handleRemoteStatus(w http.ResponseWriter, r *http.Request) {
	if s.remote == nil {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"configured": false, "available": false})
		return
	}

	resp := map[string]any{"configured": true, "available": false, "stats": s.remote.Stats()}
	if s.remote.Probe(r.Context()) {
		resp["available"] = true
		formats, err := s.remote.SupportedFormats(r.Context())
		if err != nil {
			s.log.Warn("fetch remote formats", "error", err)
		} else {
			resp["supported_formats"] = formats
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
