package chunkservice

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docscrub/internal/apperr"
	"github.com/dgallion1/docscrub/internal/document"
	"github.com/dgallion1/docscrub/internal/httpx"
	"github.com/dgallion1/docscrub/internal/metrics"
	"github.com/dgallion1/docscrub/internal/wire"
)

// Server is the HTTP front of a Service.
type Server struct {
	router  chi.Router
	svc     *Service
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewServer(svc *Service, m *metrics.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{svc: svc, metrics: m, log: log}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httpx.RequestLogger(s.log, s.metrics))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/supported-formats", s.handleFormats)
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(httpx.AuthMiddleware(s.svc.cfg.APIKey, s.log))
		r.Post("/chunk-file", s.handleChunkFile)
		r.Post("/chunk-multiple", s.handleChunkMultiple)
		r.Post("/chunk-text", s.handleChunkText)
	})

	s.router = r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"service":     ServiceName,
		"version":     ServiceVersion,
		"description": "API service for chunking large documents while preserving structure",
		"endpoints": map[string]string{
			"health":            "/health",
			"chunk_file":        "/chunk-file",
			"chunk_multiple":    "/chunk-multiple",
			"chunk_text":        "/chunk-text",
			"supported_formats": "/supported-formats",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, wire.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   ServiceName,
		Version:   ServiceVersion,
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, SupportedFormats())
}

func (s *Server) handleChunkFile(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[wire.FieldFile]
	if len(files) == 0 {
		httpx.JSONError(w, "file is required", http.StatusBadRequest)
		return
	}
	size, overlap := s.chunkParams(r)

	doc, err := readUpload(files[0])
	if err != nil {
		httpx.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !doc.Format.RemoteSupported() {
		httpx.JSONError(w, unsupportedMessage(doc.Name), http.StatusBadRequest)
		return
	}

	s.log.Info("chunking file", "document", doc.Name, "bytes", doc.Size(), "chunk_size", size)
	httpx.WriteJSON(w, http.StatusOK, s.svc.ChunkDocument(r.Context(), doc, size, overlap))
}

func (s *Server) handleChunkMultiple(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[wire.FieldFiles]
	if len(files) == 0 {
		httpx.JSONError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	if len(files) > MaxFilesPerRequest {
		httpx.JSONError(w, fmt.Sprintf("Too many files. Maximum %d files per request.", MaxFilesPerRequest), http.StatusBadRequest)
		return
	}
	size, overlap := s.chunkParams(r)

	out := wire.MultiResponse{Results: make([]wire.ChunkResponse, 0, len(files))}
	for _, fh := range files {
		doc, err := readUpload(fh)
		switch {
		case err != nil:
			out.Results = append(out.Results, failed(fh.Filename, err.Error(), "upload_error"))
		case !doc.Format.RemoteSupported():
			out.Results = append(out.Results, failed(doc.Name, unsupportedMessage(doc.Name), apperr.Kind(apperr.ErrFormat)))
		default:
			out.Results = append(out.Results, s.svc.ChunkDocument(r.Context(), doc, size, overlap))
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleChunkText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.svc.cfg.MaxRequestBytes)

	var req wire.TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			httpx.JSONError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		httpx.JSONError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		httpx.JSONError(w, "Empty text content provided", http.StatusBadRequest)
		return
	}

	size, overlap := s.chunkParams(r)
	if req.ChunkSizeWords > 0 {
		size = req.ChunkSizeWords
	}
	if req.OverlapWords > 0 {
		overlap = req.OverlapWords
	}
	httpx.WriteJSON(w, http.StatusOK, s.svc.ChunkText(req.Text, size, overlap))
}

// parseForm reads the multipart body under the request bound and writes the
// error response itself when it fails.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if r.ContentLength > s.svc.cfg.MaxRequestBytes {
		httpx.JSONError(w, fmt.Sprintf("request exceeds %d bytes", s.svc.cfg.MaxRequestBytes), http.StatusRequestEntityTooLarge)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.svc.cfg.MaxRequestBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			httpx.JSONError(w, fmt.Sprintf("request exceeds %d bytes", s.svc.cfg.MaxRequestBytes), http.StatusRequestEntityTooLarge)
			return false
		}
		httpx.JSONError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// chunkParams reads chunk_size_words and overlap_words from the form or
// query string, falling back to the configured defaults.
func (s *Server) chunkParams(r *http.Request) (size, overlap int) {
	size = s.svc.cfg.DefaultChunkSizeWords
	if n, err := strconv.Atoi(r.FormValue(wire.FieldChunkSizeWords)); err == nil && n > 0 {
		size = n
	}
	overlap = s.svc.cfg.DefaultOverlapWords
	if n, err := strconv.Atoi(r.FormValue(wire.FieldOverlapWords)); err == nil && n >= 0 {
		overlap = n
	}
	return size, overlap
}

func readUpload(fh *multipart.FileHeader) (document.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return document.Document{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return document.Document{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return document.New(filepath.Base(fh.Filename), data), nil
}

func unsupportedMessage(name string) string {
	return fmt.Sprintf("Unsupported file format: %s. Supported formats: %v",
		strings.ToLower(filepath.Ext(name)), document.RemoteFormats)
}

func failed(name, msg, kind string) wire.ChunkResponse {
	return wire.ChunkResponse{FileName: name, Error: msg, ErrorType: kind, Chunks: []document.Chunk{}}
}
