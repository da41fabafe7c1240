// Package chunkservice is the HTTP chunking service the cleaner delegates
// large documents to. It extracts text, splits it into paragraph-preserving
// chunks and answers with the JSON shapes in package wire.
package chunkservice

import (
	"context"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dgallion1/docscrub/internal/apperr"
	"github.com/dgallion1/docscrub/internal/chunker"
	"github.com/dgallion1/docscrub/internal/document"
	"github.com/dgallion1/docscrub/internal/metrics"
	"github.com/dgallion1/docscrub/internal/parser"
	"github.com/dgallion1/docscrub/internal/wire"
)

const (
	ServiceName    = "Document Chunking Service"
	ServiceVersion = "1.0.0"
	// MaxFilesPerRequest bounds /chunk-multiple.
	MaxFilesPerRequest = 10
)

// Config holds the chunking service settings.
type Config struct {
	DefaultChunkSizeWords int
	DefaultOverlapWords   int
	// MaxRequestBytes bounds every request body.
	MaxRequestBytes int64
	APIKey          string
}

func DefaultConfig() Config {
	return Config{
		DefaultChunkSizeWords: 10000,
		DefaultOverlapWords:   100,
		MaxRequestBytes:       50 * 1024 * 1024,
	}
}

// Service chunks documents. The cache is optional.
type Service struct {
	cfg       Config
	extractor *parser.Extractor
	cache     Cache
	group     singleflight.Group
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func NewService(cfg Config, extractor *parser.Extractor, cache Cache, m *metrics.Metrics, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if extractor == nil {
		extractor = parser.NewExtractor(false)
	}
	return &Service{
		cfg:       cfg,
		extractor: extractor,
		cache:     cache,
		metrics:   m,
		log:       log.With("component", "chunkservice"),
	}
}

// ChunkDocument extracts and chunks doc. Failures are reported in the
// response with success set to false, never as an error.
func (s *Service) ChunkDocument(ctx context.Context, doc document.Document, chunkSize, overlap int) wire.ChunkResponse {
	start := time.Now()
	log := s.log.With("document", doc.Name, "bytes", doc.Size())

	if s.cache == nil {
		resp := s.chunkDocument(doc, chunkSize, overlap)
		resp.ProcessingTimeSeconds = roundSeconds(time.Since(start))
		return resp
	}

	key := CacheKey(doc.Data, string(doc.Format), chunkSize, overlap)
	if cached, ok := s.cache.Get(ctx, key); ok {
		s.metrics.ObserveCache(true)
		log.Debug("chunk cache hit", "key", key)
		resp := *cached
		resp.FileName = doc.Name
		if resp.ProcessingInfo != nil {
			info := *resp.ProcessingInfo
			info.Cached = true
			resp.ProcessingInfo = &info
		}
		resp.ProcessingTimeSeconds = roundSeconds(time.Since(start))
		return resp
	}
	s.metrics.ObserveCache(false)

	v, _, _ := s.group.Do(key, func() (any, error) {
		resp := s.chunkDocument(doc, chunkSize, overlap)
		if resp.Success {
			s.cache.Set(ctx, key, &resp)
		}
		return resp, nil
	})
	resp := v.(wire.ChunkResponse)
	resp.FileName = doc.Name
	resp.ProcessingTimeSeconds = roundSeconds(time.Since(start))
	return resp
}

func (s *Service) chunkDocument(doc document.Document, chunkSize, overlap int) wire.ChunkResponse {
	resp := wire.ChunkResponse{
		FileName:      doc.Name,
		FileSizeBytes: doc.Size(),
		FileSizeMB:    doc.SizeMB(),
		Chunks:        []document.Chunk{},
	}

	text, err := s.extractor.Extract(doc.Data, doc.Format)
	if err != nil {
		s.log.Warn("extraction failed", "document", doc.Name, "error", err)
		resp.Error = err.Error()
		resp.ErrorType = apperr.Kind(err)
		return resp
	}

	s.fill(&resp, text, chunkSize, overlap, string(doc.Format))
	return resp
}

// ChunkText chunks already-extracted text.
func (s *Service) ChunkText(text string, chunkSize, overlap int) wire.ChunkResponse {
	start := time.Now()
	resp := wire.ChunkResponse{Chunks: []document.Chunk{}}
	s.fill(&resp, text, chunkSize, overlap, "text")
	resp.ProcessingTimeSeconds = roundSeconds(time.Since(start))
	return resp
}

func (s *Service) fill(resp *wire.ChunkResponse, text string, chunkSize, overlap int, format string) {
	chunks := chunker.SplitStructured(text, chunkSize)
	if chunks == nil {
		chunks = []document.Chunk{}
	}
	resp.Success = true
	resp.TotalWordCount = chunker.CountWords(text)
	resp.ChunkCount = len(chunks)
	resp.Chunks = chunks
	resp.ProcessingInfo = &wire.ProcessingInfo{
		ChunkSizeWords: chunkSize,
		OverlapWords:   overlap,
		Strategy:       string(chunker.StrategyStructured),
		Format:         format,
	}
	s.metrics.AddChunks(len(chunks))
}

// SupportedFormats lists the accepted extensions with descriptions.
func SupportedFormats() wire.FormatsResponse {
	return wire.FormatsResponse{
		SupportedFormats: append([]string(nil), document.RemoteFormats...),
		Descriptions: map[string]string{
			".txt":  "Plain text files",
			".pdf":  "PDF documents",
			".docx": "Microsoft Word documents",
		},
	}
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
