// Package policy decides how each document is chunked: whole, locally in
// paragraph-preserving chunks, or by the remote chunking service.
package policy

import (
	"context"
	"log/slog"
)

// Route is where a document's chunking happens.
type Route string

const (
	RouteLocal  Route = "local"
	RouteRemote Route = "remote"
)

// Strategy is how a routed document is chunked.
type Strategy string

const (
	// StrategySingle treats the whole document as one chunk.
	StrategySingle     Strategy = "single"
	StrategyStructured Strategy = "structured"
	StrategyRemote     Strategy = "remote"
)

// Config holds the thresholds a Policy classifies against.
type Config struct {
	SizeThresholdBytes int64
	WordThreshold      int
	ChunkSizeWords     int
	OverlapWords       int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		SizeThresholdBytes: 10 * 1024 * 1024,
		WordThreshold:      50000,
		ChunkSizeWords:     10000,
		OverlapWords:       100,
	}
}

// Decision is the derived routing for one document.
type Decision struct {
	IsLarge         bool     `json:"is_large"`
	Route           Route    `json:"route"`
	Strategy        Strategy `json:"strategy"`
	ChunkSizeWords  int      `json:"chunk_size_words"`
	OverlapWords    int      `json:"overlap_words"`
	EstimatedChunks int      `json:"estimated_chunks"`
}

// Prober reports whether the remote chunking service is reachable.
type Prober interface {
	Probe(ctx context.Context) bool
}

// Policy classifies documents. A nil prober means no remote service is
// configured, so large documents always stay local.
type Policy struct {
	cfg    Config
	prober Prober
	log    *slog.Logger
}

func New(cfg Config, prober Prober, log *slog.Logger) *Policy {
	if log == nil {
		log = slog.Default()
	}
	return &Policy{cfg: cfg, prober: prober, log: log.With("component", "policy")}
}

// Config returns the thresholds in use.
func (p *Policy) Config() Config {
	return p.cfg
}

// IsLarge reports whether a document exceeds either threshold.
func (c Config) IsLarge(byteSize int64, wordCount int) bool {
	return byteSize > c.SizeThresholdBytes || wordCount > c.WordThreshold
}

// EstimatedChunks is ceil(wordCount/ChunkSizeWords) for large documents and
// 1 otherwise.
func (c Config) EstimatedChunks(large bool, wordCount int) int {
	if !large || c.ChunkSizeWords <= 0 {
		return 1
	}
	return max(1, (wordCount+c.ChunkSizeWords-1)/c.ChunkSizeWords)
}

// Classify routes a document. The remote service is probed only for large
// documents.
func (p *Policy) Classify(ctx context.Context, byteSize int64, wordCount int) Decision {
	large := p.cfg.IsLarge(byteSize, wordCount)
	d := Decision{
		IsLarge:         large,
		Route:           RouteLocal,
		Strategy:        StrategySingle,
		ChunkSizeWords:  p.cfg.ChunkSizeWords,
		OverlapWords:    p.cfg.OverlapWords,
		EstimatedChunks: p.cfg.EstimatedChunks(large, wordCount),
	}
	if !large {
		return d
	}

	if p.prober != nil && p.prober.Probe(ctx) {
		d.Route = RouteRemote
		d.Strategy = StrategyRemote
		return d
	}

	if p.prober != nil {
		p.log.Warn("remote chunking unavailable, falling back to local", "bytes", byteSize, "words", wordCount)
	}
	d.Strategy = StrategyStructured
	return d
}
