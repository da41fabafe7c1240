// Package remote is the client for the chunking service. It owns probing,
// retry with exponential backoff, per-attempt timeouts and the batch
// fallback from one combined call to per-document calls.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/docscrub/internal/document"
	"github.com/dgallion1/docscrub/internal/metrics"
	"github.com/dgallion1/docscrub/internal/wire"
)

// Endpoint labels used in logs and metrics.
const (
	EndpointHealth   = "health"
	EndpointFile     = "chunk-file"
	EndpointMultiple = "chunk-multiple"
	EndpointText     = "chunk-text"
	EndpointFormats  = "supported-formats"
)

// Config is the retry and timeout policy for the chunking service.
type Config struct {
	BaseURL string
	// Retries is the total number of attempts per call.
	Retries        int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// Timeout bounds each individual attempt.
	Timeout      time.Duration
	ProbeTimeout time.Duration
	// BatchMax is the largest batch sent as one combined call.
	BatchMax int
}

func DefaultConfig() Config {
	return Config{
		Retries:        3,
		BackoffInitial: time.Second,
		BackoffMax:     10 * time.Second,
		Timeout:        5 * time.Minute,
		ProbeTimeout:   5 * time.Second,
		BatchMax:       5,
	}
}

// Client communicates with the chunking service HTTP API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleep      Sleeper
	log        *slog.Logger
	metrics    *metrics.Metrics
	stats      *LatencyStats
}

type Option func(*Client)

func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func New(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.Retries <= 0 {
		cfg.Retries = def.Retries
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = def.BackoffInitial
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = def.BackoffMax
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ProbeTimeout <= 0 || cfg.ProbeTimeout > def.ProbeTimeout {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if cfg.BatchMax <= 0 {
		cfg.BatchMax = def.BatchMax
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		sleep:      SleepContext,
		log:        slog.Default(),
		stats:      NewLatencyStats(time.Hour),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("component", "remote", "base_url", cfg.BaseURL)
	return c
}

// Stats summarises the attempts made in the last hour.
func (c *Client) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Result is a successfully chunked document.
type Result struct {
	FileName       string
	FileSizeBytes  int64
	FileSizeMB     float64
	TotalWordCount int
	Chunks         []document.Chunk
	ProcessingTime time.Duration
}

// BatchResult is one document's independent result from ChunkMany.
type BatchResult struct {
	Document string
	Result   *Result
	Err      error
}

// Probe reports whether GET /health answers 200 within the probe timeout.
// It never returns an error.
func (c *Client) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		c.log.Warn("build probe request", "error", err)
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			err = &statusError{Status: resp.StatusCode}
		}
	}
	c.metrics.ObserveRemote(EndpointHealth, err, time.Since(start))
	if err != nil {
		c.log.Debug("remote probe failed", "error", err)
		return false
	}
	return true
}

// ChunkOne uploads doc to /chunk-file, retrying on any failure.
func (c *Client) ChunkOne(ctx context.Context, doc document.Document, chunkSize, overlap int) (*Result, error) {
	body, contentType, err := encodeFiles(wire.FieldFile, []document.Document{doc}, chunkSize, overlap)
	if err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}

	var out wire.ChunkResponse
	err = c.retry(ctx, EndpointFile, func(ctx context.Context) error {
		out = wire.ChunkResponse{}
		if err := c.post(ctx, "/chunk-file", contentType, body, &out); err != nil {
			return err
		}
		return checkResponse(out)
	})
	if err != nil {
		return nil, err
	}
	return toResult(out), nil
}

// ChunkText sends already-extracted text to /chunk-text, retrying on failure.
func (c *Client) ChunkText(ctx context.Context, text string, chunkSize, overlap int) (*Result, error) {
	body, err := json.Marshal(wire.TextRequest{Text: text, ChunkSizeWords: chunkSize, OverlapWords: overlap})
	if err != nil {
		return nil, fmt.Errorf("marshal text request: %w", err)
	}

	var out wire.ChunkResponse
	err = c.retry(ctx, EndpointText, func(ctx context.Context) error {
		out = wire.ChunkResponse{}
		if err := c.post(ctx, "/chunk-text", "application/json", body, &out); err != nil {
			return err
		}
		return checkResponse(out)
	})
	if err != nil {
		return nil, err
	}
	return toResult(out), nil
}

// ChunkMany chunks a batch. Batches of at most BatchMax documents are first
// sent as one /chunk-multiple call; if that call fails or its results do
// not line up with the input, every document falls back to ChunkOne.
// Documents the combined call reported as failed are retried with ChunkOne
// individually. Results are in input order and independent of each other.
func (c *Client) ChunkMany(ctx context.Context, docs []document.Document, chunkSize, overlap int) []BatchResult {
	results := make([]BatchResult, len(docs))
	for i, d := range docs {
		results[i].Document = d.Name
	}
	if len(docs) == 0 {
		return results
	}

	pending := make([]int, 0, len(docs))
	if len(docs) <= c.cfg.BatchMax {
		multi, err := c.chunkMultiple(ctx, docs, chunkSize, overlap)
		switch {
		case err != nil:
			c.log.Warn("combined chunk call failed, falling back to per-document calls", "documents", len(docs), "error", err)
		case len(multi.Results) != len(docs):
			c.log.Warn("combined chunk call returned mismatched results, falling back",
				"documents", len(docs), "results", len(multi.Results))
		default:
			for i, r := range multi.Results {
				if err := checkResponse(r); err != nil {
					c.log.Warn("document failed in combined call, retrying alone", "document", docs[i].Name, "error", err)
					pending = append(pending, i)
					continue
				}
				results[i].Result = toResult(r)
			}
			return c.chunkSequential(ctx, docs, pending, chunkSize, overlap, results)
		}
	}

	for i := range docs {
		pending = append(pending, i)
	}
	return c.chunkSequential(ctx, docs, pending, chunkSize, overlap, results)
}

func (c *Client) chunkSequential(ctx context.Context, docs []document.Document, idx []int, chunkSize, overlap int, results []BatchResult) []BatchResult {
	for _, i := range idx {
		results[i].Result, results[i].Err = c.ChunkOne(ctx, docs[i], chunkSize, overlap)
	}
	return results
}

// chunkMultiple makes a single, unretried /chunk-multiple call.
func (c *Client) chunkMultiple(ctx context.Context, docs []document.Document, chunkSize, overlap int) (*wire.MultiResponse, error) {
	body, contentType, err := encodeFiles(wire.FieldFiles, docs, chunkSize, overlap)
	if err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	var out wire.MultiResponse
	err = c.attempt(ctx, EndpointMultiple, func(ctx context.Context) error {
		return c.post(ctx, "/chunk-multiple", contentType, body, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SupportedFormats fetches the service's accepted extensions.
func (c *Client) SupportedFormats(ctx context.Context) ([]string, error) {
	var out wire.FormatsResponse
	err := c.attempt(ctx, EndpointFormats, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/supported-formats", nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return c.do(req, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("supported formats: %w", err)
	}
	return out.SupportedFormats, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// checkResponse rejects success:false replies and puts the chunks in
// chunk_number order. Numbers must run 1..n with no gaps or repeats.
func checkResponse(r wire.ChunkResponse) error {
	if !r.Success {
		return &rejectedError{Type: r.ErrorType, Message: r.Error}
	}
	slices.SortStableFunc(r.Chunks, func(a, b document.Chunk) int { return a.Index - b.Index })
	for i, c := range r.Chunks {
		if c.Index != i+1 {
			return &rejectedError{Type: "invalid_response", Message: fmt.Sprintf("chunk numbers are not 1..%d", len(r.Chunks))}
		}
	}
	return nil
}

func toResult(r wire.ChunkResponse) *Result {
	return &Result{
		FileName:       r.FileName,
		FileSizeBytes:  r.FileSizeBytes,
		FileSizeMB:     r.FileSizeMB,
		TotalWordCount: r.TotalWordCount,
		Chunks:         r.Chunks,
		ProcessingTime: time.Duration(r.ProcessingTimeSeconds * float64(time.Second)),
	}
}

// encodeFiles builds a multipart body with each document under field plus
// the chunk size parameters.
func encodeFiles(field string, docs []document.Document, chunkSize, overlap int) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, d := range docs {
		part, err := w.CreateFormFile(field, d.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(d.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField(wire.FieldChunkSizeWords, strconv.Itoa(chunkSize)); err != nil {
		return nil, "", err
	}
	if err := w.WriteField(wire.FieldOverlapWords, strconv.Itoa(overlap)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
