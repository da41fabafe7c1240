// Package pipeline drives documents through extraction, routing, chunking,
// cleaning, reassembly and packaging, synchronously for a batch or through
// an asynchronous job queue.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docscrub/internal/apperr"
	"github.com/dgallion1/docscrub/internal/archive"
	"github.com/dgallion1/docscrub/internal/chunker"
	"github.com/dgallion1/docscrub/internal/document"
	"github.com/dgallion1/docscrub/internal/metrics"
	"github.com/dgallion1/docscrub/internal/policy"
	"github.com/dgallion1/docscrub/internal/remote"
	"github.com/dgallion1/docscrub/internal/textfilter"
)

// Extractor turns raw document bytes into text.
type Extractor interface {
	Extract(data []byte, format document.Format) (string, error)
}

// RemoteChunker is the remote chunking service.
type RemoteChunker interface {
	Probe(ctx context.Context) bool
	ChunkMany(ctx context.Context, docs []document.Document, chunkSize, overlap int) []remote.BatchResult
	ChunkText(ctx context.Context, text string, chunkSize, overlap int) (*remote.Result, error)
}

// ArchiveWriter stores a document's merged file and bundle.
type ArchiveWriter interface {
	Write(ctx context.Context, req archive.Request) (archive.Bundle, error)
}

// Config is passed explicitly into every Orchestrator.
type Config struct {
	Policy policy.Config
	// Concurrency bounds how many documents of a batch are worked on at once.
	Concurrency int
}

// Orchestrator runs batches of documents. Each document yields exactly one
// Outcome; a failure in one document never affects another.
type Orchestrator struct {
	cfg       Config
	extractor Extractor
	remote    RemoteChunker
	archive   ArchiveWriter
	policy    *policy.Policy
	metrics   *metrics.Metrics
	log       *slog.Logger
	newUID    func() string
}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithUIDFunc overrides the artifact suffix generator.
func WithUIDFunc(f func() string) Option {
	return func(o *Orchestrator) { o.newUID = f }
}

// NewOrchestrator wires a pipeline. rc may be nil, in which case large
// documents are always chunked locally.
func NewOrchestrator(cfg Config, extractor Extractor, rc RemoteChunker, writer ArchiveWriter, opts ...Option) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	o := &Orchestrator{
		cfg:       cfg,
		extractor: extractor,
		remote:    rc,
		archive:   writer,
		log:       slog.Default(),
		newUID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With("component", "pipeline")

	var prober policy.Prober
	if rc != nil {
		prober = rc
	}
	o.policy = policy.New(cfg.Policy, prober, o.log)
	return o
}

// run is the per-document state carried between stages.
type run struct {
	doc      document.Document
	uid      string
	log      *slog.Logger
	text     string
	words    int
	decision policy.Decision
	chunks   []document.Chunk
	err      error
}

// Process runs a single document.
func (o *Orchestrator) Process(ctx context.Context, doc document.Document) document.Outcome {
	return o.ProcessBatch(ctx, []document.Document{doc})[0]
}

// ProcessBatch runs every document and returns their outcomes in input
// order. Extraction and cleaning run with bounded parallelism; documents
// routed to the remote service are chunked together so small batches share
// one remote call.
func (o *Orchestrator) ProcessBatch(ctx context.Context, docs []document.Document) []document.Outcome {
	runs := make([]*run, len(docs))
	for i, d := range docs {
		uid := o.newUID()
		runs[i] = &run{doc: d, uid: uid, log: o.log.With("document", d.Name, "uid", uid)}
	}

	o.parallel(runs, func(_ int, r *run) { o.prepare(ctx, r) })
	o.chunkRemote(ctx, runs)

	outcomes := make([]document.Outcome, len(runs))
	o.parallel(runs, func(i int, r *run) { outcomes[i] = o.finish(ctx, r) })
	for i, r := range runs {
		if r.err != nil {
			outcomes[i] = o.failure(r)
		}
	}
	return outcomes
}

// parallel applies fn to every run still without an error, at most
// Concurrency at a time. A panic inside fn fails only that run.
func (o *Orchestrator) parallel(runs []*run, fn func(i int, r *run)) {
	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for i, r := range runs {
		if r.err != nil {
			continue
		}
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					r.log.Error("panic in document pipeline", "panic", p, "stack", string(debug.Stack()))
					r.err = apperr.Newf(apperr.ErrInternal, "unexpected failure: %v", p)
				}
			}()
			fn(i, r)
			return nil
		})
	}
	g.Wait()
}

// prepare extracts, classifies and, for local routes, chunks one document.
func (o *Orchestrator) prepare(ctx context.Context, r *run) {
	text, err := o.extractor.Extract(r.doc.Data, r.doc.Format)
	if err != nil {
		r.err = err
		return
	}
	r.text = text
	r.words = chunker.CountWords(text)
	r.decision = o.policy.Classify(ctx, r.doc.Size(), r.words)
	o.metrics.ObserveRoute(string(r.decision.Route), string(r.decision.Strategy))
	r.log.Info("classified document",
		"bytes", r.doc.Size(), "words", r.words, "large", r.decision.IsLarge,
		"route", r.decision.Route, "strategy", r.decision.Strategy,
		"estimated_chunks", r.decision.EstimatedChunks)

	switch r.decision.Strategy {
	case policy.StrategySingle:
		r.chunks = []document.Chunk{{Index: 1, WordCount: r.words, Content: text}}
	case policy.StrategyStructured:
		r.chunks = chunker.SplitStructured(text, r.decision.ChunkSizeWords)
	}
}

// chunkRemote sends every remote-routed document to the chunking service.
// Uploadable formats go through ChunkMany; other formats send their
// extracted text.
func (o *Orchestrator) chunkRemote(ctx context.Context, runs []*run) {
	var uploads []*run
	for _, r := range runs {
		if r.err != nil || r.decision.Route != policy.RouteRemote {
			continue
		}
		if r.doc.Format.RemoteSupported() {
			uploads = append(uploads, r)
			continue
		}
		res, err := o.remote.ChunkText(ctx, r.text, r.decision.ChunkSizeWords, r.decision.OverlapWords)
		o.takeRemote(r, res, err)
	}
	if len(uploads) == 0 {
		return
	}

	// Documents in one ChunkMany call share the first document's sizing;
	// sizing is batch-wide configuration.
	docs := make([]document.Document, len(uploads))
	for i, r := range uploads {
		docs[i] = r.doc
	}
	size, overlap := uploads[0].decision.ChunkSizeWords, uploads[0].decision.OverlapWords
	for i, br := range o.remote.ChunkMany(ctx, docs, size, overlap) {
		o.takeRemote(uploads[i], br.Result, br.Err)
	}
}

func (o *Orchestrator) takeRemote(r *run, res *remote.Result, err error) {
	if err != nil {
		r.log.Error("remote chunking failed", "error", err)
		r.err = err
		return
	}
	r.chunks = res.Chunks
	r.log.Info("remote chunking complete", "chunks", len(res.Chunks), "remote_words", res.TotalWordCount)
}

// finish cleans each chunk, reassembles and packages the document.
func (o *Orchestrator) finish(ctx context.Context, r *run) document.Outcome {
	cleaned := make([]string, len(r.chunks))
	for i, c := range r.chunks {
		cleaned[i] = textfilter.Clean(c.Content)
	}
	merged := chunker.Merge(cleaned)

	base := r.doc.Basename()
	req := archive.Request{
		MergedName:  document.MergedName(base, r.uid),
		Merged:      merged,
		ArchiveName: document.ArchiveName(base, r.uid),
	}
	if r.decision.Strategy != policy.StrategySingle {
		req.Files = make([]archive.File, len(cleaned))
		for i, c := range cleaned {
			req.Files[i] = archive.File{Name: document.ChunkName(base, i+1, r.uid), Content: c}
		}
	}

	bundle, err := o.archive.Write(ctx, req)
	if err != nil {
		r.err = apperr.Wrap(apperr.ErrInternal, err, "package artifacts")
		return document.Outcome{}
	}

	o.metrics.AddChunks(len(cleaned))
	o.metrics.ObserveOutcome(string(document.StatusSuccess), "")
	r.log.Info("document cleaned", "chunks", len(cleaned), "merged", bundle.MergedRef, "archive", bundle.ArchiveRef)

	return document.Outcome{
		Document:  r.doc.Name,
		Status:    document.StatusSuccess,
		Artifacts: &document.Artifacts{Merged: bundle.MergedRef, Archive: bundle.ArchiveRef},
		Metrics: &document.Metrics{
			WordCount:  r.words,
			ChunkCount: len(cleaned),
			SizeMB:     r.doc.SizeMB(),
			Route:      string(r.decision.Route),
			Strategy:   string(r.decision.Strategy),
		},
	}
}

func (o *Orchestrator) failure(r *run) document.Outcome {
	kind := apperr.Kind(r.err)
	o.metrics.ObserveOutcome(string(document.StatusError), kind)
	r.log.Warn("document failed", "kind", kind, "error", r.err)
	return document.Outcome{
		Document:  r.doc.Name,
		Status:    document.StatusError,
		Error:     r.err.Error(),
		ErrorKind: kind,
	}
}

// Describe is a short human summary of a batch's outcomes.
func Describe(outcomes []document.Outcome) string {
	failed := 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		}
	}
	return fmt.Sprintf("%d document(s), %d succeeded, %d failed", len(outcomes), len(outcomes)-failed, failed)
}
