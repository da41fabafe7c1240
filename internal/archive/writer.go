package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// File is one named text artifact placed in the bundle.
type File struct {
	Name    string
	Content string
}

// Request describes the artifacts of one document.
type Request struct {
	MergedName  string
	Merged      string
	ArchiveName string
	// Files are the per-chunk files, in order. Empty for single-chunk
	// documents, whose bundle holds only the merged file.
	Files []File
}

// Bundle references the written artifacts.
type Bundle struct {
	MergedRef  string `json:"merged"`
	ArchiveRef string `json:"archive"`
}

// Writer stores a merged file plus a zip bundle of the chunk files and the
// merged file.
type Writer struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewWriter(store Store, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{store: store, log: log.With("component", "archive"), now: time.Now}
}

// Store returns the backing store.
func (w *Writer) Store() Store {
	return w.store
}

func (w *Writer) Write(ctx context.Context, req Request) (Bundle, error) {
	mergedRef, err := w.store.Put(ctx, req.MergedName, []byte(req.Merged))
	if err != nil {
		return Bundle{}, fmt.Errorf("store merged file: %w", err)
	}

	zipped, err := w.zip(req)
	if err != nil {
		return Bundle{}, fmt.Errorf("build archive: %w", err)
	}
	archiveRef, err := w.store.Put(ctx, req.ArchiveName, zipped)
	if err != nil {
		return Bundle{}, fmt.Errorf("store archive: %w", err)
	}

	w.log.Debug("artifacts written", "merged", mergedRef, "archive", archiveRef,
		"chunk_files", len(req.Files), "archive_bytes", len(zipped))
	return Bundle{MergedRef: mergedRef, ArchiveRef: archiveRef}, nil
}

func (w *Writer) zip(req Request) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := w.now()

	files := append(append([]File(nil), req.Files...), File{Name: req.MergedName, Content: req.Merged})
	for _, f := range files {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", f.Name, err)
		}
		if _, err := fw.Write([]byte(f.Content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
