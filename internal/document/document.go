// Package document holds the values that flow through the cleaning pipeline:
// the uploaded Document, the Chunks cut from its text, and the per-document
// Outcome reported back to the caller.
package document

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Format is the extractor tag for a document's raw bytes.
type Format string

const (
	FormatTXT  Format = "txt"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatMD   Format = "md"
	FormatHTML Format = "html"
)

// RemoteFormats lists the extensions the remote chunking service accepts.
var RemoteFormats = []string{".txt", ".pdf", ".docx"}

// FormatFromFilename maps a file extension to its Format. The second return
// value is false for extensions no extractor handles.
func FormatFromFilename(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text":
		return FormatTXT, true
	case ".pdf":
		return FormatPDF, true
	case ".docx":
		return FormatDOCX, true
	case ".md", ".markdown":
		return FormatMD, true
	case ".html", ".htm":
		return FormatHTML, true
	}
	return "", false
}

// RemoteSupported reports whether the remote chunking service can take this format.
func (f Format) RemoteSupported() bool {
	return f == FormatTXT || f == FormatPDF || f == FormatDOCX
}

// Document is an uploaded file. It is never modified after it is received.
type Document struct {
	Name   string
	Format Format
	Data   []byte
}

// New builds a Document, deriving its format from the file name. Unknown
// extensions leave Format empty; extraction then fails with a format error.
func New(name string, data []byte) Document {
	f, _ := FormatFromFilename(name)
	return Document{Name: name, Format: f, Data: data}
}

// Size returns the document length in bytes.
func (d Document) Size() int64 {
	return int64(len(d.Data))
}

// SizeMB returns the size in MiB rounded to two decimals.
func (d Document) SizeMB() float64 {
	return RoundMB(d.Size())
}

// Basename is the file name without directory or extension, used as the
// stem of every artifact name.
func (d Document) Basename() string {
	base := filepath.Base(d.Name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "document"
	}
	return base
}

// RoundMB converts a byte count to MiB rounded to two decimals.
func RoundMB(n int64) float64 {
	return math.Round(float64(n)/(1024*1024)*100) / 100
}

// MergedName is the artifact name of the cleaned, reassembled text.
func MergedName(basename, uid string) string {
	return fmt.Sprintf("%s_cleaned_merged_%s.txt", basename, uid)
}

// ChunkName is the artifact name of the n-th (1-based) cleaned chunk.
func ChunkName(basename string, n int, uid string) string {
	return fmt.Sprintf("%s_chunk_%d_%s.txt", basename, n, uid)
}

// ArchiveName is the artifact name of the downloadable bundle.
func ArchiveName(basename, uid string) string {
	return fmt.Sprintf("%s_cleaned_chunks_%s.zip", basename, uid)
}
