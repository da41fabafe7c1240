// Package parser extracts plain text from uploaded document bytes.
// Paragraphs in the returned text are separated by a blank line so the
// structured chunker can find them.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docscrub/internal/apperr"
	"github.com/dgallion1/docscrub/internal/document"
)

// Parser converts raw document bytes into text.
type Parser interface {
	Parse(r io.Reader) (string, error)
}

// Extractor picks a Parser by format and wraps every failure as a format error.
type Extractor struct {
	// FallbackPdftotext shells out to pdftotext when the Go PDF reader fails.
	FallbackPdftotext bool
}

// NewExtractor returns an Extractor.
func NewExtractor(fallbackPdftotext bool) *Extractor {
	return &Extractor{FallbackPdftotext: fallbackPdftotext}
}

// ForFormat returns the parser for a format tag.
func (e *Extractor) ForFormat(format document.Format) (Parser, error) {
	switch format {
	case document.FormatTXT:
		return &TextParser{}, nil
	case document.FormatPDF:
		return &PDFParser{FallbackPdftotext: e.FallbackPdftotext}, nil
	case document.FormatDOCX:
		return &DOCXParser{}, nil
	case document.FormatMD:
		return &MarkdownParser{}, nil
	case document.FormatHTML:
		return &HTMLParser{}, nil
	default:
		return nil, apperr.Newf(apperr.ErrFormat, "unsupported format %q", format)
	}
}

// Extract returns the text of data. Unsupported formats, unreadable input and
// documents with no text all fail with apperr.ErrFormat.
func (e *Extractor) Extract(data []byte, format document.Format) (string, error) {
	p, err := e.ForFormat(format)
	if err != nil {
		return "", err
	}
	text, err := p.Parse(bytes.NewReader(data))
	if err != nil {
		return "", apperr.Wrap(apperr.ErrFormat, err, fmt.Sprintf("extract %s", format))
	}
	if strings.TrimSpace(text) == "" {
		return "", apperr.New(apperr.ErrFormat, "no text content found in file")
	}
	return text, nil
}

// joinParagraphs trims each paragraph, drops empty ones and joins the rest
// with a blank line.
func joinParagraphs(paragraphs []string) string {
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
