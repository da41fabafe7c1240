// Package chunker splits document text into word-aligned chunks.
//
// Two strategies are provided. SplitFixed cuts the word sequence into windows
// of exactly size words. SplitStructured accumulates whole paragraphs and
// never breaks one, so a paragraph longer than size becomes its own oversized
// chunk. For both, concatenating the chunks' words in order reproduces the
// input's word sequence.
package chunker

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docscrub/internal/document"
)

// DiagnosticWords is how many leading and trailing words each chunk records.
const DiagnosticWords = 10

// Strategy names a chunking algorithm in processing metadata.
type Strategy string

const (
	StrategyFixed      Strategy = "fixed"
	StrategyStructured Strategy = "structured"
)

// CountWords counts whitespace-delimited words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// SplitFixed partitions the words of text into consecutive windows of size
// words, rejoined with single spaces. The last window may be shorter.
// A non-positive size yields one chunk holding every word.
func SplitFixed(text string, size int) []document.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(words)
	}

	chunks := make([]document.Chunk, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		chunks = append(chunks, newChunk(len(chunks)+1, strings.Join(words[start:end], " "), words[start:end]))
	}
	return chunks
}

// SplitStructured groups paragraphs into chunks of about size words.
// A pending chunk is flushed before a paragraph that would push it past
// size, and immediately once it reaches size.
func SplitStructured(text string, size int) []document.Chunk {
	paragraphs := splitByParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}
	if size <= 0 {
		size = CountWords(text)
	}

	var chunks []document.Chunk
	var current strings.Builder
	currentWords := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		content := current.String()
		chunks = append(chunks, newChunk(len(chunks)+1, content, strings.Fields(content)))
		current.Reset()
		currentWords = 0
	}

	for _, para := range paragraphs {
		paraWords := CountWords(para)

		if current.Len() > 0 && currentWords+paraWords > size {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentWords += paraWords

		if currentWords >= size {
			flush()
		}
	}
	flush()

	return chunks
}

var blankLine = regexp.MustCompile(`\n\s*\n`)

// splitByParagraphs splits on blank lines and drops empty paragraphs.
func splitByParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var result []string
	for _, p := range blankLine.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func newChunk(index int, content string, words []string) document.Chunk {
	return document.Chunk{
		Index:      index,
		WordCount:  len(words),
		Content:    content,
		StartWords: headWords(words, DiagnosticWords),
		EndWords:   tailWords(words, DiagnosticWords),
	}
}

func headWords(words []string, n int) []string {
	n = min(n, len(words))
	out := make([]string, n)
	copy(out, words[:n])
	return out
}

func tailWords(words []string, n int) []string {
	n = min(n, len(words))
	out := make([]string, n)
	copy(out, words[len(words)-n:])
	return out
}
