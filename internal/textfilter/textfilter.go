// Package textfilter strips Arabic script from text while keeping every
// other character and the paragraph layout.
package textfilter

import (
	"strings"
	"unicode"
)

// letters covers the Arabic blocks: Arabic, Arabic Supplement, Arabic
// Extended-A, Presentation Forms-A/B and the Mathematical Alphabetic Symbols.
var letters = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
		{Lo: 0x0750, Hi: 0x077F, Stride: 1},
		{Lo: 0x08A0, Hi: 0x08FF, Stride: 1},
		{Lo: 0xFB50, Hi: 0xFDFF, Stride: 1},
		{Lo: 0xFE70, Hi: 0xFEFF, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1EE00, Hi: 0x1EEFF, Stride: 1},
	},
}

var diacritics = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x064B, Hi: 0x065F, Stride: 1},
		{Lo: 0x0670, Hi: 0x0670, Stride: 1},
		{Lo: 0x06D6, Hi: 0x06ED, Stride: 1},
	},
}

var punctuation = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x060C, Hi: 0x060C, Stride: 1},
		{Lo: 0x061B, Hi: 0x061B, Stride: 1},
		{Lo: 0x061F, Hi: 0x061F, Stride: 1},
		{Lo: 0x0640, Hi: 0x0640, Stride: 1},
		{Lo: 0x066A, Hi: 0x066D, Stride: 1},
	},
}

// Ranges is the full removal set, in the order it is applied.
var Ranges = []*unicode.RangeTable{letters, diacritics, punctuation}

// IsArabic reports whether r falls in any removed range.
func IsArabic(r rune) bool {
	return unicode.In(r, letters, diacritics, punctuation)
}

// Clean removes every Arabic codepoint, collapses horizontal whitespace runs
// to one space, collapses blank-line runs to a single blank line and trims
// the result. It is total and idempotent.
func Clean(text string) string {
	stripped := strings.Map(func(r rune) rune {
		if IsArabic(r) {
			return -1
		}
		return r
	}, text)
	return normalizeWhitespace(stripped)
}

func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var sb strings.Builder
	sb.Grow(len(text))
	newlines := 0
	for _, line := range strings.Split(text, "\n") {
		line = collapseSpaces(line)
		if line == "" {
			newlines++
			continue
		}
		if sb.Len() > 0 {
			if newlines > 0 {
				sb.WriteString("\n\n")
			} else {
				sb.WriteByte('\n')
			}
		}
		sb.WriteString(line)
		newlines = 0
	}
	return sb.String()
}

// collapseSpaces trims a single line and turns each inner whitespace run
// into one space.
func collapseSpaces(line string) string {
	return strings.Join(strings.Fields(line), " ")
}
