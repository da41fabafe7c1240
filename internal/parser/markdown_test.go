package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_BlocksBecomeParagraphs(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A *content*.
`
	p := &MarkdownParser{}
	text, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Title\n\nIntro text.\n\nSection A\n\nSection A content."
	if text != want {
		t.Errorf("expected %q, got %q", want, text)
	}
}

func TestMarkdownParser_NoDuplicatedText(t *testing.T) {
	p := &MarkdownParser{}
	text, err := p.Parse(strings.NewReader("Just some plain text."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(text, "plain") != 1 {
		t.Errorf("expected paragraph text once, got %q", text)
	}
}

func TestMarkdownParser_CodeBlocks(t *testing.T) {
	input := "# API Reference\n\nList of endpoints:\n\n```\nGET /api/users\nPOST /api/users\n```\n\nMore text after code.\n"

	p := &MarkdownParser{}
	text, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(text, "GET /api/users\nPOST /api/users") {
		t.Errorf("expected code block content in text, got %q", text)
	}
	if !strings.HasSuffix(text, "\n\nMore text after code.") {
		t.Errorf("expected post-code paragraph, got %q", text)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	text, err := p.Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}
