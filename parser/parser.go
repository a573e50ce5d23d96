package parser

import (
	"context"
	"strings"
)

// ParseResult is what a parser produces from a document file.
type ParseResult struct {
	Sections []Section // Ordered sections extracted from the document
	Method   string    // "native"
	Metadata map[string]string
}

// Section represents a logical section of a parsed document.
type Section struct {
	Heading    string
	Content    string
	Level      int // Heading level (1=top, 2=sub, etc.)
	PageNumber int
	Type       string // "section", "table", "paragraph", "page"
	Metadata   map[string]string
}

// Text flattens the sections into plain text, one line per heading and
// content block.
func (r *ParseResult) Text() string {
	if r == nil {
		return ""
	}
	var parts []string
	for _, s := range r.Sections {
		if h := strings.TrimSpace(s.Heading); h != "" {
			parts = append(parts, h)
		}
		if c := strings.TrimSpace(s.Content); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "\n")
}

// Parser can parse a specific document format.
type Parser interface {
	Parse(ctx context.Context, path string) (*ParseResult, error)
	SupportedFormats() []string
}
