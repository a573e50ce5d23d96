package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts the text layer of a PDF, one section per page.
// Scanned PDFs without a text layer yield no sections.
type PDFParser struct{}

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	sections := make([]Section, 0, totalPages)

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Debug("parser: skipping unreadable pdf page", "path", path, "page", i, "error", err)
			continue
		}

		text = normalizePageText(text)
		if text == "" {
			continue
		}

		sections = append(sections, Section{
			Content:    text,
			PageNumber: i,
			Type:       "page",
		})
	}

	return &ParseResult{
		Sections: sections,
		Method:   "native",
		Metadata: map[string]string{"pages": fmt.Sprintf("%d", totalPages)},
	}, nil
}

// normalizePageText trims each line and drops blank runs.
func normalizePageText(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
