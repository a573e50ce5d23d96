package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// TextParser handles plain text (.txt) files. Files that are not valid
// UTF-8 are decoded as Windows-1251, the usual legacy encoding of Russian
// text.
type TextParser struct{}

func (p *TextParser) SupportedFormats() []string { return []string{"txt"} }

func (p *TextParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	method := "native"
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1251.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decoding text file: %w", err)
		}
		data = decoded
		method = "cp1251"
	}

	content := string(data)
	if content == "" {
		return &ParseResult{
			Method: method,
		}, nil
	}

	return &ParseResult{
		Sections: []Section{
			{
				Content: content,
				Level:   1,
				Type:    "paragraph",
			},
		},
		Method:   method,
		Metadata: map[string]string{"filename": filepath.Base(path)},
	}, nil
}
