package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type DOCXParser struct{}

func (p *DOCXParser) SupportedFormats() []string { return []string{"docx"} }

func (p *DOCXParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening DOCX: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in DOCX")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("opening document.xml: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	sections, err := parseDocxXML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing DOCX XML: %w", err)
	}

	return &ParseResult{
		Sections: sections,
		Method:   "native",
	}, nil
}

type docxPara struct {
	PPr  *docxParaPr `xml:"pPr"`
	Runs []docxRun   `xml:"r"`
}

type docxParaPr struct {
	PStyle *docxPStyle `xml:"pStyle"`
}

type docxPStyle struct {
	Val string `xml:"val,attr"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paras []docxPara `xml:"p"`
}

// parseDocxXML walks the body in document order. Heading-styled paragraphs
// open a new section; tables become their own sections where they occur.
func parseDocxXML(data []byte) ([]Section, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var sections []Section
	var content strings.Builder
	var heading string
	level := 0

	flush := func() {
		if content.Len() == 0 && heading == "" {
			return
		}
		sections = append(sections, Section{
			Heading: heading,
			Content: strings.TrimSpace(content.String()),
			Level:   level,
			Type:    "section",
		})
		content.Reset()
		heading = ""
		level = 0
	}

	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			// document > body > (p | tbl)
			if depth != 3 {
				continue
			}
			switch el.Name.Local {
			case "p":
				var para docxPara
				if err := dec.DecodeElement(&para, &el); err != nil {
					return nil, err
				}
				depth--

				text := extractParaText(para)
				if text == "" {
					continue
				}
				style := ""
				if para.PPr != nil && para.PPr.PStyle != nil {
					style = para.PPr.PStyle.Val
				}
				if isHeadingStyle(style) {
					flush()
					heading = text
					level = headingStyleLevel(style)
					continue
				}
				if content.Len() > 0 {
					content.WriteString("\n")
				}
				content.WriteString(text)

			case "tbl":
				var tbl docxTable
				if err := dec.DecodeElement(&tbl, &el); err != nil {
					return nil, err
				}
				depth--

				flush()
				if tc := tableText(tbl); tc != "" {
					sections = append(sections, Section{Content: tc, Type: "table"})
				}
			}

		case xml.EndElement:
			depth--
		}
	}
	flush()

	return sections, nil
}

func tableText(tbl docxTable) string {
	var b strings.Builder
	for _, row := range tbl.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			parts := make([]string, 0, len(cell.Paras))
			for _, p := range cell.Paras {
				if t := extractParaText(p); t != "" {
					parts = append(parts, t)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		line := strings.TrimSpace(strings.Join(cells, " "))
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}
	return b.String()
}

func extractParaText(para docxPara) string {
	var b strings.Builder
	for _, run := range para.Runs {
		for _, t := range run.Text {
			b.WriteString(t.Content)
		}
	}
	return b.String()
}

func isHeadingStyle(style string) bool {
	lower := strings.ToLower(style)
	return strings.HasPrefix(lower, "heading") || strings.HasPrefix(lower, "title")
}

func headingStyleLevel(style string) int {
	lower := strings.ToLower(style)
	if strings.Contains(lower, "title") {
		return 1
	}
	// "Heading1", "Heading2", ...
	for i := 1; i <= 9; i++ {
		if strings.Contains(lower, fmt.Sprintf("%d", i)) {
			return i
		}
	}
	return 1
}
