package parser

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// ---------------------------------------------------------------------------
// Registry tests
// ---------------------------------------------------------------------------

func TestRegistryBuiltInParsers(t *testing.T) {
	reg := NewRegistry()

	formats := []struct {
		format     string
		wantParser string
	}{
		{"txt", "*parser.TextParser"},
		{"pdf", "*parser.PDFParser"},
		{"docx", "*parser.DOCXParser"},
		{"xlsx", "*parser.XLSXParser"},
	}

	for _, tt := range formats {
		t.Run(tt.format, func(t *testing.T) {
			p, err := reg.Get(tt.format)
			if err != nil {
				t.Fatalf("Get(%q) returned error: %v", tt.format, err)
			}
			if got := reflect.TypeOf(p).String(); got != tt.wantParser {
				t.Errorf("Get(%q) = %s, want %s", tt.format, got, tt.wantParser)
			}
			found := false
			for _, f := range p.SupportedFormats() {
				if f == tt.format {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("parser for %q does not list %q in SupportedFormats(): %v",
					tt.format, tt.format, p.SupportedFormats())
			}
		})
	}

	want := []string{"docx", "pdf", "txt", "xlsx"}
	if got := reg.Formats(); !reflect.DeepEqual(got, want) {
		t.Errorf("Formats() = %v, want %v", got, want)
	}
}

func TestRegistryUnknown(t *testing.T) {
	reg := NewRegistry()

	unknownFormats := []string{"csv", "json", "html", "rtf", "odt", "doc", "pptx", "xls", ""}
	for _, fmt := range unknownFormats {
		t.Run("format_"+fmt, func(t *testing.T) {
			p, err := reg.Get(fmt)
			if err == nil {
				t.Errorf("Get(%q) expected error for unknown format, got parser: %v", fmt, p)
			}
			if p != nil {
				t.Errorf("Get(%q) expected nil parser for unknown format", fmt)
			}
		})
	}
}

func TestRegistryCustomParser(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Get("md"); err == nil {
		t.Fatal("expected error for unregistered format")
	}

	reg.Register("md", &TextParser{})
	p, err := reg.Get("md")
	if err != nil {
		t.Fatalf("Get(\"md\") after Register returned error: %v", err)
	}
	if p == nil {
		t.Fatal("Get(\"md\") returned nil after Register")
	}
}

func TestFormatOf(t *testing.T) {
	tests := map[string]string{
		"/data/Договор.DOCX": "docx",
		"report.pdf":         "pdf",
		"archive.tar.gz":     "gz",
		"noext":              "",
		"dir.v2/notes.txt":   "txt",
	}
	for path, want := range tests {
		if got := FormatOf(path); got != want {
			t.Errorf("FormatOf(%q) = %q, want %q", path, got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// ParseResult.Text
// ---------------------------------------------------------------------------

func TestParseResultText(t *testing.T) {
	r := &ParseResult{Sections: []Section{
		{Heading: "Договор поставки", Content: "  Стороны договорились.  "},
		{Content: "Таблица цен", Type: "table"},
		{Heading: "  ", Content: ""},
		{Heading: "Подписи"},
	}}
	want := "Договор поставки\nСтороны договорились.\nТаблица цен\nПодписи"
	if got := r.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}

	var nilResult *ParseResult
	if got := nilResult.Text(); got != "" {
		t.Errorf("nil Text() = %q, want empty", got)
	}
}

// ---------------------------------------------------------------------------
// Text parser
// ---------------------------------------------------------------------------

func TestTextParser(t *testing.T) {
	dir := t.TempDir()
	p := &TextParser{}

	tests := []struct {
		name       string
		data       []byte
		wantText   string
		wantMethod string
	}{
		{"utf8", []byte("ООО «Альфа» заключило договор."), "ООО «Альфа» заключило договор.", "native"},
		{"bom", []byte("\xef\xbb\xbfАкт приемки"), "Акт приемки", "native"},
		{"empty", []byte{}, "", "native"},
	}

	cp1251, err := charmap.Windows1251.NewEncoder().Bytes([]byte("Счет на оплату"))
	if err != nil {
		t.Fatalf("encoding cp1251: %v", err)
	}
	tests = append(tests, struct {
		name       string
		data       []byte
		wantText   string
		wantMethod string
	}{"cp1251", cp1251, "Счет на оплату", "cp1251"})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".txt")
			if err := os.WriteFile(path, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}
			res, err := p.Parse(context.Background(), path)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := res.Text(); got != tt.wantText {
				t.Errorf("Text() = %q, want %q", got, tt.wantText)
			}
			if res.Method != tt.wantMethod {
				t.Errorf("Method = %q, want %q", res.Method, tt.wantMethod)
			}
		})
	}
}

func TestTextParserMissingFile(t *testing.T) {
	p := &TextParser{}
	if _, err := p.Parse(context.Background(), filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// ---------------------------------------------------------------------------
// DOCX parser
// ---------------------------------------------------------------------------

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Договор поставки № 12</w:t></w:r></w:p>
    <w:p><w:r><w:t>ООО «Альфа» </w:t></w:r><w:r><w:t>поставляет товар.</w:t></w:r></w:p>
    <w:p></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Товар</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Цена</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
    <w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Подписи сторон</w:t></w:r></w:p>
    <w:p><w:r><w:t>Иванов И.И.</w:t></w:r></w:p>
    <w:sectPr/>
  </w:body>
</w:document>`

func writeDocx(t *testing.T, path, documentXML string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDOCXParser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contract.docx")
	writeDocx(t, path, testDocumentXML)

	res, err := (&DOCXParser{}).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(res.Sections) != 3 {
		t.Fatalf("len(Sections) = %d, want 3: %+v", len(res.Sections), res.Sections)
	}
	first := res.Sections[0]
	if first.Heading != "Договор поставки № 12" || first.Level != 1 {
		t.Errorf("first section = %+v", first)
	}
	if first.Content != "ООО «Альфа» поставляет товар." {
		t.Errorf("first content = %q", first.Content)
	}
	if res.Sections[1].Type != "table" || res.Sections[1].Content != "Товар Цена" {
		t.Errorf("table section = %+v", res.Sections[1])
	}
	if last := res.Sections[2]; last.Heading != "Подписи сторон" || last.Level != 2 {
		t.Errorf("last section = %+v", last)
	}

	want := "Договор поставки № 12\nООО «Альфа» поставляет товар.\nТовар Цена\nПодписи сторон\nИванов И.И."
	if got := res.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestDOCXParserErrors(t *testing.T) {
	dir := t.TempDir()

	notZip := filepath.Join(dir, "broken.docx")
	if err := os.WriteFile(notZip, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (&DOCXParser{}).Parse(context.Background(), notZip); err == nil {
		t.Error("expected error for non-zip file")
	}

	empty := filepath.Join(dir, "empty.docx")
	f, err := os.Create(empty)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	if _, err := zw.Create("word/styles.xml"); err != nil {
		t.Fatal(err)
	}
	zw.Close()
	f.Close()

	_, err = (&DOCXParser{}).Parse(context.Background(), empty)
	if err == nil || !strings.Contains(err.Error(), "document.xml not found") {
		t.Errorf("err = %v, want document.xml not found", err)
	}
}

func TestHeadingStyleLevel(t *testing.T) {
	tests := map[string]int{
		"Title":    1,
		"Heading1": 1,
		"heading3": 3,
		"Heading":  1,
	}
	for style, want := range tests {
		if got := headingStyleLevel(style); got != want {
			t.Errorf("headingStyleLevel(%q) = %d, want %d", style, got, want)
		}
	}
	if isHeadingStyle("Normal") {
		t.Error("Normal should not be a heading style")
	}
}

// ---------------------------------------------------------------------------
// XLSX parser
// ---------------------------------------------------------------------------

func TestXLSXParser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.xlsx")

	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Поставщик")
	f.SetCellValue("Sheet1", "B1", "ООО Бета")
	f.SetCellValue("Sheet1", "A3", "Склад")
	f.SetCellValue("Sheet1", "B3", "Казань")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	res, err := (&XLSXParser{}).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Sections) != 1 {
		t.Fatalf("len(Sections) = %d, want 1", len(res.Sections))
	}
	want := "Sheet1\nПоставщик ООО Бета\nСклад Казань"
	if got := res.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// PDF parser
// ---------------------------------------------------------------------------

func TestPDFParserInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (&PDFParser{}).Parse(context.Background(), path); err == nil {
		t.Fatal("expected error for malformed PDF")
	}
}

func TestNormalizePageText(t *testing.T) {
	got := normalizePageText("  Акт  \n\n\n  сверки \n")
	if got != "Акт\nсверки" {
		t.Errorf("normalizePageText = %q", got)
	}
}
