// Package taxonomy loads the catalog of business processes that documents
// are classified against.
//
// The source format is line based: a line without a leading number opens a
// category, and every following "<n>. <text>" line registers subprocess n
// under that category.
package taxonomy

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

//go:embed processes.txt
var defaultCatalog string

// ErrParse is wrapped by every *ParseError.
var ErrParse = errors.New("taxonomy: parse error")

// ParseError reports a malformed line in a taxonomy source.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("taxonomy: line %d %q: %s", e.Line, e.Text, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// Entry is one numbered subprocess.
type Entry struct {
	Number     int    `json:"number" yaml:"number"`
	Category   string `json:"category" yaml:"category"`
	Subprocess string `json:"subprocess" yaml:"subprocess"`
}

// Index is an immutable number -> entry lookup that remembers load order.
type Index struct {
	entries []Entry
	byNum   map[int]int
}

var (
	numberedPrefix = regexp.MustCompile(`^\d+\.`)
	numberedLine   = regexp.MustCompile(`^(\d+)\.\s*(.+)$`)
)

// Load parses a taxonomy source.
func Load(r io.Reader) (*Index, error) {
	idx := &Index{byNum: make(map[int]int)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	category := ""
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" {
			continue
		}

		if !numberedPrefix.MatchString(line) {
			category = line
			continue
		}

		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			// Numbered line with no text.
			continue
		}
		if category == "" {
			return nil, &ParseError{Line: lineNo, Text: line, Msg: "subprocess before any category"}
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: line, Msg: "invalid process number"}
		}
		if _, dup := idx.byNum[num]; dup {
			return nil, &ParseError{Line: lineNo, Text: line, Msg: "duplicate process number"}
		}

		idx.byNum[num] = len(idx.entries)
		idx.entries = append(idx.entries, Entry{
			Number:     num,
			Category:   category,
			Subprocess: strings.TrimSpace(m[2]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading taxonomy: %w", err)
	}
	return idx, nil
}

// LoadFile parses the taxonomy file at path.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening taxonomy: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the catalog embedded in the module.
func Default() *Index {
	idx, err := Load(strings.NewReader(defaultCatalog))
	if err != nil {
		panic("taxonomy: embedded catalog is invalid: " + err.Error())
	}
	return idx
}

// Lookup returns the category and subprocess registered under number.
func (x *Index) Lookup(number int) (category, subprocess string, ok bool) {
	i, ok := x.byNum[number]
	if !ok {
		return "", "", false
	}
	e := x.entries[i]
	return e.Category, e.Subprocess, true
}

// Entries returns a copy of all entries in load order.
func (x *Index) Entries() []Entry {
	out := make([]Entry, len(x.entries))
	copy(out, x.entries)
	return out
}

// Len returns the number of registered subprocesses.
func (x *Index) Len() int { return len(x.entries) }

// PromptText renders the catalog as "<number>. <category> - <subprocess>"
// lines, suitable for an LLM prompt.
func (x *Index) PromptText() string {
	var b strings.Builder
	for i, e := range x.entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s - %s", e.Number, e.Category, e.Subprocess)
	}
	return b.String()
}
