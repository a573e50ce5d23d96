// Package chunker splits long document text into word-aligned chunks small
// enough for an entity tagger.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Config controls the chunking behaviour. Lengths are in runes.
type Config struct {
	// MaxTextLength is the largest text returned as a single, untouched chunk.
	MaxTextLength int `json:"max_text_length" yaml:"max_text_length" mapstructure:"max_text_length"`
	// ChunkSize is the target chunk length for longer texts.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size" mapstructure:"chunk_size"`
}

// Chunk is a slice of the source text.
type Chunk struct {
	Index int
	Text  string
	// Offset is the rune offset of the chunk's first word in the source.
	Offset int
}

// Chunker packs words greedily into chunks.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with the given configuration.
// Zero-value fields are replaced with defaults.
func New(cfg Config) *Chunker {
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = 10000
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 2000
	}
	return &Chunker{cfg: cfg}
}

// Chunk splits text. Text no longer than MaxTextLength comes back as one
// chunk equal to the input. Longer text is split on whitespace and words
// are packed, joined by single spaces, so that no chunk exceeds ChunkSize
// unless a single word does.
func (c *Chunker) Chunk(text string) []Chunk {
	if utf8.RuneCountInString(text) <= c.cfg.MaxTextLength {
		return []Chunk{{Index: 0, Text: text}}
	}

	var (
		chunks  []Chunk
		current []string
		length  int
		offset  int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Text:   strings.Join(current, " "),
			Offset: offset,
		})
		current = current[:0]
		length = 0
	}

	for _, w := range words(text) {
		wl := utf8.RuneCountInString(w.text) + 1
		if length+wl > c.cfg.ChunkSize {
			flush()
		}
		if len(current) == 0 {
			offset = w.offset
		}
		current = append(current, w.text)
		length += wl
	}
	flush()
	return chunks
}

type word struct {
	text   string
	offset int
}

// words splits text like strings.Fields and records each word's rune
// offset.
func words(text string) []word {
	var out []word
	start, startRune := -1, 0
	runeIdx := 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, word{text: text[start:i], offset: startRune})
				start = -1
			}
		} else if start < 0 {
			start, startRune = i, runeIdx
		}
		runeIdx++
	}
	if start >= 0 {
		out = append(out, word{text: text[start:], offset: startRune})
	}
	return out
}
