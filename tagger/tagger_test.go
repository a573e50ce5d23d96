package tagger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/bizextract/graph"
	"github.com/brunobiangulo/bizextract/llm"
)

type tagged struct {
	Text string
	Type string
}

// tags checks that every offset pair points at the entity text and
// returns the (text, type) pairs in order.
func tags(t *testing.T, text string, entities []graph.Entity) []tagged {
	t.Helper()
	runes := []rune(text)
	out := make([]tagged, 0, len(entities))
	for _, e := range entities {
		require.LessOrEqual(t, e.End, len(runes))
		assert.Equal(t, e.Text, string(runes[e.Start:e.End]), "offsets of %q", e.Text)
		out = append(out, tagged{e.Text, e.Type})
	}
	return out
}

func TestNew(t *testing.T) {
	tg, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, BackendLexicon, tg.Name())

	tg, err = New(Config{Backend: BackendLLM, LLM: llm.Config{Provider: "ollama", Model: "qwen2.5:7b"}})
	require.NoError(t, err)
	assert.Equal(t, BackendLLM, tg.Name())
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"unknown backend", Config{Backend: "spacy"}, ErrUnknownBackend},
		{"llm without model", Config{Backend: BackendLLM, LLM: llm.Config{Provider: "ollama"}}, ErrMissingResource},
		{"llm bad provider", Config{Backend: BackendLLM, LLM: llm.Config{Provider: "nope", Model: "m"}}, ErrMissingResource},
		{"missing lexicon", Config{LexiconPath: filepath.Join(os.TempDir(), "bizextract-no-such-lexicon.yaml")}, ErrMissingResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestAllowedTypes(t *testing.T) {
	assert.Equal(t, []string{"PER", "ORG", "LOC"}, AllowedTypes(BackendLexicon))
	assert.Equal(t, []string{"PER", "ORG", "LOC", "MISC"}, AllowedTypes(BackendLLM))
}

func TestResolveSpansPrefersLongest(t *testing.T) {
	text := "ООО «Альфа» и Альфа"
	got := resolveSpans(text, []span{
		{start: 9, end: 19, typ: "ORG"}, // Альфа
		{start: 0, end: 21, typ: "ORG"},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "ООО «Альфа»", got[0].Text)
	assert.Equal(t, 0, got[0].Start)
	assert.Equal(t, 11, got[0].End)
}
