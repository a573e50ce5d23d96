// Package tagger finds named-entity spans (persons, organizations, locations)
// in Russian business text.
package tagger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brunobiangulo/bizextract/graph"
	"github.com/brunobiangulo/bizextract/llm"
)

// Backend names.
const (
	BackendLexicon = "lexicon"
	BackendLLM     = "llm"
)

var (
	// ErrUnknownBackend is returned by New for an unrecognised backend name.
	ErrUnknownBackend = errors.New("tagger: unknown backend")
	// ErrMissingResource is returned when a backend's model, lexicon or
	// endpoint cannot be loaded.
	ErrMissingResource = errors.New("tagger: missing resource")
)

// Tagger returns the entity spans of a text. Offsets are rune offsets into
// text. Implementations are safe for concurrent use.
type Tagger interface {
	Tag(ctx context.Context, text string) ([]graph.Entity, error)
	Name() string
}

// Config selects and configures a backend.
type Config struct {
	Backend     string     `json:"backend" yaml:"backend" mapstructure:"backend"`
	LexiconPath string     `json:"lexicon_path" yaml:"lexicon_path" mapstructure:"lexicon_path"`
	UseGPU      bool       `json:"use_gpu" yaml:"use_gpu" mapstructure:"use_gpu"`
	LLM         llm.Config `json:"llm" yaml:"llm" mapstructure:"llm"`
	Temperature *float64   `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int        `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// New builds the backend named by cfg.Backend. An empty name selects the
// lexicon backend.
func New(cfg Config) (Tagger, error) {
	switch cfg.Backend {
	case "", BackendLexicon:
		if cfg.UseGPU {
			slog.Debug("tagger: use_gpu has no effect on the lexicon backend")
		}
		return NewLexicon(cfg.LexiconPath)
	case BackendLLM:
		if cfg.LLM.Model == "" {
			return nil, fmt.Errorf("%w: llm backend requires a model", ErrMissingResource)
		}
		provider, err := llm.NewProvider(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingResource, err)
		}
		return NewLLM(provider, cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// AllowedTypes returns the entity types the normalizer keeps for a backend.
func AllowedTypes(backend string) []string {
	if backend == BackendLLM {
		return []string{graph.TypePerson, graph.TypeOrg, graph.TypeLocation, graph.TypeMisc}
	}
	return []string{graph.TypePerson, graph.TypeOrg, graph.TypeLocation}
}
