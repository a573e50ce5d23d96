// Package bizextract turns Russian business documents into structured
// records: named entities, relations between them, relation chains and a
// business-process classification.
package bizextract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brunobiangulo/bizextract/chunker"
	"github.com/brunobiangulo/bizextract/classifier"
	"github.com/brunobiangulo/bizextract/graph"
	"github.com/brunobiangulo/bizextract/llm"
	"github.com/brunobiangulo/bizextract/parser"
	"github.com/brunobiangulo/bizextract/store"
	"github.com/brunobiangulo/bizextract/tagger"
	"github.com/brunobiangulo/bizextract/taxonomy"
)

// Pipeline is the main entry point for document extraction.
type Pipeline interface {
	// Process reads a document and builds its record. Empty documents
	// yield an error record, not an error.
	Process(ctx context.Context, path string) (*Record, error)

	// ProcessText builds the record for already extracted text.
	ProcessText(ctx context.Context, name, text string) (*Record, error)

	// ProcessAndPersist processes a document and writes its record to
	// outputPath, or to <OutputDir>/<stem>_result.json when outputPath is
	// empty.
	ProcessAndPersist(ctx context.Context, path, outputPath string) (*Record, error)

	// ProcessBatch processes and persists many documents, isolating
	// failures per document. Results keep the order of paths.
	ProcessBatch(ctx context.Context, paths []string, outputDir string) []BatchResult

	// Taxonomy returns the loaded process catalog.
	Taxonomy() *taxonomy.Index

	// RunID identifies this pipeline instance in the record archive.
	RunID() string

	// Store returns the record archive, or nil when none is configured.
	Store() *store.Store

	// Close releases the record archive.
	Close() error
}

// Option configures pipeline construction.
type Option func(*options)

type options struct {
	tagger  tagger.Tagger
	parsers *parser.Registry
}

// WithTagger replaces the configured tagger backend.
func WithTagger(t tagger.Tagger) Option {
	return func(o *options) { o.tagger = t }
}

// WithParsers replaces the default parser registry.
func WithParsers(r *parser.Registry) Option {
	return func(o *options) { o.parsers = r }
}

// pipeline is the concrete implementation of Pipeline.
type pipeline struct {
	cfg        Config
	index      *taxonomy.Index
	parsers    *parser.Registry
	chunkr     *chunker.Chunker
	tagr       tagger.Tagger
	normalizer *graph.Normalizer
	extractor  *graph.Extractor
	classifr   *classifier.Classifier
	store      *store.Store
	runID      string
}

// New builds a pipeline. Configuration problems (unknown tagger backend,
// unreadable taxonomy, keyword or lexicon files) are reported here, before
// any document is processed.
func New(cfg Config, opts ...Option) (Pipeline, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	index := taxonomy.Default()
	if cfg.TaxonomyPath != "" {
		var err error
		if index, err = taxonomy.LoadFile(cfg.TaxonomyPath); err != nil {
			return nil, fmt.Errorf("%w: loading taxonomy: %v", ErrInvalidConfig, err)
		}
	}

	var keywords []classifier.Keyword
	if cfg.KeywordsPath != "" {
		var err error
		if keywords, err = classifier.LoadKeywords(cfg.KeywordsPath); err != nil {
			return nil, fmt.Errorf("%w: loading keywords: %v", ErrInvalidConfig, err)
		}
	}

	tagr := o.tagger
	if tagr == nil {
		var err error
		tagr, err = tagger.New(tagger.Config{
			Backend:     cfg.Tagger,
			LexiconPath: cfg.LexiconPath,
			UseGPU:      cfg.UseGPU,
			LLM: llm.Config{
				Provider: cfg.LLM.Provider,
				Model:    cfg.LLM.Model,
				BaseURL:  cfg.LLM.BaseURL,
				APIKey:   cfg.LLM.APIKey,
			},
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("creating tagger: %w", err)
		}
	}

	parsers := o.parsers
	if parsers == nil {
		parsers = parser.NewRegistry()
	}

	p := &pipeline{
		cfg:     cfg,
		index:   index,
		parsers: parsers,
		chunkr: chunker.New(chunker.Config{
			MaxTextLength: cfg.MaxTextLength,
			ChunkSize:     cfg.ChunkSize,
		}),
		tagr:       tagr,
		normalizer: graph.NewNormalizer(tagger.AllowedTypes(tagr.Name())...),
		extractor:  graph.NewExtractor(cfg.Proximity),
		classifr:   classifier.New(index, keywords, classifier.WithConfidenceScale(cfg.ConfidenceScale)),
		runID:      store.NewRunID(),
	}

	if cfg.DBPath != "" {
		s, err := store.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		p.store = s
	}

	slog.Info("bizextract: pipeline ready",
		"run_id", p.runID,
		"tagger", tagr.Name(),
		"processes", index.Len(),
		"archive", cfg.DBPath != "")
	return p, nil
}

func (p *pipeline) Process(ctx context.Context, path string) (*Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedFormat, path)
	}

	format := parser.FormatOf(path)
	prs, err := p.parsers.Get(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	start := time.Now()
	res, err := prs.Parse(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParsingFailed, filepath.Base(path), err)
	}
	slog.Debug("bizextract: document read",
		"path", path,
		"format", format,
		"method", res.Method,
		"sections", len(res.Sections),
		"elapsed", time.Since(start))

	return p.ProcessText(ctx, filepath.Base(path), res.Text())
}

func (p *pipeline) ProcessText(ctx context.Context, name, text string) (*Record, error) {
	if strings.TrimSpace(text) == "" {
		slog.Warn("bizextract: empty document", "document", name)
		return &Record{Document: name, Error: EmptyDocumentError}, nil
	}

	chunks := p.chunkr.Chunk(text)

	raw := make([]graph.Entity, 0)
	perChunk := make([][]graph.Entity, len(chunks))
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ents, err := p.tagr.Tag(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s chunk %d: %v", ErrTaggingFailed, name, c.Index, err)
		}
		for j := range ents {
			ents[j].Chunk = c.Index
		}
		perChunk[i] = ents
		raw = append(raw, ents...)
	}

	set := p.normalizer.Normalize(raw)

	inputs := make([]graph.ChunkInput, len(chunks))
	for i, c := range chunks {
		inputs[i] = graph.ChunkInput{
			Text:     c.Text,
			Entities: set.ChunkSubset(perChunk[i], c.Index),
		}
	}
	relations := p.extractor.Extract(inputs)

	entities := set.Entities()
	chains := graph.BuildChains(entities, relations)
	class := p.classifr.Classify(text)

	slog.Debug("bizextract: document processed",
		"document", name,
		"chunks", len(chunks),
		"raw_entities", len(raw),
		"entities", len(entities),
		"relations", len(relations),
		"process", class.Subprocess)

	return newRecord(name, entities, relations, chains, class, utf8.RuneCountInString(text)), nil
}

func (p *pipeline) ProcessAndPersist(ctx context.Context, path, outputPath string) (*Record, error) {
	rec, _, err := p.persist(ctx, path, outputPath)
	return rec, err
}

// persist processes path, writes the record and archives it when a store
// is configured. It returns the path written.
func (p *pipeline) persist(ctx context.Context, path, outputPath string) (*Record, string, error) {
	rec, err := p.Process(ctx, path)
	if err != nil {
		return nil, "", err
	}

	if outputPath == "" {
		outputPath = DefaultOutputPath(p.cfg.OutputDir, path)
	}
	if err := WriteRecord(outputPath, rec); err != nil {
		return rec, "", err
	}

	if p.store != nil {
		arch, err := archiveRecord(rec)
		if err != nil {
			return rec, outputPath, fmt.Errorf("archiving record: %w", err)
		}
		if _, err := p.store.SaveRecord(ctx, p.runID, path, arch); err != nil {
			return rec, outputPath, fmt.Errorf("archiving record: %w", err)
		}
	}
	return rec, outputPath, nil
}

func (p *pipeline) Taxonomy() *taxonomy.Index { return p.index }

func (p *pipeline) RunID() string { return p.runID }

func (p *pipeline) Store() *store.Store { return p.store }

func (p *pipeline) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}
