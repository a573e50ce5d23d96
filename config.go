package bizextract

import (
	"fmt"

	"github.com/brunobiangulo/bizextract/graph"
)

// Config holds all configuration for the extraction pipeline.
type Config struct {
	// MaxTextLength is the longest text tagged as a single chunk, in runes.
	MaxTextLength int `json:"max_text_length" yaml:"max_text_length" mapstructure:"max_text_length"`
	// ChunkSize is the target chunk length for longer texts, in runes.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size" mapstructure:"chunk_size"`

	// Tagger selects the entity tagger backend: lexicon or llm.
	Tagger string `json:"tagger" yaml:"tagger" mapstructure:"tagger"`
	// UseGPU is passed to the tagger; backends without GPU support ignore it.
	UseGPU bool `json:"use_gpu" yaml:"use_gpu" mapstructure:"use_gpu"`

	// Resource files. Empty paths use the built-in tables.
	TaxonomyPath string `json:"taxonomy_path" yaml:"taxonomy_path" mapstructure:"taxonomy_path"`
	KeywordsPath string `json:"keywords_path" yaml:"keywords_path" mapstructure:"keywords_path"`
	LexiconPath  string `json:"lexicon_path" yaml:"lexicon_path" mapstructure:"lexicon_path"`

	// OutputDir receives <stem>_result.json files.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
	// DBPath enables the SQLite record archive when set.
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`

	// Workers bounds the number of documents processed in parallel by
	// ProcessBatch.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// ConfidenceScale is the classification score that maps to confidence 1.
	ConfidenceScale float64 `json:"confidence_scale" yaml:"confidence_scale" mapstructure:"confidence_scale"`

	// Proximity tunes the proximity relation pass.
	Proximity graph.Config `json:"proximity" yaml:"proximity" mapstructure:"proximity"`

	// LLM configures the llm tagger backend.
	LLM LLMConfig `json:"llm" yaml:"llm" mapstructure:"llm"`
}

// LLMConfig configures the chat endpoint behind the llm tagger.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"` // ollama, lmstudio, openai, groq, custom
	Model    string `json:"model" yaml:"model" mapstructure:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	// Temperature is optional: nil takes the default and 0 is greedy decoding.
	Temperature *float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int      `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig returns a Config with the standard limits and the lexicon
// tagger.
func DefaultConfig() Config {
	return Config{
		MaxTextLength:   10000,
		ChunkSize:       2000,
		Tagger:          "lexicon",
		OutputDir:       "output",
		Workers:         1,
		ConfidenceScale: 5.0,
		Proximity:       graph.DefaultConfig(),
		LLM: LLMConfig{
			Provider:    "ollama",
			Temperature: Float64(0.1),
			MaxTokens:   2000,
		},
	}
}

// applyDefaults fills zero values from DefaultConfig.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxTextLength == 0 {
		c.MaxTextLength = d.MaxTextLength
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.Tagger == "" {
		c.Tagger = d.Tagger
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.Workers == 0 {
		c.Workers = d.Workers
	}
	if c.ConfidenceScale == 0 {
		c.ConfidenceScale = d.ConfidenceScale
	}
	if c.Proximity == (graph.Config{}) {
		c.Proximity = d.Proximity
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = d.LLM.Provider
	}
	if c.LLM.Temperature == nil {
		c.LLM.Temperature = d.LLM.Temperature
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = d.LLM.MaxTokens
	}
}

// Validate reports the first invalid value. Backend names and resource
// files are checked when the pipeline is built.
func (c Config) Validate() error {
	switch {
	case c.MaxTextLength < 0:
		return fmt.Errorf("%w: max_text_length must not be negative, got %d", ErrInvalidConfig, c.MaxTextLength)
	case c.ChunkSize < 0:
		return fmt.Errorf("%w: chunk_size must not be negative, got %d", ErrInvalidConfig, c.ChunkSize)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	case c.ConfidenceScale < 0:
		return fmt.Errorf("%w: confidence_scale must not be negative, got %g", ErrInvalidConfig, c.ConfidenceScale)
	case c.LLM.Temperature != nil && (*c.LLM.Temperature < 0 || *c.LLM.Temperature > 2):
		return fmt.Errorf("%w: llm temperature must be within [0, 2], got %g", ErrInvalidConfig, *c.LLM.Temperature)
	case c.LLM.MaxTokens < 0:
		return fmt.Errorf("%w: llm max_tokens must not be negative, got %d", ErrInvalidConfig, c.LLM.MaxTokens)
	}
	return nil
}

// Float64 returns a pointer to v, for optional Config values such as
// LLMConfig.Temperature.
func Float64(v float64) *float64 { return &v }
