package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/brunobiangulo/bizextract"
)

// Options holds the command line options of bizextract. Config is filled
// from the config file, BIZEXTRACT_* environment variables and flags, in
// increasing order of precedence.
type Options struct {
	bizextract.Config `mapstructure:",squash"`

	File     string `mapstructure:"file"`
	Dir      string `mapstructure:"dir"`
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
}

// NewOptions returns options with default values.
func NewOptions() *Options {
	return &Options{
		Config:   bizextract.DefaultConfig(),
		DataDir:  "validate_data",
		LogLevel: "info",
	}
}

// AddFlags registers the options on fs. Flag names map to config keys
// through flagKeys.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.File, "file", "f", o.File, "Document to process.")
	fs.StringVarP(&o.Dir, "dir", "d", o.Dir, "Directory of documents to process (docx, pdf, txt, xlsx).")
	fs.StringVarP(&o.Config.OutputDir, "output", "o", o.Config.OutputDir, "Directory for <name>_result.json files.")
	fs.StringVar(&o.Config.Tagger, "tagger", o.Config.Tagger, "Entity tagger backend: lexicon or llm.")
	fs.BoolVar(&o.Config.UseGPU, "use-gpu", o.Config.UseGPU, "Ask the tagger backend to use a GPU when it can.")
	fs.IntVar(&o.Config.Workers, "workers", o.Config.Workers, "Documents processed in parallel.")
	fs.StringVar(&o.Config.DBPath, "db", o.Config.DBPath, "SQLite archive for records. Empty disables archiving.")
	fs.StringVar(&o.Config.TaxonomyPath, "taxonomy", o.Config.TaxonomyPath, "Process catalog file. Empty uses the built-in catalog.")
	fs.StringVar(&o.Config.LLM.Model, "llm-model", o.Config.LLM.Model, "Model for the llm tagger.")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level: debug, info, warn or error.")
}

// flagKeys maps flag names to the config keys they override.
var flagKeys = map[string]string{
	"file":      "file",
	"dir":       "dir",
	"output":    "output_dir",
	"tagger":    "tagger",
	"use-gpu":   "use_gpu",
	"workers":   "workers",
	"db":        "db_path",
	"taxonomy":  "taxonomy_path",
	"llm-model": "llm.model",
	"log-level": "log_level",
}

// Complete fills values derived from other options.
func (o *Options) Complete() error {
	o.LogLevel = strings.ToLower(strings.TrimSpace(o.LogLevel))
	o.Config.ResolveAPIKey()
	return nil
}

// Validate checks the options and returns every problem found.
func (o *Options) Validate() []error {
	var errs []error
	if o.File != "" && o.Dir != "" {
		errs = append(errs, errors.New("--file and --dir are mutually exclusive"))
	}
	if _, err := parseLevel(o.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := o.Config.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
