package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/brunobiangulo/bizextract"
	"github.com/brunobiangulo/bizextract/store"
	"github.com/brunobiangulo/bizextract/taxonomy"
)

var errDocumentsFailed = errors.New("some documents failed")

func newRootCommand(o *Options) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   bizextract.ConfigName,
		Short: "Extract entities, relations and business processes from documents",
		Long: `bizextract reads Russian business documents (docx, pdf, txt, xlsx), tags
named entities, links them into relations and chains, classifies the
document against the business-process catalog and writes one
<name>_result.json per document.

With neither --file nor --dir, every document in data_dir is processed.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd, v, o); err != nil {
				return err
			}
			if err := o.Complete(); err != nil {
				return err
			}
			if err := errors.Join(o.Validate()...); err != nil {
				return err
			}
			level, _ := parseLevel(o.LogLevel)
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExtract(cmd.Context(), o, cmd.OutOrStdout())
		},
	}

	fs := cmd.PersistentFlags()
	fs.StringP("config", "c", "", "Path to config file (default ./bizextract.yaml or $HOME/.bizextract/bizextract.yaml).")
	o.AddFlags(fs)
	for name, key := range flagKeys {
		_ = v.BindPFlag(key, fs.Lookup(name))
	}

	cmd.AddCommand(newProcessesCommand(o), newRunsCommand(o))
	return cmd
}

// loadConfig layers defaults, the config file, BIZEXTRACT_* environment
// variables and flags into o.
func loadConfig(cmd *cobra.Command, v *viper.Viper, o *Options) error {
	path, _ := cmd.Flags().GetString("config")
	if err := bizextract.ReadConfig(v, path, o.Config); err != nil {
		return err
	}
	v.SetDefault("file", o.File)
	v.SetDefault("dir", o.Dir)
	v.SetDefault("data_dir", o.DataDir)
	v.SetDefault("log_level", o.LogLevel)

	if err := v.Unmarshal(o); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return nil
}

// runExtract processes the selected documents and prints a per-document
// summary.
func runExtract(ctx context.Context, o *Options, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var paths []string
	switch {
	case o.File != "":
		if _, err := os.Stat(o.File); err != nil {
			return fmt.Errorf("%w: %s", bizextract.ErrDocumentNotFound, o.File)
		}
		paths = []string{o.File}
	default:
		dir := o.Dir
		if dir == "" {
			dir = o.DataDir
		}
		var err error
		if paths, err = bizextract.CollectFiles(dir); err != nil {
			return err
		}
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, "No documents to process.")
		return nil
	}

	p, err := bizextract.New(o.Config)
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Fprintf(out, "Found %d documents.\n", len(paths))
	results := p.ProcessBatch(ctx, paths, o.Config.OutputDir)

	failed := 0
	for i, r := range results {
		fmt.Fprintf(out, "\n[%d/%d] %s\n", i+1, len(results), filepath.Base(r.Path))
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "  error: %v\n", r.Err)
			continue
		}
		if r.Record.Failed() {
			fmt.Fprintf(out, "  %s\n", r.Record.Error)
		} else {
			st := r.Record.Statistics
			bp := r.Record.BusinessProcess
			fmt.Fprintf(out, "  entities:  %d\n", st.TotalEntities)
			fmt.Fprintf(out, "  relations: %d\n", st.TotalRelations)
			fmt.Fprintf(out, "  chains:    %d\n", st.TotalChains)
			fmt.Fprintf(out, "  process:   %s - %s\n", bp.Category, bp.Subprocess)
		}
		fmt.Fprintf(out, "  saved:     %s\n", r.OutputPath)
	}

	fmt.Fprintf(out, "\nDone: %d processed, %d failed. Results in %s\n",
		len(results)-failed, failed, o.Config.OutputDir)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errDocumentsFailed, failed, len(results))
	}
	return nil
}

func newProcessesCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "processes",
		Short: "Print the business-process catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			index := taxonomy.Default()
			if o.Config.TaxonomyPath != "" {
				var err error
				if index, err = taxonomy.LoadFile(o.Config.TaxonomyPath); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), index.PromptText())
			return nil
		},
	}
}

func newRunsCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List runs stored in the record archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.Config.DBPath == "" {
				return errors.New("no record archive configured: set --db or db_path")
			}
			s, err := store.New(o.Config.DBPath)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %s  %d documents\n", r.ID, r.StartedAt, r.Documents)
			}
			return nil
		},
	}
}
