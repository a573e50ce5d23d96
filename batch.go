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

	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/bizextract/parser"
)

// BatchResult is the outcome for one document of a batch.
type BatchResult struct {
	Path       string  `json:"path"`
	OutputPath string  `json:"output_path,omitempty"`
	Record     *Record `json:"record,omitempty"`
	Err        error   `json:"-"`
}

// CollectFiles lists the documents directly inside dir that the built-in
// parsers can read, sorted by name.
func CollectFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, dir)
		}
		return nil, err
	}

	reg := parser.NewRegistry()
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := reg.Get(parser.FormatOf(e.Name())); err == nil {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

func (p *pipeline) ProcessBatch(ctx context.Context, paths []string, outputDir string) []BatchResult {
	if outputDir == "" {
		outputDir = p.cfg.OutputDir
	}

	outputs := outputPaths(outputDir, paths)
	results := make([]BatchResult, len(paths))
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)

	for i, path := range paths {
		g.Go(func() error {
			res := BatchResult{Path: path}
			if err := ctx.Err(); err != nil {
				res.Err = err
				results[i] = res
				return nil
			}

			rec, out, err := p.persist(ctx, path, outputs[i])
			res.Record, res.OutputPath, res.Err = rec, out, err
			if err != nil {
				slog.Error("bizextract: document failed", "path", path, "error", err)
			} else {
				slog.Info("bizextract: document saved",
					"path", path,
					"output", out,
					"entities", rec.Statistics.TotalEntities,
					"relations", rec.Statistics.TotalRelations)
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()
	return results
}

// outputPaths assigns each document its DefaultOutputPath. When two
// documents share a stem, as a.txt and a.docx do, the later one gets the
// extension folded into its name (a_docx_result.json) and then a counter,
// so no record overwrites another.
func outputPaths(outputDir string, paths []string) []string {
	out := make([]string, len(paths))
	taken := make(map[string]bool, len(paths))
	for i, path := range paths {
		candidate := DefaultOutputPath(outputDir, path)
		if taken[candidate] {
			base := filepath.Base(path)
			ext := filepath.Ext(base)
			stem := strings.TrimSuffix(base, ext)
			if ext != "" {
				stem += "_" + strings.ToLower(strings.TrimPrefix(ext, "."))
			}
			candidate = filepath.Join(outputDir, stem+"_result.json")
			for n := 2; taken[candidate]; n++ {
				candidate = filepath.Join(outputDir, fmt.Sprintf("%s_%d_result.json", stem, n))
			}
			slog.Warn("bizextract: output name already used, renaming",
				"path", path,
				"default", DefaultOutputPath(outputDir, path),
				"output", candidate)
		}
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}
