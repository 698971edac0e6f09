package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/scrapegoat-configgen/internal/ai"
	"github.com/IshaanNene/scrapegoat-configgen/internal/features"
	"github.com/IshaanNene/scrapegoat-configgen/internal/fetcher"
	"github.com/IshaanNene/scrapegoat-configgen/internal/index"
	"github.com/IshaanNene/scrapegoat-configgen/internal/observability"
	"github.com/IshaanNene/scrapegoat-configgen/internal/pagination"
	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

// Seed outcomes reported by Indexer.IndexConfig.
const (
	OutcomeIndexed = "indexed"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Seed is a known-good configuration to add to the index. The page markup
// is read from HTMLFile when set, otherwise fetched from the config's
// data_source_url.
type Seed struct {
	ID       string         `yaml:"id"        json:"id"`
	HTMLFile string         `yaml:"html_file" json:"html_file,omitempty"`
	Config   map[string]any `yaml:"config"    json:"config"`
}

// SourceName returns the config's source_name.
func (s Seed) SourceName() string { return types.StringValue(s.Config, "source_name") }

// URL returns the config's data_source_url.
func (s Seed) URL() string { return types.StringValue(s.Config, "data_source_url") }

type seedFile struct {
	Configs []Seed `yaml:"configs"`
}

// LoadSeeds reads seeds from a YAML or JSON file holding either a list of
// seeds or an object with a "configs" list. Relative html_file paths are
// resolved against the file's directory. Seeds without an id take one from
// config.id or config.source_name.
func LoadSeeds(path string) ([]Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seeds: %w", err)
	}

	var seeds []Seed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		var file seedFile
		if err2 := yaml.Unmarshal(data, &file); err2 != nil {
			return nil, fmt.Errorf("parse seeds %s: %w", path, err)
		}
		seeds = file.Configs
	}

	dir := filepath.Dir(path)
	for i := range seeds {
		s := &seeds[i]
		if s.Config == nil {
			return nil, fmt.Errorf("seed %d in %s has no config", i, path)
		}
		if s.ID == "" {
			s.ID = types.StringValue(s.Config, "id")
		}
		if s.ID == "" {
			s.ID = slug(s.SourceName())
		}
		if s.ID == "" {
			return nil, fmt.Errorf("seed %d in %s has no id or source_name", i, path)
		}
		if s.HTMLFile != "" && !filepath.IsAbs(s.HTMLFile) {
			s.HTMLFile = filepath.Join(dir, s.HTMLFile)
		}
	}
	return seeds, nil
}

// Report summarizes an IndexAll run.
type Report struct {
	Indexed int               `json:"indexed"`
	Skipped int               `json:"skipped"`
	Failed  int               `json:"failed"`
	Errors  map[string]string `json:"errors,omitempty"`
	Usage   ai.Usage          `json:"usage"`
}

// Indexer adds known-good configurations to the similarity index using
// training-mode feature extraction.
type Indexer struct {
	fetcher   fetcher.Fetcher
	extractor *features.Extractor
	index     *index.Index
	metrics   *observability.Metrics
	opts      Options
	logger    *slog.Logger
}

// NewIndexer creates an Indexer. The fetcher may be nil when every seed
// carries an html_file.
func NewIndexer(f fetcher.Fetcher, llm ai.Completer, idx *index.Index, opts Options, logger *slog.Logger, m *observability.Metrics) *Indexer {
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = pagination.DefaultSnippetLength
	}
	return &Indexer{
		fetcher: f,
		extractor: features.NewExtractor(llm, features.Options{
			HTMLBudget:    opts.HTMLBudget,
			SnippetLength: opts.SnippetLength,
		}, logger),
		index:   idx,
		metrics: m,
		opts:    opts,
		logger:  logger.With("component", "config_indexer"),
	}
}

// IndexConfig adds one seed. A seed already in the index is skipped unless
// force is set. When the LLM returns no usable features the default record
// is indexed and a warning logged.
func (x *Indexer) IndexConfig(ctx context.Context, seed Seed, force bool) (string, ai.Usage, error) {
	log := x.logger.With("id", seed.ID, "source", seed.SourceName())

	if !force {
		exists, err := x.index.Has(ctx, seed.ID)
		if err != nil {
			return OutcomeFailed, ai.Usage{}, &types.StageError{Stage: types.StageIndex, Err: err}
		}
		if exists {
			log.Debug("config already indexed, skipping")
			return OutcomeSkipped, ai.Usage{}, nil
		}
	}

	html, err := x.loadHTML(ctx, seed)
	if err != nil {
		return OutcomeFailed, ai.Usage{}, &types.StageError{Stage: types.StageFetch, Err: err}
	}

	feats, usage, err := x.extractor.ExtractTraining(ctx, html, seed.Config)
	x.metrics.ObserveLLM(features.StepTraining, usage)
	if err != nil {
		if !errors.Is(err, types.ErrEmptyFeatures) {
			return OutcomeFailed, usage, &types.StageError{Stage: types.StageFeatures, Err: err}
		}
		log.Warn("no features extracted, indexing defaults", "error", err)
	}

	snippet := pagination.Locate(html, x.opts.SnippetLength)
	if err := x.index.Add(ctx, seed.ID, feats, seed.Config, snippet); err != nil {
		return OutcomeFailed, usage, &types.StageError{Stage: types.StageIndex, Err: err}
	}

	log.Info("seed indexed", "features", feats.Text(), "pagination_chars", len(snippet))
	return OutcomeIndexed, usage, nil
}

// IndexAll indexes every seed, continuing past failures.
func (x *Indexer) IndexAll(ctx context.Context, seeds []Seed, force bool) (Report, error) {
	report := Report{Errors: map[string]string{}}
	start := time.Now()

	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome, usage, err := x.IndexConfig(ctx, seed, force)
		report.Usage = report.Usage.Plus(usage)
		x.metrics.ObserveIndexed(outcome)

		switch outcome {
		case OutcomeIndexed:
			report.Indexed++
		case OutcomeSkipped:
			report.Skipped++
		default:
			report.Failed++
			report.Errors[seed.ID] = err.Error()
			x.logger.Error("failed to index seed", "id", seed.ID, "error", err)
		}
	}

	if n, err := x.index.Count(ctx); err == nil {
		x.metrics.SetIndexSize(n)
	}

	x.logger.Info("indexing complete",
		"indexed", report.Indexed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", time.Since(start),
	)
	return report, nil
}

func (x *Indexer) loadHTML(ctx context.Context, seed Seed) (string, error) {
	if seed.HTMLFile != "" {
		data, err := os.ReadFile(seed.HTMLFile)
		if err != nil {
			return "", fmt.Errorf("read html snapshot: %w", err)
		}
		if len(data) == 0 {
			return "", &types.FetchError{URL: seed.HTMLFile, Err: types.ErrEmptyResponse}
		}
		return string(data), nil
	}

	if x.fetcher == nil {
		return "", fmt.Errorf("seed %s has no html_file and no fetcher is configured", seed.ID)
	}
	start := time.Now()
	resp, err := fetcher.FetchHTML(ctx, x.fetcher, seed.URL(), seed.SourceName())
	x.metrics.ObserveFetch(x.fetcher.Type(), time.Since(start), err)
	if err != nil {
		return "", err
	}
	return resp.HTML(), nil
}

// slug lowercases s and joins its alphanumeric runs with underscores.
func slug(s string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	return b.String()
}
