package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/IshaanNene/scrapegoat-configgen/internal/ai"
	"github.com/IshaanNene/scrapegoat-configgen/internal/markup"
	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

// StoredSnippetLength bounds the pagination markup kept per entry.
const StoredSnippetLength = 2000

// Index embeds feature records and pagination snippets and resolves
// nearest neighbors to SimilarityHits.
type Index struct {
	store    Store
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates an Index over store.
func New(store Store, embedder ai.Embedder, logger *slog.Logger) *Index {
	return &Index{
		store:    store,
		embedder: embedder,
		logger:   logger.With("component", "similarity_index"),
	}
}

// Backend names the underlying store.
func (x *Index) Backend() string { return x.store.Name() }

// Add embeds the feature text and upserts the config under id. The source
// name is read from cfg["source_name"].
func (x *Index) Add(ctx context.Context, id string, features types.FeatureRecord, cfg map[string]any, snippet string) error {
	text := features.Text()
	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed features: %w", err)
	}

	fullConfig, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config %s: %w", id, err)
	}

	entry := Entry{
		ID:       id,
		Vector:   vec,
		Document: text,
		Metadata: Metadata{
			SourceName:     types.StringValue(cfg, "source_name"),
			FeaturesText:   text,
			FullConfig:     string(fullConfig),
			PaginationHTML: markup.Head(snippet, StoredSnippetLength),
		},
	}
	if err := x.store.Upsert(ctx, entry); err != nil {
		return x.storageErr(err)
	}

	x.logger.Info("config indexed", "id", id, "source", entry.Metadata.SourceName)
	return nil
}

// FindSimilarByFeatures returns up to k configs closest to the feature text.
func (x *Index) FindSimilarByFeatures(ctx context.Context, features types.FeatureRecord, k int) ([]types.SimilarityHit, error) {
	return x.query(ctx, features.Text(), k)
}

// FindSimilarByPagination returns up to k configs closest to the raw
// pagination markup. An empty snippet returns no hits.
func (x *Index) FindSimilarByPagination(ctx context.Context, snippet string, k int) ([]types.SimilarityHit, error) {
	if snippet == "" {
		return []types.SimilarityHit{}, nil
	}
	return x.query(ctx, snippet, k)
}

func (x *Index) query(ctx context.Context, text string, k int) ([]types.SimilarityHit, error) {
	hits := []types.SimilarityHit{}
	if k <= 0 {
		return hits, nil
	}

	count, err := x.store.Count(ctx)
	if err != nil {
		return nil, x.storageErr(err)
	}
	if count == 0 {
		return hits, nil
	}
	if k > count {
		k = count
	}

	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := x.store.Query(ctx, vec, k)
	if err != nil {
		return nil, x.storageErr(err)
	}

	for _, m := range matches {
		hits = append(hits, x.toHit(m))
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (x *Index) toHit(m Match) types.SimilarityHit {
	cfg := map[string]any{}
	if m.Metadata.FullConfig != "" {
		decoded, err := types.EnsureMap(m.Metadata.FullConfig)
		if err != nil {
			x.logger.Warn("failed to parse stored config", "id", m.ID, "error", err)
		} else {
			cfg = decoded
		}
	}

	distance := m.Distance
	if distance < 0 {
		distance = 0
	}

	return types.SimilarityHit{
		ID:             m.ID,
		SourceName:     m.Metadata.SourceName,
		Distance:       distance,
		Config:         cfg,
		RawConfig:      m.Metadata.FullConfig,
		FeaturesText:   m.Metadata.FeaturesText,
		PaginationHTML: m.Metadata.PaginationHTML,
	}
}

// Get returns the stored config for id.
func (x *Index) Get(ctx context.Context, id string) (types.StoredConfig, error) {
	e, ok, err := x.store.Get(ctx, id)
	if err != nil {
		return types.StoredConfig{}, x.storageErr(err)
	}
	if !ok {
		return types.StoredConfig{}, fmt.Errorf("config %s: %w", id, types.ErrNotFound)
	}
	cfg, err := types.EnsureMap(e.Metadata.FullConfig)
	if err != nil {
		x.logger.Warn("failed to parse stored config", "id", id, "error", err)
	}
	return types.StoredConfig{
		ID:             e.ID,
		SourceName:     e.Metadata.SourceName,
		Config:         cfg,
		FeaturesText:   e.Metadata.FeaturesText,
		PaginationHTML: e.Metadata.PaginationHTML,
	}, nil
}

// Has reports whether id is stored.
func (x *Index) Has(ctx context.Context, id string) (bool, error) {
	_, ok, err := x.store.Get(ctx, id)
	if err != nil {
		return false, x.storageErr(err)
	}
	return ok, nil
}

// Count returns the number of stored configs.
func (x *Index) Count(ctx context.Context) (int, error) {
	n, err := x.store.Count(ctx)
	if err != nil {
		return 0, x.storageErr(err)
	}
	return n, nil
}

// Reset removes every stored config.
func (x *Index) Reset(ctx context.Context) error {
	if err := x.store.DeleteAll(ctx); err != nil {
		return x.storageErr(err)
	}
	x.logger.Info("index reset", "backend", x.store.Name())
	return nil
}

// Close closes the underlying store.
func (x *Index) Close() error {
	return x.store.Close()
}

func (x *Index) storageErr(err error) error {
	return &types.StorageError{Backend: x.store.Name(), Err: err}
}
