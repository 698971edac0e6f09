// Package index stores validated configurations as embedding vectors and
// answers nearest-neighbor queries over them.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPgVector = "pgvector"
	BackendMongoDB  = "mongodb"
)

// Metadata is stored alongside each vector.
type Metadata struct {
	SourceName     string `json:"source_name" bson:"source_name"`
	FeaturesText   string `json:"features_text" bson:"features_text"`
	FullConfig     string `json:"full_config" bson:"full_config"`
	PaginationHTML string `json:"pagination_html" bson:"pagination_html"`
}

// Entry is one stored vector.
type Entry struct {
	ID       string
	Vector   []float32
	Document string
	Metadata Metadata
}

// Match is a query result. Distance is cosine distance, lower is closer.
type Match struct {
	Entry
	Distance float64
}

// ErrDimensionMismatch is returned when a query vector and a stored vector
// differ in length, usually after the embedding model changed. Reset and
// re-index to recover.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Store is a vector index backend.
type Store interface {
	Name() string
	Upsert(ctx context.Context, e Entry) error
	Query(ctx context.Context, vec []float32, k int) ([]Match, error)
	Get(ctx context.Context, id string) (Entry, bool, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
	Close() error
}

// StoreConfig selects and configures a Store.
type StoreConfig struct {
	Backend    string
	DSN        string
	Database   string
	Collection string
	Dimension  int
}

// NewStore opens the configured backend.
func NewStore(ctx context.Context, cfg StoreConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendPgVector:
		return NewPgVectorStore(ctx, cfg.DSN, cfg.Collection, cfg.Dimension)
	case BackendMongoDB:
		return NewMongoStore(ctx, cfg.DSN, cfg.Database, cfg.Collection, logger)
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", cfg.Backend)
	}
}

// CosineDistance returns 1 - cos(a, b). Callers must pass vectors of equal
// length; extra components of the longer one are ignored. A zero vector is
// at distance 1 from everything.
func CosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// rank scores entries against vec and returns the k closest, ties kept in
// input order. Any stored vector whose length differs from vec fails the
// whole query with ErrDimensionMismatch.
func rank(entries []Entry, vec []float32, k int) ([]Match, error) {
	matches := make([]Match, len(entries))
	for i, e := range entries {
		if len(e.Vector) != len(vec) {
			return nil, fmt.Errorf("%w: entry %s has %d dimensions, query has %d",
				ErrDimensionMismatch, e.ID, len(e.Vector), len(vec))
		}
		matches[i] = Match{Entry: e, Distance: CosineDistance(vec, e.Vector)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if k >= 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}
