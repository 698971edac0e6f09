package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

const defaultTable = "website_configs"

// PgVectorStore implements Store backed by Postgres + pgvector.
type PgVectorStore struct {
	db        *sql.DB
	table     string
	dimension int
}

// NewPgVectorStore connects to Postgres (with pgvector) and ensures the table exists.
func NewPgVectorStore(ctx context.Context, dsn, table string, dimension int) (*PgVectorStore, error) {
	if dsn == "" {
		return nil, errors.New("pgvector dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	store, err := NewPgVectorStoreFromDB(ctx, db, table, dimension)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPgVectorStoreFromDB reuses an existing *sql.DB.
func NewPgVectorStoreFromDB(ctx context.Context, db *sql.DB, table string, dimension int) (*PgVectorStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if table == "" {
		table = defaultTable
	}
	if dimension <= 0 {
		return nil, errors.New("pgvector store requires a positive embedding dimension")
	}
	store := &PgVectorStore{db: db, table: pq.QuoteIdentifier(table), dimension: dimension}
	if err := store.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("pgvector schema: %w", err)
	}
	return store, nil
}

func (s *PgVectorStore) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS %s (
  id          text PRIMARY KEY,
  document    text NOT NULL DEFAULT '',
  metadata    jsonb NOT NULL,
  embedding   vector(%d) NOT NULL,
  updated_at  timestamptz NOT NULL DEFAULT now()
);
`, s.table, s.dimension)
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *PgVectorStore) Name() string { return BackendPgVector }

func (s *PgVectorStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PgVectorStore) Upsert(ctx context.Context, e Entry) error {
	embLit, err := toVectorLiteral(e.Vector, s.dimension)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(`
INSERT INTO %s (id, document, metadata, embedding, updated_at)
 VALUES ($1, $2, $3, $4::vector, $5)
 ON CONFLICT (id) DO UPDATE SET
   document=EXCLUDED.document,
   metadata=EXCLUDED.metadata,
   embedding=EXCLUDED.embedding,
   updated_at=EXCLUDED.updated_at;
`, s.table)
	_, err = s.db.ExecContext(ctx, stmt, e.ID, e.Document, meta, embLit, time.Now().UTC())
	return err
}

func (s *PgVectorStore) Query(ctx context.Context, vec []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	embLit, err := toVectorLiteral(vec, s.dimension)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT id, document, metadata, embedding <=> $1::vector AS distance
FROM %s
ORDER BY distance
LIMIT $2;
`, s.table)

	rows, err := s.db.QueryContext(ctx, query, embLit, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var metaBytes []byte
		var distance sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.Document, &metaBytes, &distance); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(metaBytes, &m.Metadata)
		m.Distance = 1
		if distance.Valid {
			m.Distance = distance.Float64
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PgVectorStore) Get(ctx context.Context, id string) (Entry, bool, error) {
	query := fmt.Sprintf(`SELECT id, document, metadata, embedding::text FROM %s WHERE id = $1`, s.table)

	var e Entry
	var metaBytes []byte
	var embText string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Document, &metaBytes, &embText)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	_ = json.Unmarshal(metaBytes, &e.Metadata)
	if e.Vector, err = parseVectorLiteral(embText); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, s.table)).Scan(&n)
	return n, err
}

func (s *PgVectorStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table))
	return err
}

func toVectorLiteral(embedding []float32, dim int) (string, error) {
	if len(embedding) == 0 {
		return "", errors.New("embedding is required")
	}
	if dim > 0 && len(embedding) != dim {
		return "", fmt.Errorf("embedding length %d does not match dimension %d", len(embedding), dim)
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ",")), nil
}

func parseVectorLiteral(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	vec := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector component %d: %w", i, err)
		}
		vec[i] = float32(v)
	}
	return vec, nil
}
