package index

import (
	"context"
	"os"
	"testing"
)

// Backends are exercised against live servers only when the matching
// environment variable is set.

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	entries := []Entry{
		{ID: "near", Vector: []float32{1, 0, 0}, Document: "near", Metadata: Metadata{SourceName: "near", FullConfig: "{}"}},
		{ID: "far", Vector: []float32{0, 1, 0}, Document: "far", Metadata: Metadata{SourceName: "far", FullConfig: "{}"}},
	}
	for _, e := range entries {
		if err := s.Upsert(ctx, e); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v", n, err)
	}

	matches, err := s.Query(ctx, []float32{0.9, 0.1, 0}, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 2 || matches[0].ID != "near" {
		t.Errorf("unexpected ranking %+v", matches)
	}

	e, ok, err := s.Get(ctx, "far")
	if err != nil || !ok || e.Metadata.SourceName != "far" || len(e.Vector) != 3 {
		t.Errorf("get = %+v, %v, %v", e, ok, err)
	}
	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Error("expected missing entry")
	}

	if err := s.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}
}

func TestPgVectorStoreIntegration(t *testing.T) {
	dsn := os.Getenv("CONFIGGEN_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("CONFIGGEN_TEST_PG_DSN not set")
	}
	s, err := NewPgVectorStore(context.Background(), dsn, "configgen_test_entries", 3)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestMongoStoreIntegration(t *testing.T) {
	uri := os.Getenv("CONFIGGEN_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CONFIGGEN_TEST_MONGO_URI not set")
	}
	s, err := NewMongoStore(context.Background(), uri, "configgen_test", "entries", testLogger)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}
