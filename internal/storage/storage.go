// Package storage persists generated configurations and their debug
// snapshots.
package storage

import (
	"github.com/IshaanNene/scrapegoat-configgen/internal/generator"
)

// Storage is the interface for generation result sinks.
type Storage interface {
	// Store persists one generation result.
	Store(res *generator.Result) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}
