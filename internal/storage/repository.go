// Package storage contains the storage-agnostic persistence contracts used
// by the pipeline: a Repository interface with full-replace and append-only
// operations, a factory keyed by backend kind, and a small generic DDL model
// that backends render into their own dialect.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Repository is the database sink for cleaned, derived, and ingestion tables.
//
// ReplaceTable implements the pipeline's full-replace semantics: the stored
// table is dropped, recreated from def, and repopulated with rows in a single
// run. AppendRows serves the append-only retrieveinfo table and never touches
// existing content. Identity columns in def are populated by the database and
// must not appear in the insert column list.
type Repository interface {
	ReplaceTable(ctx context.Context, def TableDef, columns []string, rows [][]any) (int64, error)
	EnsureTable(ctx context.Context, def TableDef) error
	AppendRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Close()
}

// Config selects and configures a backend.
type Config struct {
	// Kind selects the backend implementation: "postgres", "mssql", "mysql",
	// or "sqlite".
	Kind string

	// DSN is the backend-specific connection string.
	DSN string
}

// Factory constructs a Repository for one backend kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for the given storage kind.
// It is called from backend packages' init functions.
func Register(kind string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = fn
}

// New opens a Repository of the configured kind. Callers remain fully
// backend-agnostic; importing the storage/all package wires in every built-in
// backend.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	fn, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: no backend registered for kind=%q", cfg.Kind)
	}
	return fn(ctx, cfg)
}
