package storage

import (
	"context"
	"testing"
)

type stubRepo struct{ dsn string }

func (s *stubRepo) ReplaceTable(ctx context.Context, def TableDef, columns []string, rows [][]any) (int64, error) {
	return 0, nil
}
func (s *stubRepo) EnsureTable(ctx context.Context, def TableDef) error { return nil }
func (s *stubRepo) AppendRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	return 0, nil
}
func (s *stubRepo) Close() {}

func TestFactoryRegistry(t *testing.T) {
	Register("stub", func(ctx context.Context, cfg Config) (Repository, error) {
		return &stubRepo{dsn: cfg.DSN}, nil
	})

	repo, err := New(context.Background(), Config{Kind: "stub", DSN: "stub://x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if repo.(*stubRepo).dsn != "stub://x" {
		t.Fatalf("dsn not threaded through: %+v", repo)
	}

	if _, err := New(context.Background(), Config{Kind: "nope"}); err == nil {
		t.Fatalf("expected error for unregistered kind")
	}
}
