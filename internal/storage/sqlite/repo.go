// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. Replace and append operations run batched INSERTs inside a
// transaction; SQLite has no dedicated bulk-load API, but transactions keep
// performance acceptable for the volumes this pipeline handles.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Sanjarbek1024/Demo-project/internal/storage"
)

// Config holds SQLite repository configuration.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.
	// "file:cleaned.db?cache=shared" or "cleaned.db".
	DSN string
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository opens a SQLite connection and returns a Repository plus a
// Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db}, closeFn, nil
}

// ReplaceTable drops and recreates the table described by def and inserts
// rows inside a single transaction.
func (r *Repository) ReplaceTable(ctx context.Context, def storage.TableDef, columns []string, rows [][]any) (int64, error) {
	if err := def.Validate(); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+ident(def.Name)); err != nil {
		return 0, fmt.Errorf("sqlite: drop %s: %w", def.Name, err)
	}
	if _, err := tx.ExecContext(ctx, createSQL(def)); err != nil {
		return 0, fmt.Errorf("sqlite: create %s: %w", def.Name, err)
	}

	inserted, err := insertRows(ctx, tx, def.Name, columns, rows)
	if err != nil {
		return inserted, err
	}
	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// EnsureTable creates the table when it does not exist yet.
func (r *Repository) EnsureTable(ctx context.Context, def storage.TableDef) error {
	if err := def.Validate(); err != nil {
		return err
	}
	stmt := strings.Replace(createSQL(def), "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS ", 1)
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: ensure %s: %w", def.Name, err)
	}
	return nil
}

// AppendRows inserts rows without touching existing table content.
func (r *Repository) AppendRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback()

	inserted, err := insertRows(ctx, tx, table, columns, rows)
	if err != nil {
		return inserted, err
	}
	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// Close is a no-op; lifecycle is owned by the close function returned from
// NewRepository. The adapter wires them together.
func (r *Repository) Close() {}

func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: insert into %s: columns must not be empty", table)
	}

	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		ident(table),
		strings.Join(mapIdent(columns), ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			return inserted, fmt.Errorf("sqlite: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, normalizeVals(row)...); err != nil {
			return inserted, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

// createSQL renders the CREATE TABLE statement for def.
func createSQL(def storage.TableDef) string {
	cols := make([]string, len(def.Columns))
	for i, c := range def.Columns {
		if c.Identity {
			cols[i] = ident(c.Name) + " INTEGER PRIMARY KEY AUTOINCREMENT"
			continue
		}
		cols[i] = ident(c.Name) + " " + sqlType(c.Kind)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", ident(def.Name), strings.Join(cols, ", "))
}

// sqlType maps generic kinds to SQLite storage classes. Booleans become 0/1
// integers and timestamps are stored as RFC3339 text.
func sqlType(k storage.ColumnKind) string {
	switch k {
	case storage.KindInteger, storage.KindBool:
		return "INTEGER"
	case storage.KindReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// normalizeVals converts values the driver has no native encoding for:
// bool → 0/1 and time.Time → RFC3339 text.
func normalizeVals(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case bool:
			if x {
				out[i] = int64(1)
			} else {
				out[i] = int64(0)
			}
		case time.Time:
			out[i] = x.Format(time.RFC3339)
		default:
			out[i] = v
		}
	}
	return out
}

func ident(name string) string { return `"` + strings.ReplaceAll(name, `"`, `""`) + `"` }

func mapIdent(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ident(n)
	}
	return out
}
