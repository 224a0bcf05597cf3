package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sanjarbek1024/Demo-project/internal/config"
	"github.com/Sanjarbek1024/Demo-project/internal/derive"
	"github.com/Sanjarbek1024/Demo-project/internal/storage"
	"github.com/Sanjarbek1024/Demo-project/internal/tracker"
)

// fakeRepo records storage calls in memory. failTables lists table names
// whose ReplaceTable should fail, to simulate a broken sink.
type fakeRepo struct {
	replaced   map[string][][]any
	replCols   map[string][]string
	ensured    []string
	appended   map[string][][]any
	failTables map[string]bool
	closed     bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		replaced:   map[string][][]any{},
		replCols:   map[string][]string{},
		appended:   map[string][][]any{},
		failTables: map[string]bool{},
	}
}

func (f *fakeRepo) ReplaceTable(ctx context.Context, def storage.TableDef, columns []string, rows [][]any) (int64, error) {
	if f.failTables[def.Name] {
		return 0, fmt.Errorf("replace %s: boom", def.Name)
	}
	f.replaced[def.Name] = rows
	f.replCols[def.Name] = columns
	return int64(len(rows)), nil
}

func (f *fakeRepo) EnsureTable(ctx context.Context, def storage.TableDef) error {
	f.ensured = append(f.ensured, def.Name)
	return nil
}

func (f *fakeRepo) AppendRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	f.appended[table] = append(f.appended[table], rows...)
	return int64(len(rows)), nil
}

func (f *fakeRepo) Close() { f.closed = true }

// installFakeRepo swaps the repository seam for the test's lifetime.
func installFakeRepo(t *testing.T, repo *fakeRepo) {
	t.Helper()
	orig := newRepositoryFn
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return repo, nil
	}
	t.Cleanup(func() { newRepositoryFn = orig })
}

const schemaMapJSON = `{
  "01": {
    "table": "users",
    "file": "t01.csv",
    "columns": { "user_id": "id", "name": "name", "total_balance": "total_balance" }
  },
  "02": {
    "table": "cards",
    "file": "t02.csv",
    "columns": { "card_id": "id", "owner": "user_id", "balance": "balance", "limit": "limit_amount" }
  },
  "03": {
    "table": "transactions",
    "file": "t03.csv",
    "columns": { "txn_id": "id", "card": "from_card_id", "amount": "amount", "created": "created_at" }
  }
}`

// writeFixtures lays out a local source dir and schema map and returns a
// ready-to-run config using the given table order.
func writeFixtures(t *testing.T, tables []string) config.Pipeline {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"t01.csv": "01-user_id,01-name,01-total_balance\n" +
			"1,alice,600000001\n" +
			"2,bob,1000\n",
		"t02.csv": "02-card_id,02-owner,02-balance,02-limit\n" +
			"10,1,-5,100\n" +
			"11,2,50,200\n",
		"t03.csv": "03-txn_id,03-card,03-amount,03-created\n" +
			"100,10,150,2026-01-02 10:00:00\n" +
			"101,11,20,2026-01-02 11:00:00\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mapPath := filepath.Join(dir, "column_table_map.json")
	if err := os.WriteFile(mapPath, []byte(schemaMapJSON), 0o644); err != nil {
		t.Fatalf("write schema map: %v", err)
	}

	out := t.TempDir()
	return config.Pipeline{
		Job:        "test_run",
		Source:     config.Source{Kind: "file", File: config.SourceFile{Dir: dir}},
		SchemaMap:  config.SchemaMapRef{Path: mapPath},
		Tables:     tables,
		Parser:     config.ParserOptions{TrimSpace: true},
		Storage:    config.Storage{Kind: "fake", DSN: "fake://"},
		CleanedDir: filepath.Join(out, "cleaned"),
		AuditLog:   filepath.Join(out, "retrieveinfo_log.txt"),
	}
}

func TestRun_EndToEnd(t *testing.T) {
	repo := newFakeRepo()
	installFakeRepo(t, repo)

	cfg := writeFixtures(t, []string{"01", "02", "03"})
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()
	p.Tracker.Now = func() time.Time { return time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC) }
	p.Engine.Now = p.Tracker.Now

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Cleaned and derived tables all landed in the database sink.
	for _, table := range []string{"users", "cards", "transactions",
		derive.FraudTable, derive.VIPTable, derive.BlockedTable} {
		if _, ok := repo.replaced[table]; !ok {
			t.Fatalf("table %s was not replaced; got %v", table, repo.replaced)
		}
	}
	if got := len(repo.replaced["users"]); got != 2 {
		t.Fatalf("users rows = %d, want 2", got)
	}

	// Derivation results from the fixture data: txn 100 (150 > limit 100) is
	// fraud, user 1 (600000001) is VIP, card 10 (balance -5) is blocked.
	if got := len(repo.replaced[derive.FraudTable]); got != 1 {
		t.Fatalf("fraud rows = %d, want 1", got)
	}
	if got := len(repo.replaced[derive.VIPTable]); got != 1 {
		t.Fatalf("vip rows = %d, want 1", got)
	}
	if got := len(repo.replaced[derive.BlockedTable]); got != 1 {
		t.Fatalf("blocked rows = %d, want 1", got)
	}

	// One tracker record per attempt, in attempt order, all successful.
	recs := p.Tracker.Records()
	if len(recs) != 3 {
		t.Fatalf("tracker records = %d, want 3", len(recs))
	}
	wantFiles := []string{"t01.csv", "t02.csv", "t03.csv"}
	for i, r := range recs {
		if r.SourceFile != wantFiles[i] {
			t.Fatalf("record %d file = %q, want %q", i, r.SourceFile, wantFiles[i])
		}
		if r.Errors != 0 || r.Notes != "loaded" || r.TotalRows != 2 || r.ProcessedRows != 2 {
			t.Fatalf("record %d = %+v, want clean 2-row success", i, r)
		}
	}

	// Tracker flushed to the database and to the audit file.
	if len(repo.ensured) != 1 || repo.ensured[0] != tracker.TableName {
		t.Fatalf("ensured = %v, want [%s]", repo.ensured, tracker.TableName)
	}
	if got := len(repo.appended[tracker.TableName]); got != 3 {
		t.Fatalf("appended retrieveinfo rows = %d, want 3", got)
	}
	// retrieve_id is database-assigned, so six values per appended row.
	if got := len(repo.appended[tracker.TableName][0]); got != 6 {
		t.Fatalf("retrieveinfo row width = %d, want 6", got)
	}

	audit, err := os.ReadFile(cfg.AuditLog)
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(audit)), "\n")
	if len(lines) != 4 {
		t.Fatalf("audit lines = %d, want header + 3", len(lines))
	}
	if lines[0] != "source_file,retrieved_at,total_rows,processed_rows,errors,notes" {
		t.Fatalf("audit header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "t01.csv,2026-02-03 12:00:00,2,2,0,loaded") {
		t.Fatalf("audit line 1 = %q", lines[1])
	}

	// Cleaned CSVs were written alongside the database.
	for _, name := range []string{"users", "cards", "transactions", derive.FraudTable} {
		if _, err := os.Stat(filepath.Join(cfg.CleanedDir, name+".csv")); err != nil {
			t.Fatalf("cleaned csv %s: %v", name, err)
		}
	}
}

func TestRun_FetchFailureContinues(t *testing.T) {
	repo := newFakeRepo()
	installFakeRepo(t, repo)

	cfg := writeFixtures(t, []string{"01", "02"})
	// Remove the first table's file so its fetch fails.
	if err := os.Remove(filepath.Join(cfg.Source.File.Dir, "t01.csv")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	recs := p.Tracker.Records()
	if len(recs) != 2 {
		t.Fatalf("tracker records = %d, want 2", len(recs))
	}
	if recs[0].SourceFile != "t01.csv" || recs[0].Errors != 1 ||
		recs[0].TotalRows != 0 || recs[0].ProcessedRows != 0 {
		t.Fatalf("record 0 = %+v, want failure with zero rows", recs[0])
	}
	if recs[1].SourceFile != "t02.csv" || recs[1].Errors != 0 {
		t.Fatalf("record 1 = %+v, want success for next identifier", recs[1])
	}

	// Cards still landed despite the users failure.
	if _, ok := repo.replaced["cards"]; !ok {
		t.Fatalf("cards not replaced after earlier failure")
	}
	if _, ok := repo.replaced["users"]; ok {
		t.Fatalf("users should not have been replaced")
	}

	// blocked_users depends only on cards and still derives; the other two
	// derivations are missing their inputs and fail independently.
	if _, ok := repo.replaced[derive.BlockedTable]; !ok {
		t.Fatalf("blocked_users should still derive from cards")
	}
	if _, ok := repo.replaced[derive.VIPTable]; ok {
		t.Fatalf("vip_users should not derive without users")
	}
}

func TestRun_UnknownIdentifier(t *testing.T) {
	repo := newFakeRepo()
	installFakeRepo(t, repo)

	cfg := writeFixtures(t, []string{"99", "02"})
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	recs := p.Tracker.Records()
	if len(recs) != 2 {
		t.Fatalf("tracker records = %d, want 2", len(recs))
	}
	if recs[0].SourceFile != "t99.csv" || recs[0].Errors != 1 {
		t.Fatalf("record 0 = %+v, want config failure for t99.csv", recs[0])
	}
	if !strings.Contains(recs[0].Notes, `"99"`) {
		t.Fatalf("record 0 notes = %q, want identifier in note", recs[0].Notes)
	}
	if recs[1].Errors != 0 {
		t.Fatalf("record 1 = %+v, want success", recs[1])
	}
}

func TestRun_DBSinkFailureRecorded(t *testing.T) {
	repo := newFakeRepo()
	repo.failTables["users"] = true
	installFakeRepo(t, repo)

	cfg := writeFixtures(t, []string{"01", "02"})
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	recs := p.Tracker.Records()
	if recs[0].Errors != 1 || !strings.Contains(recs[0].Notes, "boom") {
		t.Fatalf("record 0 = %+v, want db sink failure", recs[0])
	}
	if recs[1].Errors != 0 {
		t.Fatalf("record 1 = %+v, want success", recs[1])
	}
}

func TestNew_UnknownSourceKind(t *testing.T) {
	repo := newFakeRepo()
	installFakeRepo(t, repo)

	cfg := writeFixtures(t, []string{"01"})
	cfg.Source.Kind = "ftp"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatalf("New with unknown source kind: expected error")
	}
}
