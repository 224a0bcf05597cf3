// Package pipeline wires the ingestion run end to end: schema map, source
// files, CSV parsing, normalization, the file and database sinks, the
// derivation engine, and the ingestion tracker.
//
// A run is strictly sequential. Table identifiers are processed one at a
// time in the configured order; a failure for one identifier is recorded and
// the run continues with the next. Derivations execute once, only after every
// identifier has been attempted, so they always observe a fully materialized
// cleaned set.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/Sanjarbek1024/Demo-project/internal/config"
	"github.com/Sanjarbek1024/Demo-project/internal/datasource"
	"github.com/Sanjarbek1024/Demo-project/internal/datasource/file"
	"github.com/Sanjarbek1024/Demo-project/internal/datasource/httpds"
	"github.com/Sanjarbek1024/Demo-project/internal/derive"
	"github.com/Sanjarbek1024/Demo-project/internal/filesink"
	"github.com/Sanjarbek1024/Demo-project/internal/metrics"
	"github.com/Sanjarbek1024/Demo-project/internal/normalizer"
	csvparser "github.com/Sanjarbek1024/Demo-project/internal/parser/csv"
	"github.com/Sanjarbek1024/Demo-project/internal/schemamap"
	"github.com/Sanjarbek1024/Demo-project/internal/storage"
	"github.com/Sanjarbek1024/Demo-project/internal/tracker"
	"github.com/Sanjarbek1024/Demo-project/pkg/records"
)

// Cleaned table names the derivation engine reads.
const (
	usersTable        = "users"
	cardsTable        = "cards"
	transactionsTable = "transactions"
)

// successNote is recorded for every fully processed source file.
const successNote = "loaded"

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return storage.New(ctx, cfg)
	}
)

// Pipeline holds the wired collaborators for one run. Build it with New and
// release the database handle with Close.
type Pipeline struct {
	job    string
	schema schemamap.Map
	tables []string
	opener datasource.Opener
	parser *csvparser.Parser
	rules  normalizer.TypeRules
	repo   storage.Repository
	sink   *filesink.Sink
	audit  string

	// Tracker and Engine are exported so tests can pin their clocks.
	Tracker *tracker.Tracker
	Engine  *derive.Engine
}

// New builds a Pipeline from a validated configuration: it loads the schema
// map, constructs the source opener, opens the storage backend, and prepares
// the sinks. The caller owns the returned Pipeline and must Close it.
func New(ctx context.Context, cfg config.Pipeline) (*Pipeline, error) {
	cfg.Defaults()

	client := httpds.NewClient(httpds.Config{
		Timeout:    time.Duration(cfg.Source.HTTP.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.Source.HTTP.MaxRetries,
	})

	schema, err := loadSchemaMap(ctx, client, cfg.SchemaMap)
	if err != nil {
		return nil, err
	}

	var opener datasource.Opener
	switch cfg.Source.Kind {
	case "http":
		opener = httpds.NewBase(client, cfg.Source.HTTP.BaseURL)
	case "file":
		opener = file.NewDir(cfg.Source.File.Dir)
	default:
		return nil, fmt.Errorf("pipeline: unknown source kind %q", cfg.Source.Kind)
	}

	repo, err := newRepositoryFn(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN})
	if err != nil {
		return nil, fmt.Errorf("pipeline: open storage: %w", err)
	}

	sink, err := filesink.New(cfg.CleanedDir)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("pipeline: file sink: %w", err)
	}

	return &Pipeline{
		job:    cfg.Job,
		schema: schema,
		tables: cfg.Tables,
		opener: opener,
		parser: csvparser.NewParser(csvparser.Options{
			Comma:       cfg.Parser.CommaRune(),
			TrimSpace:   cfg.Parser.TrimSpace,
			FoldHeaders: cfg.Parser.FoldHeaders,
		}),
		rules:   normalizer.DefaultRules().Merge(cfg.Rules),
		repo:    repo,
		sink:    sink,
		audit:   cfg.AuditLog,
		Tracker: tracker.New(),
		Engine:  derive.New(),
	}, nil
}

// loadSchemaMap reads the schema-map document from a local path or over HTTP.
func loadSchemaMap(ctx context.Context, client *httpds.Client, ref config.SchemaMapRef) (schemamap.Map, error) {
	if ref.Path != "" {
		return schemamap.Load(ref.Path)
	}
	body, err := client.FetchBytes(ctx, ref.URL)
	if err != nil {
		return nil, fmt.Errorf("pipeline: fetch schema map: %w", err)
	}
	return schemamap.Parse(body)
}

// Close releases the storage handle.
func (p *Pipeline) Close() { p.repo.Close() }

// Run executes the full ingestion: every configured table identifier in
// order, then the derivations, then the tracker flush. Per-identifier
// failures are recorded and do not abort the run; Run fails only when the
// tracker itself cannot be persisted.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	cleaned := make(map[string]*records.Table, len(p.tables))

	for _, id := range p.tables {
		p.processTable(ctx, id, cleaned)
	}

	p.runDerivations(ctx, cleaned)

	if err := p.flushTracker(ctx); err != nil {
		return err
	}

	log.Printf("run complete: job=%s tables=%d records=%d elapsed=%s",
		p.job, len(p.tables), p.Tracker.Len(), time.Since(start).Truncate(time.Millisecond))
	return nil
}

// processTable handles one table identifier: resolve, fetch, parse,
// normalize, persist, track. Every exit path appends exactly one tracker
// record for the attempt.
func (p *Pipeline) processTable(ctx context.Context, id string, cleaned map[string]*records.Table) {
	start := time.Now()

	entry, err := p.schema.Resolve(id)
	if err != nil {
		// Configuration failure, distinct from a retrieval failure. The
		// schema map names the source file, so fall back to the conventional
		// name for the record.
		p.fail(id, fmt.Sprintf("t%s.csv", id), "resolve", err, start)
		return
	}

	body, err := p.fetch(ctx, entry.File)
	if err != nil {
		p.fail(entry.Table, entry.File, "fetch", err, start)
		return
	}
	log.Printf("fetch: table=%s file=%s bytes=%d xxh3=%016x",
		entry.Table, entry.File, len(body), xxh3.Hash(body))

	raw, skipped, err := p.parser.Parse(bytes.NewReader(body))
	if err != nil {
		p.fail(entry.Table, entry.File, "parse", err, start)
		return
	}
	total := raw.Len() + skipped

	tbl := normalizer.Normalize(id, raw, entry, p.rules)

	if err := p.sink.Replace(entry.Table, tbl); err != nil {
		p.fail(entry.Table, entry.File, "csv_sink", err, start)
		return
	}
	def := storage.InferTableDef(entry.Table, tbl)
	if _, err := p.repo.ReplaceTable(ctx, def, tbl.Columns, tableRows(tbl)); err != nil {
		p.fail(entry.Table, entry.File, "db_sink", err, start)
		return
	}

	cleaned[entry.Table] = tbl
	p.Tracker.Success(entry.File, total, tbl.Len(), successNote)
	metrics.RecordRows(p.job, entry.Table, "total", int64(total))
	metrics.RecordRows(p.job, entry.Table, "processed", int64(tbl.Len()))
	metrics.RecordRows(p.job, entry.Table, "skipped", int64(skipped))
	metrics.RecordStep(p.job, entry.Table, "ingest", nil, time.Since(start))
	log.Printf("table %s: file=%s total=%d processed=%d skipped=%d elapsed=%s",
		entry.Table, entry.File, total, tbl.Len(), skipped, time.Since(start).Truncate(time.Millisecond))
}

// fail records a failed attempt and its metrics, then lets the run continue.
func (p *Pipeline) fail(table, sourceFile, step string, err error, start time.Time) {
	log.Printf("table %s: %s failed: %v", table, step, err)
	p.Tracker.Failure(sourceFile, err.Error())
	metrics.RecordStep(p.job, table, step, err, time.Since(start))
}

// fetch retrieves one source file fully into memory. Tables are small enough
// that buffering keeps parsing, fingerprinting, and retries simple.
func (p *Pipeline) fetch(ctx context.Context, name string) ([]byte, error) {
	rc, err := p.opener.Source(name).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return body, nil
}

// runDerivations computes and persists the derived tables. Each derivation
// and each persist is independent: a failure is logged and the remaining
// derived tables still land.
func (p *Pipeline) runDerivations(ctx context.Context, cleaned map[string]*records.Table) {
	start := time.Now()
	res := p.Engine.Derive(cleaned[usersTable], cleaned[cardsTable], cleaned[transactionsTable])

	for name, err := range res.Errs {
		log.Printf("derive %s: %v", name, err)
		metrics.RecordStep(p.job, name, "derive", err, time.Since(start))
	}

	for _, name := range []string{derive.FraudTable, derive.VIPTable, derive.BlockedTable} {
		tbl, ok := res.Tables[name]
		if !ok {
			continue
		}
		if err := p.sink.Replace(name, tbl); err != nil {
			log.Printf("derive %s: csv_sink failed: %v", name, err)
			metrics.RecordStep(p.job, name, "csv_sink", err, time.Since(start))
			continue
		}
		def := storage.InferTableDef(name, tbl)
		if _, err := p.repo.ReplaceTable(ctx, def, tbl.Columns, tableRows(tbl)); err != nil {
			log.Printf("derive %s: db_sink failed: %v", name, err)
			metrics.RecordStep(p.job, name, "db_sink", err, time.Since(start))
			continue
		}
		metrics.RecordRows(p.job, name, "derived", int64(tbl.Len()))
		metrics.RecordStep(p.job, name, "derive", nil, time.Since(start))
		log.Printf("derived %s: rows=%d", name, tbl.Len())
	}
}

// flushTracker persists the ingestion records to the retrieveinfo table and
// rewrites the audit trail file for this run.
func (p *Pipeline) flushTracker(ctx context.Context) error {
	def := retrieveInfoDef()
	if err := p.repo.EnsureTable(ctx, def); err != nil {
		return fmt.Errorf("pipeline: ensure %s: %w", tracker.TableName, err)
	}

	recs := p.Tracker.Records()
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		// The database assigns retrieve_id; skip the tracker's surrogate.
		rows = append(rows, r.RowValues()[1:])
	}
	if _, err := p.repo.AppendRows(ctx, tracker.TableName, def.InsertColumns(), rows); err != nil {
		return fmt.Errorf("pipeline: append %s: %w", tracker.TableName, err)
	}

	f, err := os.Create(p.audit)
	if err != nil {
		return fmt.Errorf("pipeline: create audit log: %w", err)
	}
	defer f.Close()
	if err := p.Tracker.WriteAudit(f); err != nil {
		return err
	}
	log.Printf("audit: file=%s records=%d", p.audit, len(recs))
	return nil
}

// retrieveInfoDef is the fixed shape of the retrieveinfo table. retrieve_id
// is database-assigned.
func retrieveInfoDef() storage.TableDef {
	return storage.TableDef{
		Name: tracker.TableName,
		Columns: []storage.ColumnDef{
			{Name: "retrieve_id", Kind: storage.KindInteger, Identity: true},
			{Name: "source_file", Kind: storage.KindText},
			{Name: "retrieved_at", Kind: storage.KindTimestamp},
			{Name: "total_rows", Kind: storage.KindInteger},
			{Name: "processed_rows", Kind: storage.KindInteger},
			{Name: "errors", Kind: storage.KindInteger},
			{Name: "notes", Kind: storage.KindText},
		},
	}
}

// tableRows materializes a table's rows aligned to its column order.
func tableRows(t *records.Table) [][]any {
	rows := make([][]any, t.Len())
	for i := range rows {
		rows[i] = t.RowValues(i)
	}
	return rows
}
