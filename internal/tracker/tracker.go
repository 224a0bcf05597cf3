// Package tracker records the outcome of every source-file processing
// attempt: row counts, error state, and a free-text note. Records are
// append-only for the lifetime of a run and are flushed both to the
// retrieveinfo database table and to a human-readable audit trail.
package tracker

import (
	"fmt"
	"io"
	"time"
)

// TableName is the database table holding ingestion records.
const TableName = "retrieveinfo"

// Record describes one processing attempt. ID is the auto-incrementing
// surrogate key assigned by the Tracker in append order. Errors is 0 or 1 per
// attempt; the pipeline does not count per-row errors.
type Record struct {
	ID            int
	SourceFile    string
	RetrievedAt   time.Time
	TotalRows     int
	ProcessedRows int
	Errors        int
	Notes         string
}

// Tracker accumulates ingestion records. It is append-only: records are
// never mutated or removed once added. The zero value is ready to use with
// the wall clock; set Now to pin timestamps in tests.
type Tracker struct {
	Now  func() time.Time
	recs []Record
}

// New returns a Tracker using the wall clock.
func New() *Tracker { return &Tracker{Now: time.Now} }

// Success appends a record for a source that was fetched and normalized.
func (t *Tracker) Success(sourceFile string, totalRows, processedRows int, notes string) Record {
	return t.append(sourceFile, totalRows, processedRows, 0, notes)
}

// Failure appends a record for a source that could not be processed at all.
// Row counts are zero and the error count is one, per attempt.
func (t *Tracker) Failure(sourceFile, reason string) Record {
	return t.append(sourceFile, 0, 0, 1, reason)
}

func (t *Tracker) append(sourceFile string, total, processed, errs int, notes string) Record {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	rec := Record{
		ID:            len(t.recs) + 1,
		SourceFile:    sourceFile,
		RetrievedAt:   now(),
		TotalRows:     total,
		ProcessedRows: processed,
		Errors:        errs,
		Notes:         notes,
	}
	t.recs = append(t.recs, rec)
	return rec
}

// Records returns a copy of the accumulated records in append order.
func (t *Tracker) Records() []Record {
	out := make([]Record, len(t.recs))
	copy(out, t.recs)
	return out
}

// Len returns the number of accumulated records.
func (t *Tracker) Len() int { return len(t.recs) }

// Columns returns the retrieveinfo column order used by both the database
// sink and the audit trail.
func Columns() []string {
	return []string{"retrieve_id", "source_file", "retrieved_at", "total_rows", "processed_rows", "errors", "notes"}
}

// RowValues returns the record's values aligned to Columns().
func (r Record) RowValues() []any {
	return []any{int64(r.ID), r.SourceFile, r.RetrievedAt, int64(r.TotalRows), int64(r.ProcessedRows), int64(r.Errors), r.Notes}
}

// WriteAudit writes the audit trail to w: a header line followed by one line
// per record, in append order, with the column order
// source_file,retrieved_at,total_rows,processed_rows,errors,notes.
func (t *Tracker) WriteAudit(w io.Writer) error {
	if _, err := io.WriteString(w, "source_file,retrieved_at,total_rows,processed_rows,errors,notes\n"); err != nil {
		return fmt.Errorf("tracker: write audit header: %w", err)
	}
	for _, r := range t.recs {
		line := fmt.Sprintf("%s,%s,%d,%d,%d,%s\n",
			r.SourceFile,
			r.RetrievedAt.Format("2006-01-02 15:04:05"),
			r.TotalRows,
			r.ProcessedRows,
			r.Errors,
			r.Notes,
		)
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("tracker: write audit record: %w", err)
		}
	}
	return nil
}
