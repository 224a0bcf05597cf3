// Package records defines the in-memory tabular model shared by every stage
// of the pipeline: a Record is one row keyed by column name, and a Table is
// an ordered sequence of records together with a deterministic column order.
//
// Values held in a Record are restricted by convention to the types produced
// by the parser and normalizer: nil, string, bool, int64, float64, and
// time.Time. The typed accessors below perform the minimal conversions needed
// by downstream consumers (derivation rules, sinks) and report whether the
// value was usable.
package records

import "time"

// Record is a single row keyed by column name.
type Record map[string]any

// Table is an ordered set of records. Columns fixes the column order for
// sinks and joins; every Record is expected to hold a value (possibly nil)
// for each listed column.
type Table struct {
	Columns []string
	Rows    []Record
}

// NewTable returns an empty table with the given column order.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

// HasColumn reports whether name is part of the table's column order. A nil
// table has no columns.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Append adds a record to the table.
func (t *Table) Append(r Record) { t.Rows = append(t.Rows, r) }

// Len returns the number of rows. A nil table has zero rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// RowValues returns the values of row i aligned to the table's column order,
// suitable for positional sinks (CSV writers, SQL bulk inserts).
func (t *Table) RowValues(i int) []any {
	out := make([]any, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = t.Rows[i][c]
	}
	return out
}

// Float returns the value of field as a float64. Numeric types convert
// directly; every other type (including strings) reports ok=false.
func (r Record) Float(field string) (float64, bool) {
	switch v := r[field].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Int returns the value of field as an int64, truncating float64 values.
func (r Record) Int(field string) (int64, bool) {
	switch v := r[field].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// Bool returns the value of field when it is a bool.
func (r Record) Bool(field string) (bool, bool) {
	v, ok := r[field].(bool)
	return v, ok
}

// Time returns the value of field when it is a time.Time.
func (r Record) Time(field string) (time.Time, bool) {
	v, ok := r[field].(time.Time)
	return v, ok
}

// String returns the value of field when it is a string.
func (r Record) String(field string) (string, bool) {
	v, ok := r[field].(string)
	return v, ok
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
