package storage

import (
	"fmt"
	"time"

	"github.com/Sanjarbek1024/Demo-project/pkg/records"
)

// ColumnKind is a backend-agnostic column type. Backends map kinds onto their
// own SQL type names when rendering CREATE TABLE statements.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInteger
	KindReal
	KindBool
	KindTimestamp
)

// String returns the generic kind name, mainly for error messages and tests.
func (k ColumnKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	default:
		return "text"
	}
}

// ColumnDef describes one column of a table definition.
type ColumnDef struct {
	Name string
	Kind ColumnKind

	// Identity marks a database-assigned auto-incrementing surrogate key.
	// Identity columns are excluded from bulk inserts.
	Identity bool
}

// TableDef holds a table name and its ordered column definitions.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// InferTableDef derives a TableDef from a records table by scanning each
// column for its first non-nil value. Columns with no non-nil value fall back
// to text; a nil slot can hold any eventual value and text round-trips
// everything.
func InferTableDef(name string, t *records.Table) TableDef {
	def := TableDef{Name: name, Columns: make([]ColumnDef, len(t.Columns))}
	for i, col := range t.Columns {
		kind := KindText
		for _, row := range t.Rows {
			v := row[col]
			if v == nil {
				continue
			}
			kind = kindOf(v)
			break
		}
		def.Columns[i] = ColumnDef{Name: col, Kind: kind}
	}
	return def
}

func kindOf(v any) ColumnKind {
	switch v.(type) {
	case bool:
		return KindBool
	case int64, int:
		return KindInteger
	case float64:
		return KindReal
	case time.Time:
		return KindTimestamp
	default:
		return KindText
	}
}

// Validate rejects definitions that cannot be rendered: empty table name or
// no columns.
func (d TableDef) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("storage: table name must not be empty")
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("storage: table %s: at least one column is required", d.Name)
	}
	for _, c := range d.Columns {
		if c.Name == "" {
			return fmt.Errorf("storage: table %s: column with empty name", d.Name)
		}
	}
	return nil
}

// InsertColumns returns the definition's column names excluding identity
// columns, in order; this is the column list bulk inserts should use.
func (d TableDef) InsertColumns() []string {
	out := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if c.Identity {
			continue
		}
		out = append(out, c.Name)
	}
	return out
}
