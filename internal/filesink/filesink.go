// Package filesink persists cleaned and derived tables as CSV files in a
// local directory, side by side with the database sink. Each write fully
// replaces the previous file via a write-then-rename swap, so readers never
// observe a half-written table.
package filesink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Sanjarbek1024/Demo-project/pkg/records"
)

// Sink writes tables into a directory as "<table>.csv".
type Sink struct {
	dir string
}

// New creates the directory when needed and returns a Sink bound to it.
func New(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filesink: mkdir %s: %w", dir, err)
	}
	return &Sink{dir: dir}, nil
}

// Dir returns the sink directory.
func (s *Sink) Dir() string { return s.dir }

// Replace writes the table to "<dir>/<table>.csv", replacing any previous
// version. The file is staged under a temporary name and renamed into place.
func (s *Sink) Replace(table string, t *records.Table) error {
	tmp, err := os.CreateTemp(s.dir, table+".*.tmp")
	if err != nil {
		return fmt.Errorf("filesink: stage %s: %w", table, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Columns); err != nil {
		tmp.Close()
		return fmt.Errorf("filesink: write header for %s: %w", table, err)
	}
	for i := range t.Rows {
		row := make([]string, len(t.Columns))
		for j, v := range t.RowValues(i) {
			row[j] = formatValue(v)
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("filesink: write row for %s: %w", table, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("filesink: flush %s: %w", table, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filesink: close %s: %w", table, err)
	}

	final := filepath.Join(s.dir, table+".csv")
	if err := os.Rename(tmp.Name(), final); err != nil {
		return fmt.Errorf("filesink: publish %s: %w", table, err)
	}
	return nil
}

// formatValue renders a cell: nil becomes the empty cell, timestamps are
// RFC3339, floats drop their trailing zeros.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
