// Package schemamap models the externally supplied schema-map document that
// drives column renaming and table naming for each table identifier.
//
// The document is a JSON object keyed by fixed-width numeric identifier
// strings ("01", "02", ...). Each entry names the target table, the source
// file, and the suffix → target column rename rules:
//
//	{
//	  "01": {
//	    "table": "users",
//	    "file": "t01.csv",
//	    "columns": { "user_id": "id", "total_balance": "total_balance" }
//	  }
//	}
//
// A Map is loaded once before any normalization and treated as immutable for
// the duration of a run; it is passed explicitly to the normalizer and the
// pipeline rather than held in package-level state.
package schemamap

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Entry describes one table identifier: its target table name, its source
// file name, and the ordered rename rules applied to raw column names of the
// form "{identifier}-{suffix}".
type Entry struct {
	Table   string            `json:"table"`
	File    string            `json:"file"`
	Columns map[string]string `json:"columns"`
}

// Map is the full schema-map document keyed by table identifier.
type Map map[string]Entry

// UnknownTableError reports a table identifier with no schema-map entry.
// This is a configuration error, distinct from a retrieval failure, and must
// never be silently skipped.
type UnknownTableError struct {
	ID string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("schemamap: no entry for table identifier %q", e.ID)
}

// Parse decodes a schema-map document from raw JSON and validates it.
func Parse(data []byte) (Map, error) {
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("schemamap: decode: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads and parses a schema-map document from a local file.
func Load(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schemamap: read %s: %w", path, err)
	}
	return Parse(data)
}

// Resolve returns the entry for the given identifier or an
// *UnknownTableError when the identifier has no entry.
func (m Map) Resolve(id string) (Entry, error) {
	e, ok := m[id]
	if !ok {
		return Entry{}, &UnknownTableError{ID: id}
	}
	return e, nil
}

// IDs returns the table identifiers in lexical order. Identifiers are
// fixed-width numeric codes, so lexical order matches numeric order.
func (m Map) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// validate rejects entries that cannot drive a normalization run: a missing
// target table name or source file name leaves the pipeline with nowhere to
// write or nothing to fetch.
func (m Map) validate() error {
	for id, e := range m {
		if strings.TrimSpace(e.Table) == "" {
			return fmt.Errorf("schemamap: entry %q: table name is required", id)
		}
		if strings.TrimSpace(e.File) == "" {
			return fmt.Errorf("schemamap: entry %q: source file name is required", id)
		}
	}
	return nil
}
