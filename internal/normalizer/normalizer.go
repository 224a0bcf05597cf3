package normalizer

import (
	"strconv"
	"strings"
	"time"

	"github.com/Sanjarbek1024/Demo-project/internal/schemamap"
	"github.com/Sanjarbek1024/Demo-project/pkg/records"
)

// Normalize produces the cleaned table for one table identifier. It applies,
// in order:
//
//  1. the schema-map rename rules ("{id}-{suffix}" → target name; unmapped
//     columns pass through unchanged),
//  2. whitespace trimming of all resulting column names,
//  3. synthesis of a leading "id" column (1-based int64 sequence) when the
//     renamed table has none,
//  4. boolean coercion of the configured boolean columns,
//  5. numeric coercion of the configured numeric columns (parse miss → 0),
//  6. timestamp coercion of every column matched by the timestamp rules
//     (parse miss → nil).
//
// Normalization is a best-effort transform: it never fails and never drops a
// row. The cleaned column order is the raw order with renames applied, with
// the synthesized "id" prepended when present.
func Normalize(id string, raw *records.Table, entry schemamap.Entry, rules TypeRules) *records.Table {
	renames := renameRules(id, entry)

	columns := make([]string, len(raw.Columns))
	for i, c := range raw.Columns {
		name := c
		if target, ok := renames[c]; ok {
			name = target
		}
		columns[i] = strings.TrimSpace(name)
	}

	out := records.NewTable(columns...)
	for _, row := range raw.Rows {
		clean := make(records.Record, len(columns)+1)
		for i, c := range raw.Columns {
			clean[columns[i]] = row[c]
		}
		out.Append(clean)
	}

	if !out.HasColumn("id") {
		out.Columns = append([]string{"id"}, out.Columns...)
		for i, row := range out.Rows {
			row["id"] = int64(i + 1)
		}
	}

	for _, col := range rules.Booleans {
		if !out.HasColumn(col) {
			continue
		}
		for _, row := range out.Rows {
			row[col] = Truthy(row[col])
		}
	}

	for _, col := range rules.Numerics {
		if !out.HasColumn(col) {
			continue
		}
		for _, row := range out.Rows {
			row[col] = ToNumber(row[col])
		}
	}

	for _, col := range out.Columns {
		if !rules.IsTimestamp(col) {
			continue
		}
		for _, row := range out.Rows {
			row[col] = ToTime(row[col], rules.Layouts)
		}
	}

	return out
}

// renameRules expands the schema-map suffix rules into full source-column
// names for the given identifier.
func renameRules(id string, entry schemamap.Entry) map[string]string {
	rules := make(map[string]string, len(entry.Columns))
	for suffix, target := range entry.Columns {
		rules[id+"-"+suffix] = target
	}
	return rules
}

// Truthy interprets v as a boolean. Empty, zero-valued, and conventional
// negative strings ("false", "f", "no", "n", "0") are false; every other
// non-nil value is true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case int64:
		return x != 0
	case int:
		return x != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		switch s {
		case "", "0", "false", "f", "no", "n":
			return false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0
		}
		return true
	}
	return true
}

// ToNumber coerces v to float64. Unparseable values, including nil, become 0;
// the value is replaced, never the row.
func ToNumber(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return 0
}

// ToTime coerces v to time.Time using the provided layouts. Values that
// cannot be parsed become nil, the null-timestamp marker.
func ToTime(v any, layouts []string) any {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return nil
}
