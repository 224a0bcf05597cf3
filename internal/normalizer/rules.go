// Package normalizer implements the schema-driven cleaning step of the
// pipeline: column renaming, surrogate-id synthesis, and best-effort type
// coercion over raw tabular input.
package normalizer

import "strings"

// TypeRules declares which cleaned column names are coerced to which type.
// The rule set is plain data supplied by configuration rather than a naming
// heuristic baked into the code, so it can be tested and overridden on its
// own. DefaultRules reproduces the conventional banking-table set.
type TypeRules struct {
	// Booleans lists columns coerced to bool using truthy/falsy
	// interpretation of string or numeric values.
	Booleans []string `json:"booleans"`

	// Numerics lists columns coerced to float64. Values that fail to parse
	// become 0; rows are never dropped.
	Numerics []string `json:"numerics"`

	// TimestampSuffixes and TimestampContains select timestamp columns by
	// name: a column matches when its name ends with any listed suffix or
	// contains any listed substring. Unparseable values become nil.
	TimestampSuffixes []string `json:"timestamp_suffixes"`
	TimestampContains []string `json:"timestamp_contains"`

	// Layouts are the time.Parse layouts tried, in order, when coercing a
	// timestamp column.
	Layouts []string `json:"layouts"`
}

// DefaultRules returns the conventional rule set: is_vip/is_blocked booleans,
// the fixed monetary/count column set as numerics, and "_at"/"date" name
// matching for timestamps.
func DefaultRules() TypeRules {
	return TypeRules{
		Booleans: []string{"is_vip", "is_blocked"},
		Numerics: []string{
			"amount", "total_balance", "balance", "limit_amount",
			"total_transactions", "flagged_transactions", "total_amount",
		},
		TimestampSuffixes: []string{"_at"},
		TimestampContains: []string{"date"},
		Layouts: []string{
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05Z07:00",
			"2006-01-02",
			"2006/01/02",
			"02.01.2006",
		},
	}
}

// Merge overlays non-empty fields of o onto r and returns the result. It lets
// a pipeline config override part of the rule set while keeping defaults for
// the rest.
func (r TypeRules) Merge(o TypeRules) TypeRules {
	if len(o.Booleans) > 0 {
		r.Booleans = o.Booleans
	}
	if len(o.Numerics) > 0 {
		r.Numerics = o.Numerics
	}
	if len(o.TimestampSuffixes) > 0 {
		r.TimestampSuffixes = o.TimestampSuffixes
	}
	if len(o.TimestampContains) > 0 {
		r.TimestampContains = o.TimestampContains
	}
	if len(o.Layouts) > 0 {
		r.Layouts = o.Layouts
	}
	return r
}

// IsTimestamp reports whether the rules select column name as a timestamp.
func (r TypeRules) IsTimestamp(name string) bool {
	for _, s := range r.TimestampSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	for _, s := range r.TimestampContains {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}
