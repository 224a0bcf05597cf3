// Package config defines the canonical, JSON-serializable configuration model
// for the ingestion application. It is intentionally small and explicit so
// that run configurations can be loaded from disk and passed through the
// program without additional glue code.
//
// Example (trimmed):
//
//	{
//	  "job": "banking_ingest",
//	  "source":     { "kind": "http", "http": { "base_url": "https://.../files_final" } },
//	  "schema_map": { "url": "https://.../column_table_map.json" },
//	  "tables":     ["01", "02", "03", "04", "05", "07"],
//	  "storage":    { "kind": "mssql", "dsn": "sqlserver://...?database=BankingETL" },
//	  "cleaned_dir": "cleaned_data_csv",
//	  "audit_log":   "retrieveinfo_log.txt"
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Sanjarbek1024/Demo-project/internal/normalizer"
)

// Pipeline describes one full ingestion run. It is the top-level object
// decoded from a run configuration file.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job"`

	// Source describes where the per-table flat files come from.
	Source Source `json:"source"`

	// SchemaMap locates the schema-map document. Exactly one of URL or Path
	// must be set.
	SchemaMap SchemaMapRef `json:"schema_map"`

	// Tables lists the table identifiers to process, in run order. Every
	// identifier must have a schema-map entry.
	Tables []string `json:"tables"`

	// Parser configures the CSV parser.
	Parser ParserOptions `json:"parser"`

	// Rules optionally overrides parts of the default type-coercion rule set.
	// Empty fields keep their defaults.
	Rules normalizer.TypeRules `json:"rules"`

	// Storage selects and configures the database sink.
	Storage Storage `json:"storage"`

	// CleanedDir is the directory for the side-by-side CSV sink.
	CleanedDir string `json:"cleaned_dir"`

	// AuditLog is the path of the human-readable audit trail.
	AuditLog string `json:"audit_log"`
}

// Source identifies where raw files are retrieved from.
type Source struct {
	// Kind selects the source implementation: "http" or "file".
	Kind string `json:"kind"`

	// HTTP carries options for the "http" source kind.
	HTTP SourceHTTP `json:"http"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	// BaseURL is joined with each schema-map file name to form download URLs.
	BaseURL string `json:"base_url"`

	// MaxRetries bounds retry attempts per download. Zero keeps the client
	// default.
	MaxRetries int `json:"max_retries"`

	// TimeoutSeconds bounds each HTTP request. Zero keeps the client default.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Dir is the local directory containing the source files.
	Dir string `json:"dir"`
}

// SchemaMapRef locates the schema-map document.
type SchemaMapRef struct {
	URL  string `json:"url,omitempty"`
	Path string `json:"path,omitempty"`
}

// ParserOptions configures CSV parsing.
type ParserOptions struct {
	// Comma is the field delimiter as a one-character string; "," when empty.
	Comma string `json:"comma"`

	// TrimSpace trims leading/trailing space from field values.
	TrimSpace bool `json:"trim_space"`

	// FoldHeaders strips diacritics from header names.
	FoldHeaders bool `json:"fold_headers"`
}

// CommaRune returns the delimiter as a rune, defaulting to ','.
func (p ParserOptions) CommaRune() rune {
	if p.Comma == "" {
		return ','
	}
	return []rune(p.Comma)[0]
}

// Storage selects the sink used to persist cleaned tables.
type Storage struct {
	// Kind selects the backend: "mssql", "postgres", "mysql", or "sqlite".
	Kind string `json:"kind"`

	// DSN is the backend-specific connection string.
	DSN string `json:"dsn"`
}

// Defaults fills zero-valued optional fields with the shipped defaults.
func (p *Pipeline) Defaults() {
	if p.Job == "" {
		p.Job = "banking_ingest"
	}
	if p.CleanedDir == "" {
		p.CleanedDir = "cleaned_data_csv"
	}
	if p.AuditLog == "" {
		p.AuditLog = "retrieveinfo_log.txt"
	}
}

// Load reads and decodes a Pipeline from a JSON file.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	f, err := os.Open(path)
	if err != nil {
		return p, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return p, nil
}
