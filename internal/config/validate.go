// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind", "tables[2]").
// Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
//
// Example:
//
//	p, err := config.Load(path)
//	if err != nil { ... }
//	issues := config.ValidatePipeline(p)
//	for _, iss := range issues {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; the default job name will be used for metrics labeling",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateSchemaMap(p.SchemaMap)...)
	issues = append(issues, validateTables(p.Tables)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateStorage(p.Storage)...)

	return issues
}

// validateSource validates Source configuration.
func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
		return issues
	}

	switch s.Kind {
	case "http":
		if strings.TrimSpace(s.HTTP.BaseURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.base_url",
				Message:  "http source requires a non-empty base_url",
			})
		}
		if s.HTTP.MaxRetries < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.max_retries",
				Message:  "max_retries must not be negative",
			})
		}
		if s.HTTP.TimeoutSeconds < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.timeout_seconds",
				Message:  "timeout_seconds must not be negative",
			})
		}
	case "file":
		if strings.TrimSpace(s.File.Dir) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.dir",
				Message:  "file source requires a non-empty dir",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q; expected \"http\" or \"file\"", s.Kind),
		})
	}

	return issues
}

// validateSchemaMap checks that exactly one schema-map location is configured.
func validateSchemaMap(r SchemaMapRef) []Issue {
	var issues []Issue

	url := strings.TrimSpace(r.URL)
	path := strings.TrimSpace(r.Path)
	switch {
	case url == "" && path == "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "schema_map",
			Message:  "one of schema_map.url or schema_map.path is required",
		})
	case url != "" && path != "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "schema_map",
			Message:  "schema_map.url and schema_map.path are mutually exclusive",
		})
	}

	return issues
}

// validateTables checks the ordered table identifier list.
func validateTables(ids []string) []Issue {
	var issues []Issue

	if len(ids) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "tables",
			Message:  "tables must list at least one table identifier",
		})
		return issues
	}

	seen := make(map[string]int, len(ids))
	for i, id := range ids {
		path := fmt.Sprintf("tables[%d]", i)
		if strings.TrimSpace(id) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  "table identifier must not be empty",
			})
			continue
		}
		if prev, ok := seen[id]; ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  fmt.Sprintf("table %q already listed at tables[%d]; it will be processed twice", id, prev),
			})
			continue
		}
		seen[id] = i
	}

	return issues
}

// validateParser validates parser configuration.
func validateParser(p ParserOptions) []Issue {
	var issues []Issue

	if p.Comma != "" && utf8.RuneCountInString(p.Comma) != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.comma",
			Message:  fmt.Sprintf("comma must be a single character, got %q", p.Comma),
		})
	}

	return issues
}

// validateStorage validates the database sink configuration.
func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn must not be empty",
		})
	}

	return issues
}
