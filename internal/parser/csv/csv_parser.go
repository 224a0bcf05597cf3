// Package csv parses raw source files into ordered record tables. Header
// order is preserved because the cleaned table's column order is defined as
// the raw order with renames applied.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Sanjarbek1024/Demo-project/pkg/records"
)

// Options configures the parser. Zero values give a comma-separated file with
// a header row and no field trimming.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune

	// TrimSpace trims leading/trailing space from every field value.
	TrimSpace bool

	// FoldHeaders strips diacritics from header names (e.g. "Kód" → "Kod")
	// in addition to the always-applied BOM strip and whitespace trim.
	// Source exports occasionally carry localized header text; folding keeps
	// the schema-map suffix matching byte-exact.
	FoldHeaders bool
}

// Parser parses CSV input according to Options. A Parser is reusable across
// inputs but not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// skippedLogLimit caps per-file soft-fail log lines.
const skippedLogLimit = 20

// Parse consumes CSV records from r and returns the parsed table along with
// the number of rows skipped due to parse errors or width mismatches. The
// first row is always treated as the header. Empty cells decode to nil.
func (p *Parser) Parse(r io.Reader) (*records.Table, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	headers := p.normalizeHeaders(h)

	out := records.NewTable(headers...)
	var skipped int

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if skipped < skippedLogLimit {
				log.Printf("csv: skipping row %d: %v", line, err)
			}
			skipped++
			continue
		}
		if len(row) != len(headers) {
			if skipped < skippedLogLimit {
				log.Printf("csv: skipping row %d: expected %d fields, got %d", line, len(headers), len(row))
			}
			skipped++
			continue
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[headers[i]] = emptyToNil(val)
		}
		out.Append(rec)
	}

	return out, skipped, nil
}

// normalizeHeaders strips the UTF-8 BOM from the first cell, trims incidental
// whitespace, and optionally folds diacritics.
func (p *Parser) normalizeHeaders(h []string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		if i == 0 {
			col = strings.TrimPrefix(col, utf8BOM)
		}
		col = strings.TrimSpace(col)
		if p.opt.FoldHeaders {
			col = foldDiacritics(col)
		}
		res[i] = col
	}
	return res
}

// foldDiacritics removes combining marks: NFD decomposition, drop the marks,
// recompose.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// emptyToNil converts an empty string to nil; other values pass through.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
