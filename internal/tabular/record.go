// Package tabular loads batch files into ordered, column-addressable records.
// The reconciler core only depends on the Record shape, not on any file format.
package tabular

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Record is one row of a batch file: a mapping of normalized (lower-case,
// trimmed) column names to string values, plus its 1-based source row.
type Record struct {
	Row    int
	Fields map[string]string
}

// Get returns the trimmed value of the named column. Lookup is
// case-insensitive; a missing column yields the empty string.
func (r Record) Get(name string) string {
	return strings.TrimSpace(r.Fields[normalizeHeader(name)])
}

// Has reports whether the column exists with a non-empty value.
func (r Record) Has(name string) bool {
	return r.Get(name) != ""
}

func normalizeHeader(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func buildRecord(row int, headers, cells []string) Record {
	fields := make(map[string]string, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		value := ""
		if i < len(cells) {
			value = cells[i]
		}
		fields[h] = value
	}
	return Record{Row: row, Fields: fields}
}

func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for i, h := range raw {
		headers[i] = normalizeHeader(h)
	}
	return headers
}

// Load picks a loader from the file extension (.csv, .xlsx, .xlsm).
func Load(path, sheet string) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, sheet)
	default:
		return nil, fmt.Errorf("unsupported batch file extension %q", filepath.Ext(path))
	}
}
