package bridge

import (
	"strings"
	"time"
)

// Result is the outcome of one statement that produced column descriptors:
// the column names in select order plus every row, fetched eagerly. A
// statement with no column descriptors (plain DML/DDL) yields a nil *Result
// instead, so callers can distinguish "no result applicable" from a SELECT
// that matched zero rows.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Legacy projects every row of the result into the legacy row shape.
func (r *Result) Legacy() []Row {
	rows := make([]Row, len(r.Rows))
	for i, vals := range r.Rows {
		rows[i] = ProjectRow(r.Columns, vals)
	}
	return rows
}

// Row is a case-insensitive view over one result row, matching the field
// lookup behavior legacy callers were written against. Exactly one entry
// exists per distinct lower-cased column name.
type Row struct {
	values map[string]any
	names  []string
}

// ProjectRow builds a Row from positionally aligned column names and values.
// Timestamps are rendered as strings, as the legacy result shape did.
func ProjectRow(columns []string, values []any) Row {
	m := make(map[string]any, len(columns))
	for i, c := range columns {
		v := values[i]
		if t, ok := v.(time.Time); ok {
			v = t.Format("2006-01-02 15:04:05")
		}
		m[strings.ToLower(c)] = v
	}
	return Row{values: m, names: append([]string(nil), columns...)}
}

// Get resolves key case-insensitively. The single legacy alias applies: a
// lookup for "offset" resolves to the renamed cmOffset column when present.
func (r Row) Get(key string) (any, error) {
	k := strings.ToLower(key)
	if v, ok := r.values[k]; ok {
		return v, nil
	}
	if k == "offset" {
		if v, ok := r.values["cmoffset"]; ok {
			return v, nil
		}
	}
	return nil, &KeyError{Key: key, Available: r.names}
}

// Has reports whether Get would resolve key.
func (r Row) Has(key string) bool {
	_, err := r.Get(key)
	return err == nil
}

// Names returns the column names in their original order and casing.
func (r Row) Names() []string { return r.names }
