package storage

import (
	"context"
	"time"
	"unicode"

	"github.com/tablechat/tablechat/internal/errors"
	"github.com/tablechat/tablechat/internal/sanitize"
)

// FallbackColumnName replaces source column names that are empty, purely
// punctuation, or a known placeholder emitted by the engine.
const FallbackColumnName = "value"

// Row maps a normalized column name to a scalar value.
type Row map[string]interface{}

// Result holds the rows of one query execution. Columns preserves the
// result-set column order; every Row carries exactly this key set.
type Result struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// ExecuteReadOnly runs a single already-validated SELECT statement and
// captures column names and all rows. The caller is responsible for guard
// validation; this method only executes and normalizes.
func (b *Backend) ExecuteReadOnly(ctx context.Context, query string) (*Result, error) {
	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to execute SQL query")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to get result columns")
	}

	normalized := NormalizeColumns(columns)

	result := &Result{Columns: normalized, Rows: []Row{}}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))

		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan row")
		}

		row := make(Row, len(normalized))
		for i, name := range normalized {
			row[name] = normalizeValue(values[i])
		}

		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate rows")
	}

	return result, nil
}

// NormalizeColumns rewrites ambiguous source column names to the canonical
// fallback name and resolves the duplicates that rewrite can introduce, so
// that every row keeps a stable, unique key set.
func NormalizeColumns(columns []string) []string {
	seen := make(map[string]int, len(columns))
	normalized := make([]string, len(columns))

	for i, name := range columns {
		if isPlaceholderColumn(name) {
			name = FallbackColumnName
		}

		normalized[i] = sanitize.Unique(name, seen)
	}

	return normalized
}

// isPlaceholderColumn reports whether a source column name carries no
// usable label: empty, whitespace, purely punctuation, or one of the
// placeholder names engines emit for unnamed expressions.
func isPlaceholderColumn(name string) bool {
	switch name {
	case "", "?column?", "column1":
		return true
	}

	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}

	return true
}

// normalizeValue converts driver-specific scan results to plain scalars.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return v
	}
}
