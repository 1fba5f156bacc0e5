// Package tabular provides a generic row/column addressed table store with
// interchangeable backends (remote spreadsheet, local workbook, Postgres,
// in-memory) plus a time-boxed read-through cache. Tables carry a fixed
// header row; rows are addressed by 1-based position where position 1 is
// the header.
package tabular

import (
	"context"
	"fmt"

	"materna-data/internal/domain"
)

// Row is one data row keyed by header name. Missing trailing cells read as
// empty strings.
type Row = map[string]string

// Schema declares a table's name, canonical header order and key column.
type Schema struct {
	Name    string
	Headers []string
	Key     string
}

// Table is the generic tabular store contract. Implementations must write
// the canonical header row before the first data write on an empty table,
// and must surface remote failures as domain.ErrStoreUnavailable without
// retrying internally.
type Table interface {
	// ReadAll returns every data row (header excluded), keyed by header.
	ReadAll(ctx context.Context, table string) ([]Row, error)

	// Append inserts one row after the last data row, in header order.
	Append(ctx context.Context, table string, row Row) error

	// FindRowKey scans keyColumn top to bottom for an exact match and
	// returns the 1-based sheet position of the first hit (data rows start
	// at 2). A miss returns domain.ErrNotFound.
	FindRowKey(ctx context.Context, table, keyColumn, keyValue string) (int, error)

	// UpdateRow overwrites the full row at the given 1-based position.
	UpdateRow(ctx context.Context, table string, rowIndex int, row Row) error
}

// Invalidator is implemented by caching layers that must be told about
// out-of-band writes.
type Invalidator interface {
	Invalidate(ctx context.Context, table string)
}

// ColumnLabel converts a 1-based column index to its spreadsheet-style
// label (1→"A", 26→"Z", 27→"AA").
func ColumnLabel(n int) string {
	label := ""
	for n > 0 {
		n--
		label = string(rune('A'+n%26)) + label
		n /= 26
	}
	return label
}

// rowToValues flattens a header-keyed row into header order.
func rowToValues(headers []string, row Row) []string {
	values := make([]string, len(headers))
	for i, h := range headers {
		values[i] = row[h]
	}
	return values
}

// valuesToRow zips a value slice with the header, padding missing trailing
// cells with empty strings.
func valuesToRow(headers []string, values []string) Row {
	row := make(Row, len(headers))
	for i, h := range headers {
		if i < len(values) {
			row[h] = values[i]
		} else {
			row[h] = ""
		}
	}
	return row
}

// storeUnavailable wraps a remote failure in domain.ErrStoreUnavailable.
func storeUnavailable(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), domain.ErrStoreUnavailable)
}

// domainNotFound reports a failed key lookup.
func domainNotFound(table, key string) error {
	return fmt.Errorf("no row with key %q in table %q: %w", key, table, domain.ErrNotFound)
}

// schemaIndex builds a name→Schema lookup and is shared by all backends.
func schemaIndex(schemas []Schema) map[string]Schema {
	idx := make(map[string]Schema, len(schemas))
	for _, s := range schemas {
		idx[s.Name] = s
	}
	return idx
}
