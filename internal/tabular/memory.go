package tabular

import (
	"context"
	"fmt"
	"sync"

	"materna-data/internal/domain"
)

// MemoryTable is an in-memory Table used by tests and single-process dev
// runs. It keeps full sheet semantics: a header row at position 1 and data
// rows from position 2.
type MemoryTable struct {
	mu      sync.RWMutex
	schemas map[string]Schema
	rows    map[string][][]string // data rows only, in insertion order
}

// NewMemoryTable creates an empty in-memory store for the given schemas.
func NewMemoryTable(schemas ...Schema) *MemoryTable {
	return &MemoryTable{
		schemas: schemaIndex(schemas),
		rows:    make(map[string][][]string),
	}
}

func (m *MemoryTable) schema(table string) (Schema, error) {
	s, ok := m.schemas[table]
	if !ok {
		return Schema{}, fmt.Errorf("unknown table %q", table)
	}
	return s, nil
}

func (m *MemoryTable) ReadAll(_ context.Context, table string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, err := m.schema(table)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(m.rows[table]))
	for _, values := range m.rows[table] {
		out = append(out, valuesToRow(s.Headers, values))
	}
	return out, nil
}

func (m *MemoryTable) Append(_ context.Context, table string, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.schema(table)
	if err != nil {
		return err
	}
	m.rows[table] = append(m.rows[table], rowToValues(s.Headers, row))
	return nil
}

func (m *MemoryTable) FindRowKey(_ context.Context, table, keyColumn, keyValue string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, err := m.schema(table)
	if err != nil {
		return 0, err
	}
	keyIdx := -1
	for i, h := range s.Headers {
		if h == keyColumn {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return 0, fmt.Errorf("unknown key column %q in table %q", keyColumn, table)
	}
	for i, values := range m.rows[table] {
		if keyIdx < len(values) && values[keyIdx] == keyValue {
			return i + 2, nil // position 1 is the header row
		}
	}
	return 0, domain.ErrNotFound
}

func (m *MemoryTable) UpdateRow(_ context.Context, table string, rowIndex int, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.schema(table)
	if err != nil {
		return err
	}
	dataIdx := rowIndex - 2
	if dataIdx < 0 || dataIdx >= len(m.rows[table]) {
		return fmt.Errorf("row %d out of range in table %q: %w", rowIndex, table, domain.ErrNotFound)
	}
	m.rows[table][dataIdx] = rowToValues(s.Headers, row)
	return nil
}
