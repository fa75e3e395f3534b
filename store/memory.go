package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryBackend keeps tables in process memory. Used for tests and the
// "memory" store driver.
type MemoryBackend struct {
	mu     sync.Mutex
	tables map[string]*memoryTable
}

type memoryTable struct {
	rows   [][]any
	styled int
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tables: make(map[string]*memoryTable)}
}

func (m *MemoryBackend) Header(_ context.Context, table string) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return nil, false, nil
	}
	if len(t.rows) == 0 {
		return []string{}, true, nil
	}
	header := make([]string, 0, len(t.rows[0]))
	for _, v := range t.rows[0] {
		header = append(header, fmt.Sprint(v))
	}
	return header, true, nil
}

func (m *MemoryBackend) CreateTable(_ context.Context, table string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[table]; ok {
		return fmt.Errorf("table %q already exists", table)
	}
	m.tables[table] = &memoryTable{rows: [][]any{toCells(header)}}
	return nil
}

func (m *MemoryBackend) WriteHeader(_ context.Context, table string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("table %q not found", table)
	}
	cells := toCells(header)
	if len(t.rows) == 0 {
		t.rows = append(t.rows, cells)
		return nil
	}
	t.rows[0] = overlay(t.rows[0], cells)
	return nil
}

func (m *MemoryBackend) StyleHeader(_ context.Context, table string, width int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("table %q not found", table)
	}
	t.styled = width
	return nil
}

func (m *MemoryBackend) LastRow(_ context.Context, table string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return 0, fmt.Errorf("table %q not found", table)
	}
	return len(t.rows), nil
}

func (m *MemoryBackend) WriteRow(_ context.Context, table string, row int, values []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("table %q not found", table)
	}
	if row < 1 {
		return fmt.Errorf("invalid row %d", row)
	}
	for len(t.rows) < row {
		t.rows = append(t.rows, nil)
	}
	t.rows[row-1] = overlay(t.rows[row-1], values)
	return nil
}

// Rows returns a copy of every row of table, header included.
func (m *MemoryBackend) Rows(table string) [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return nil
	}
	out := make([][]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = slices.Clone(r)
	}
	return out
}

// StyledWidth is the column count of the last header styling applied to table.
func (m *MemoryBackend) StyledWidth(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tables[table]; ok {
		return t.styled
	}
	return 0
}

// overlay writes values over the leading cells of row, keeping any cells beyond.
func overlay(row, values []any) []any {
	if len(row) < len(values) {
		grown := make([]any, len(values))
		copy(grown, row)
		row = grown
	}
	copy(row, values)
	return row
}

func toCells(header []string) []any {
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	return cells
}
