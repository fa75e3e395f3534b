package provision

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/nishantd01/smart-backoffice/models"
)

// MemoryWorkbook is a workbook held by MemoryBackend.
type MemoryWorkbook struct {
	ID      string
	Title   string
	Tables  []models.TableTemplate
	Active  string
	Editors []string
}

// MemoryBackend provisions workbooks in process memory. The Fail* fields
// inject errors for tests.
type MemoryBackend struct {
	FailCreate error
	FailAdd    error
	FailShare  error

	mu        sync.Mutex
	workbooks map[string]*MemoryWorkbook
	order     []string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{workbooks: make(map[string]*MemoryWorkbook)}
}

func (m *MemoryBackend) CreateWorkbook(_ context.Context, title string) (string, error) {
	if m.FailCreate != nil {
		return "", m.FailCreate
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.workbooks[id] = &MemoryWorkbook{
		ID:     id,
		Title:  title,
		Tables: []models.TableTemplate{{Name: "Sheet1"}},
		Active: "Sheet1",
	}
	m.order = append(m.order, id)
	return id, nil
}

func (m *MemoryBackend) AddTable(_ context.Context, workbookID string, table models.TableTemplate) error {
	if m.FailAdd != nil {
		return m.FailAdd
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	wb, err := m.get(workbookID)
	if err != nil {
		return err
	}
	for _, t := range wb.Tables {
		if t.Name == table.Name {
			return fmt.Errorf("table %q already exists", table.Name)
		}
	}
	wb.Tables = append(wb.Tables, table)
	return nil
}

func (m *MemoryBackend) RemoveTablesExcept(_ context.Context, workbookID string, keep []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wb, err := m.get(workbookID)
	if err != nil {
		return err
	}
	wb.Tables = slices.DeleteFunc(wb.Tables, func(t models.TableTemplate) bool {
		return !slices.Contains(keep, t.Name)
	})
	if len(wb.Tables) == 0 {
		return fmt.Errorf("workbook %s would have no tables", workbookID)
	}
	return nil
}

func (m *MemoryBackend) Activate(_ context.Context, workbookID, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wb, err := m.get(workbookID)
	if err != nil {
		return err
	}
	wb.Active = table
	return nil
}

func (m *MemoryBackend) GrantEdit(_ context.Context, workbookID, email string) error {
	if m.FailShare != nil {
		return m.FailShare
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	wb, err := m.get(workbookID)
	if err != nil {
		return err
	}
	wb.Editors = append(wb.Editors, email)
	return nil
}

// Workbooks returns copies of every workbook created so far, oldest first.
func (m *MemoryBackend) Workbooks() []MemoryWorkbook {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MemoryWorkbook, 0, len(m.order))
	for _, id := range m.order {
		wb := *m.workbooks[id]
		wb.Tables = slices.Clone(wb.Tables)
		wb.Editors = slices.Clone(wb.Editors)
		out = append(out, wb)
	}
	return out
}

func (m *MemoryBackend) get(id string) (*MemoryWorkbook, error) {
	wb, ok := m.workbooks[id]
	if !ok {
		return nil, fmt.Errorf("workbook %s not found", id)
	}
	return wb, nil
}
