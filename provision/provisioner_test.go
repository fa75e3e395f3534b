package provision

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nishantd01/smart-backoffice/logging"
	"github.com/nishantd01/smart-backoffice/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 14, 20, 0, 0, 0, time.UTC)

func newTestProvisioner(backend Backend, binder Binder) *Provisioner {
	bkk := time.FixedZone("ICT", 7*3600)
	return New(backend, logging.Discard(), Options{
		Binder:   binder,
		Location: bkk,
		Now:      func() time.Time { return fixedNow },
	})
}

func TestDefaultCatalogShape(t *testing.T) {
	tables := DefaultCatalog()
	require.Len(t, tables, 6)

	names := make([]string, 0, len(tables))
	for _, table := range tables {
		names = append(names, table.Name)
		assert.Len(t, table.Rows, 2, table.Name)
		for _, row := range table.Rows {
			assert.Len(t, row, len(table.Header), table.Name)
		}
	}
	assert.Equal(t, []string{"ออเดอร์", "สินค้า/บริการ", "ลูกค้า", "วิเคราะห์", "สต็อก", "นัดหมาย"}, names)
}

func TestParseCatalogRejectsRaggedRows(t *testing.T) {
	_, err := ParseCatalog([]byte(`
tables:
  - key: a
    name: A
    header: [x, y]
    rows:
      - [1]
`))
	assert.ErrorContains(t, err, "row 1")

	_, err = ParseCatalog([]byte(`tables: []`))
	assert.Error(t, err)
}

func TestTitle(t *testing.T) {
	p := newTestProvisioner(NewMemoryBackend(), nil)
	// 20:00 UTC on the 14th is already the 15th in Bangkok.
	assert.Equal(t, "Template - Pet Co - 20240115", p.Title(models.LeadRecord{BusinessName: "Pet Co"}))
	assert.Equal(t, "Template - Demo - 20240115", p.Title(models.LeadRecord{}))
}

func TestProvisionCreatesSixTables(t *testing.T) {
	cases := []models.LeadRecord{
		{BusinessName: "Pet Co", Email: "a@x.com"},
		{},
		{BusinessName: strings.Repeat("x", 300), BusinessType: "other"},
	}
	for _, rec := range cases {
		backend := NewMemoryBackend()
		wb, err := newTestProvisioner(backend, nil).Provision(context.Background(), rec)
		require.NoError(t, err)
		require.NotNil(t, wb)

		all := backend.Workbooks()
		require.Len(t, all, 1)
		got := all[0]
		assert.Equal(t, wb.ID, got.ID)
		require.Len(t, got.Tables, 6)
		for _, table := range got.Tables {
			assert.NotEmpty(t, table.Header)
			assert.Len(t, table.Rows, 2)
		}
		assert.Equal(t, "ออเดอร์", got.Active)
		assert.Equal(t, models.SheetURL(wb.ID), wb.URL)
		assert.Contains(t, wb.URL, wb.ID)
	}
}

func TestProvisionSharesWithEmail(t *testing.T) {
	backend := NewMemoryBackend()
	wb, err := newTestProvisioner(backend, nil).Provision(context.Background(), models.LeadRecord{Email: "a@x.com"})
	require.NoError(t, err)
	assert.True(t, wb.Shared)
	assert.Equal(t, []string{"a@x.com"}, backend.Workbooks()[0].Editors)
}

func TestProvisionWithoutEmailSkipsShare(t *testing.T) {
	backend := NewMemoryBackend()
	wb, err := newTestProvisioner(backend, nil).Provision(context.Background(), models.LeadRecord{})
	require.NoError(t, err)
	assert.False(t, wb.Shared)
	assert.Empty(t, backend.Workbooks()[0].Editors)
}

func TestProvisionShareFailureIsSwallowed(t *testing.T) {
	backend := NewMemoryBackend()
	backend.FailShare = errors.New("invalid sharing request")

	wb, err := newTestProvisioner(backend, nil).Provision(context.Background(), models.LeadRecord{Email: "bad"})
	require.NoError(t, err)
	require.NotNil(t, wb)
	assert.False(t, wb.Shared)
}

func TestProvisionCreateFailureReturnsNil(t *testing.T) {
	backend := NewMemoryBackend()
	backend.FailCreate = errors.New("quota")

	wb, err := newTestProvisioner(backend, nil).Provision(context.Background(), models.LeadRecord{})
	assert.Nil(t, wb)
	assert.ErrorIs(t, err, backend.FailCreate)
}

func TestProvisionAddFailureReturnsNil(t *testing.T) {
	backend := NewMemoryBackend()
	backend.FailAdd = errors.New("rate limited")

	wb, err := newTestProvisioner(backend, nil).Provision(context.Background(), models.LeadRecord{})
	assert.Nil(t, wb)
	assert.ErrorIs(t, err, backend.FailAdd)
}

type stubBinder struct {
	err   error
	bound []string
}

func (s *stubBinder) Bind(_ context.Context, id string) error {
	s.bound = append(s.bound, id)
	return s.err
}

func TestProvisionBindsScript(t *testing.T) {
	binder := &stubBinder{err: errors.New("script api disabled")}
	wb, err := newTestProvisioner(NewMemoryBackend(), binder).Provision(context.Background(), models.LeadRecord{})
	require.NoError(t, err)
	assert.Equal(t, []string{wb.ID}, binder.bound)
}

func TestRenderScript(t *testing.T) {
	src, err := RenderScript(ScriptParams{NotificationEmail: "ops@example.com", DataTable: "Data"})
	require.NoError(t, err)
	assert.Contains(t, src, "const NOTIFICATION_EMAIL = 'ops@example.com';")
	assert.Contains(t, src, "const DATA_SHEET_NAME = 'Data';")
	assert.Contains(t, src, "function doPost(e)")
}
