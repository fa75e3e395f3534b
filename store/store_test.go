package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nishantd01/smart-backoffice/logging"
	"github.com/nishantd01/smart-backoffice/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 15, 3, 15, 0, 0, time.UTC)

func newTestStore(backend Backend) *Store {
	bkk, _ := time.LoadLocation("Asia/Bangkok")
	return New(backend, logging.Discard(), Options{
		Location: bkk,
		Now:      func() time.Time { return fixedNow },
	})
}

func basicRecord(i int) models.LeadRecord {
	return models.LeadRecord{
		BusinessName: fmt.Sprintf("Shop %d", i),
		BusinessType: "pet",
		ContactName:  fmt.Sprintf("Contact %d", i),
		Email:        fmt.Sprintf("c%d@example.com", i),
		Phone:        "081",
		LineID:       "@line",
		Timestamp:    "2024-01-15T03:15:00.000Z",
	}
}

func TestAppendCreatesTableWithBasicHeader(t *testing.T) {
	backend := NewMemoryBackend()
	s := newTestStore(backend)

	row, err := s.Append(context.Background(), "Leads", basicRecord(1))
	require.NoError(t, err)
	assert.Equal(t, 2, row)

	rows := backend.Rows("Leads")
	require.Len(t, rows, 2)
	assert.Equal(t, toCells(BasicHeader), rows[0])
	assert.Equal(t, 8, backend.StyledWidth("Leads"))
	assert.Equal(t, []any{
		"2024-01-15T03:15:00.000Z", "Shop 1", "pet", "Contact 1", "c1@example.com", "081", "@line", "2024-01-15 10:15:00",
	}, rows[1])
}

func TestAppendNBasicRecords(t *testing.T) {
	backend := NewMemoryBackend()
	s := newTestStore(backend)
	const n = 5

	for i := 1; i <= n; i++ {
		row, err := s.Append(context.Background(), "Leads", basicRecord(i))
		require.NoError(t, err)
		assert.Equal(t, i+1, row)
	}

	rows := backend.Rows("Leads")
	require.Len(t, rows, n+1)
	for i := 1; i <= n; i++ {
		require.Len(t, rows[i], len(BasicHeader))
		assert.Equal(t, fmt.Sprintf("Shop %d", i), rows[i][1])
		assert.Equal(t, fmt.Sprintf("c%d@example.com", i), rows[i][4])
	}
}

func TestAppendPackageWidensHeaderInPlace(t *testing.T) {
	backend := NewMemoryBackend()
	s := newTestStore(backend)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		_, err := s.Append(ctx, "Leads", basicRecord(i))
		require.NoError(t, err)
	}
	before := backend.Rows("Leads")

	row, err := s.Append(ctx, "Leads", models.LeadRecord{
		BusinessType: "package",
		Package:      "basic",
		PackageName:  "BASIC",
		PackagePrice: models.NewAmount(5000),
		ContactName:  "B",
		Email:        "b@x.com",
		Timestamp:    "2024-01-15T03:15:00.000Z",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, row)

	rows := backend.Rows("Leads")
	require.Len(t, rows, 4)
	assert.Equal(t, toCells(PackageHeader), rows[0])
	assert.Equal(t, 15, backend.StyledWidth("Leads"))
	for i := 1; i <= 2; i++ {
		assert.Equal(t, before[i], rows[i][:8], "basic row %d changed", i)
	}

	pkg := rows[3]
	require.Len(t, pkg, 15)
	assert.Equal(t, "basic", pkg[8])
	assert.Equal(t, "BASIC", pkg[9])
	assert.Equal(t, 5000.0, pkg[10])
	assert.Equal(t, "", pkg[11])
	assert.Equal(t, "Pending Payment", pkg[12])
}

func TestAppendBasicAfterWideningAlignsToFirstEightColumns(t *testing.T) {
	backend := NewMemoryBackend()
	s := newTestStore(backend)
	ctx := context.Background()

	_, err := s.Append(ctx, "Leads", models.LeadRecord{Package: "pro", Timestamp: "t"})
	require.NoError(t, err)
	row, err := s.Append(ctx, "Leads", basicRecord(7))
	require.NoError(t, err)

	rows := backend.Rows("Leads")
	assert.Equal(t, 3, row)
	assert.Len(t, rows[0], 15)
	assert.Len(t, rows[2], 8)
	assert.Equal(t, "Shop 7", rows[2][1])
}

func TestAppendWideningIsOneTime(t *testing.T) {
	backend := &countingBackend{MemoryBackend: NewMemoryBackend()}
	s := newTestStore(backend)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, "Leads", models.LeadRecord{Package: "basic"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backend.headerWrites)
}

func TestAppendFillsEmptyExistingTable(t *testing.T) {
	backend := NewMemoryBackend()
	backend.tables["Leads"] = &memoryTable{}
	s := newTestStore(backend)

	row, err := s.Append(context.Background(), "Leads", basicRecord(1))
	require.NoError(t, err)
	assert.Equal(t, 2, row)
	assert.Equal(t, toCells(BasicHeader), backend.Rows("Leads")[0])
}

func TestAppendFallsBackToSubmittedTimestamp(t *testing.T) {
	rec := basicRecord(1)
	rec.Timestamp = ""
	row := BuildRow(rec, SchemaBasic, "2024-01-15 10:15:00")
	assert.Equal(t, "2024-01-15 10:15:00", row[0])
}

func TestAppendPropagatesBackendErrors(t *testing.T) {
	backend := &failingBackend{MemoryBackend: NewMemoryBackend(), err: errors.New("quota exceeded")}
	s := newTestStore(backend)

	_, err := s.Append(context.Background(), "Leads", basicRecord(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.err)
}

func TestAppendConcurrentWritersGetDistinctRows(t *testing.T) {
	backend := NewMemoryBackend()
	s := newTestStore(backend)
	const n = 20

	var wg sync.WaitGroup
	rowsSeen := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			row, err := s.Append(context.Background(), "Leads", basicRecord(i))
			if err == nil {
				rowsSeen <- row
			}
		}(i)
	}
	wg.Wait()
	close(rowsSeen)

	seen := map[int]bool{}
	for row := range rowsSeen {
		assert.False(t, seen[row], "row %d written twice", row)
		seen[row] = true
	}
	assert.Len(t, seen, n)
	assert.Len(t, backend.Rows("Leads"), n+1)
}

func TestSchemaWidenIsIdempotent(t *testing.T) {
	assert.Equal(t, SchemaPackage, SchemaBasic.Widen(SchemaPackage))
	assert.Equal(t, SchemaPackage, SchemaPackage.Widen(SchemaBasic))
	assert.Equal(t, SchemaPackage, SchemaPackage.Widen(SchemaPackage))
	assert.Equal(t, SchemaBasic, SchemaBasic.Widen(SchemaBasic))
}

func TestSchemaOf(t *testing.T) {
	assert.Equal(t, SchemaBasic, SchemaOf(BasicHeader))
	assert.Equal(t, SchemaPackage, SchemaOf(PackageHeader))
	wideNoPackage := append(BasicHeader[:8:8], "a", "b", "c", "d", "e", "f", "g")
	assert.Equal(t, SchemaBasic, SchemaOf(wideNoPackage))
	assert.Len(t, PackageHeader, 15)
	assert.Equal(t, BasicHeader, PackageHeader[:8])
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "Leads")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "Leads")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock2, err := l.Lock(context.Background(), "Leads")
	require.NoError(t, err)
	unlock2()
}

type countingBackend struct {
	*MemoryBackend
	headerWrites int
}

func (c *countingBackend) WriteHeader(ctx context.Context, table string, header []string) error {
	c.headerWrites++
	return c.MemoryBackend.WriteHeader(ctx, table, header)
}

type failingBackend struct {
	*MemoryBackend
	err error
}

func (f *failingBackend) WriteRow(context.Context, string, int, []any) error {
	return f.err
}
