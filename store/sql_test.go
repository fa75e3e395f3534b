package store

import (
	"context"
	"testing"

	"github.com/nishantd01/smart-backoffice/db"
	"github.com/nishantd01/smart-backoffice/migrations"
	"github.com/nishantd01/smart-backoffice/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteBackend(t *testing.T) *SQLBackend {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, db.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.ApplyMigrations(ctx, conn, migrations.Files))
	return NewSQLBackend(conn, db.SQLite)
}

func TestSQLBackendAppendAndWiden(t *testing.T) {
	backend := newSQLiteBackend(t)
	s := newTestStore(backend)
	ctx := context.Background()

	row, err := s.Append(ctx, "Leads", basicRecord(1))
	require.NoError(t, err)
	assert.Equal(t, 2, row)

	row, err = s.Append(ctx, "Leads", models.LeadRecord{Package: "basic", PackagePrice: models.NewAmount(5000)})
	require.NoError(t, err)
	assert.Equal(t, 3, row)

	header, ok, err := backend.Header(ctx, "Leads")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PackageHeader, header)

	rows, err := backend.Rows(ctx, "Leads")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Shop 1", rows[0][1])
	assert.Len(t, rows[1], 15)
	assert.Equal(t, 5000.0, rows[1][10])
	assert.Equal(t, "Pending Payment", rows[1][12])
}

func TestSQLBackendMissingTable(t *testing.T) {
	backend := newSQLiteBackend(t)
	ctx := context.Background()

	_, ok, err := backend.Header(ctx, "Nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = backend.LastRow(ctx, "Nope")
	assert.Error(t, err)
	assert.Error(t, backend.WriteHeader(ctx, "Nope", BasicHeader))
}
