package db

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := "UPDATE t SET a = ? WHERE b = ? AND c = ?"
	assert.Equal(t, "UPDATE t SET a = $1 WHERE b = $2 AND c = $3", Rebind(Postgres, q))
	assert.Equal(t, q, Rebind(SQLite, q))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:data.db?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", sqliteDSN("data.db"))
	assert.Contains(t, sqliteDSN("file:x.db?cache=shared"), "cache=shared&_pragma=")
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect("mysql"), "dsn")
	assert.ErrorContains(t, err, "unsupported")

	_, err = Open(context.Background(), SQLite, "  ")
	assert.ErrorContains(t, err, "empty")
}

func TestApplyMigrationsInOrder(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, SQLite, ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	files := fstest.MapFS{
		"002_seed.sql":  {Data: []byte("INSERT INTO things (name) VALUES ('a');")},
		"001_table.sql": {Data: []byte("CREATE TABLE things (name TEXT);")},
		"README.md":     {Data: []byte("ignored")},
	}
	require.NoError(t, ApplyMigrations(ctx, conn, files))

	var count int
	require.NoError(t, conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM things").Scan(&count))
	assert.Equal(t, 1, count)
}
