package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nishantd01/smart-backoffice/db"
)

// SQLBackend mirrors the table model onto two relational tables, one row of
// cells per JSON document. Works on Postgres and SQLite.
type SQLBackend struct {
	conn    *sql.DB
	dialect db.Dialect
}

// NewSQLBackend wraps a migrated connection.
func NewSQLBackend(conn *sql.DB, dialect db.Dialect) *SQLBackend {
	return &SQLBackend{conn: conn, dialect: dialect}
}

func (b *SQLBackend) q(query string) string {
	return db.Rebind(b.dialect, query)
}

func (b *SQLBackend) Header(ctx context.Context, table string) ([]string, bool, error) {
	var raw string
	err := b.conn.QueryRowContext(ctx, b.q(`SELECT header FROM sheet_tables WHERE name = ?`), table).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	header := []string{}
	if err := json.Unmarshal([]byte(raw), &header); err != nil {
		return nil, true, fmt.Errorf("decode header of %s: %w", table, err)
	}
	return header, true, nil
}

func (b *SQLBackend) CreateTable(ctx context.Context, table string, header []string) error {
	raw, err := json.Marshal(header)
	if err != nil {
		return err
	}
	_, err = b.conn.ExecContext(ctx, b.q(`INSERT INTO sheet_tables (name, header) VALUES (?, ?)`), table, string(raw))
	return err
}

func (b *SQLBackend) WriteHeader(ctx context.Context, table string, header []string) error {
	raw, err := json.Marshal(header)
	if err != nil {
		return err
	}
	res, err := b.conn.ExecContext(ctx, b.q(`UPDATE sheet_tables SET header = ? WHERE name = ?`), string(raw), table)
	if err != nil {
		return err
	}
	return requireOne(res, table)
}

func (b *SQLBackend) StyleHeader(ctx context.Context, table string, width int) error {
	res, err := b.conn.ExecContext(ctx, b.q(`UPDATE sheet_tables SET styled_width = ? WHERE name = ?`), width, table)
	if err != nil {
		return err
	}
	return requireOne(res, table)
}

func (b *SQLBackend) LastRow(ctx context.Context, table string) (int, error) {
	header, ok, err := b.Header(ctx, table)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("table %q not found", table)
	}

	var last sql.NullInt64
	if err := b.conn.QueryRowContext(ctx, b.q(`SELECT MAX(row_index) FROM sheet_rows WHERE table_name = ?`), table).Scan(&last); err != nil {
		return 0, err
	}
	if last.Valid {
		return int(last.Int64), nil
	}
	if len(header) > 0 {
		return 1, nil
	}
	return 0, nil
}

func (b *SQLBackend) WriteRow(ctx context.Context, table string, row int, values []any) error {
	if row < 1 {
		return fmt.Errorf("invalid row %d", row)
	}
	if row == 1 {
		header := make([]string, len(values))
		for i, v := range values {
			header[i] = fmt.Sprint(v)
		}
		return b.WriteHeader(ctx, table, header)
	}

	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	_, err = b.conn.ExecContext(ctx, b.q(`
		INSERT INTO sheet_rows (table_name, row_index, cells) VALUES (?, ?, ?)
		ON CONFLICT (table_name, row_index) DO UPDATE SET cells = excluded.cells`),
		table, row, string(raw))
	return err
}

// Rows reads back the data rows of table (header excluded), ordered by row.
func (b *SQLBackend) Rows(ctx context.Context, table string) ([][]any, error) {
	rows, err := b.conn.QueryContext(ctx, b.q(`SELECT cells FROM sheet_rows WHERE table_name = ? ORDER BY row_index`), table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var cells []any
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, err
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

func requireOne(res sql.Result, table string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("table %q not found", table)
	}
	return nil
}
