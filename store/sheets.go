package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/nishantd01/smart-backoffice/utils"
	"google.golang.org/api/sheets/v4"
)

// SheetsBackend stores each table as a tab of one Google spreadsheet.
type SheetsBackend struct {
	service       *sheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// NewSheetsBackend writes into the spreadsheet spreadsheetID.
func NewSheetsBackend(service *sheets.Service, spreadsheetID string) *SheetsBackend {
	return &SheetsBackend{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}
}

func (b *SheetsBackend) sheetID(ctx context.Context, table string) (int64, bool, error) {
	b.mu.Lock()
	id, ok := b.sheetIDs[table]
	b.mu.Unlock()
	if ok {
		return id, true, nil
	}

	spreadsheet, err := b.service.Spreadsheets.Get(b.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return 0, false, fmt.Errorf("failed to retrieve spreadsheet: %w", err)
	}

	id, ok = utils.SheetID(spreadsheet, table)
	if ok {
		b.mu.Lock()
		b.sheetIDs[table] = id
		b.mu.Unlock()
	}
	return id, ok, nil
}

func (b *SheetsBackend) Header(ctx context.Context, table string) ([]string, bool, error) {
	_, ok, err := b.sheetID(ctx, table)
	if err != nil || !ok {
		return nil, false, err
	}

	resp, err := b.service.Spreadsheets.Values.Get(b.spreadsheetID, utils.A1(table, "1:1")).Context(ctx).Do()
	if err != nil {
		return nil, true, fmt.Errorf("failed to read header: %w", err)
	}
	header := []string{}
	if len(resp.Values) > 0 {
		for _, v := range resp.Values[0] {
			header = append(header, fmt.Sprint(v))
		}
	}
	return header, true, nil
}

func (b *SheetsBackend) CreateTable(ctx context.Context, table string, header []string) error {
	resp, err := b.service.Spreadsheets.BatchUpdate(b.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: table},
				},
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
		b.mu.Lock()
		b.sheetIDs[table] = resp.Replies[0].AddSheet.Properties.SheetId
		b.mu.Unlock()
	}

	return b.WriteHeader(ctx, table, header)
}

func (b *SheetsBackend) WriteHeader(ctx context.Context, table string, header []string) error {
	values := make([]any, len(header))
	for i, h := range header {
		values[i] = h
	}
	return b.WriteRow(ctx, table, 1, values)
}

func (b *SheetsBackend) StyleHeader(ctx context.Context, table string, width int) error {
	id, ok, err := b.sheetID(ctx, table)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("sheet %s not found", table)
	}

	_, err = b.service.Spreadsheets.BatchUpdate(b.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: utils.HeaderStyleRequests(id, width),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}
	return nil
}

func (b *SheetsBackend) LastRow(ctx context.Context, table string) (int, error) {
	// A bare sheet name reads the whole grid. Trailing empty rows are trimmed,
	// so the last value row sits len(Values)-1 rows below the range start.
	resp, err := b.service.Spreadsheets.Values.Get(b.spreadsheetID, utils.SheetRange(table)).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(resp.Values) == 0 {
		return 0, nil
	}
	_, first, err := utils.RangeStart(resp.Range)
	if err != nil {
		first = 1
	}
	return first + len(resp.Values) - 1, nil
}

func (b *SheetsBackend) WriteRow(ctx context.Context, table string, row int, values []any) error {
	writeRange := utils.RowRange(table, row, len(values))
	valueRange := &sheets.ValueRange{
		Range:  writeRange,
		Values: [][]any{values},
	}

	_, err := b.service.Spreadsheets.Values.Update(b.spreadsheetID, writeRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write data to sheet: %w", err)
	}
	return nil
}
