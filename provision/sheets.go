package provision

import (
	"context"
	"fmt"
	"slices"

	"github.com/nishantd01/smart-backoffice/models"
	"github.com/nishantd01/smart-backoffice/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// SheetsBackend provisions real Google spreadsheets. With a folder id set,
// workbooks are created through Drive inside that folder.
type SheetsBackend struct {
	sheets   *sheets.Service
	drive    *drive.Service
	folderID string
}

func NewSheetsBackend(sheetsService *sheets.Service, driveService *drive.Service, folderID string) *SheetsBackend {
	return &SheetsBackend{sheets: sheetsService, drive: driveService, folderID: folderID}
}

func (b *SheetsBackend) CreateWorkbook(ctx context.Context, title string) (string, error) {
	if b.folderID != "" {
		fileMetadata := &drive.File{
			Name:     title,
			MimeType: spreadsheetMimeType,
			Parents:  []string{b.folderID},
		}
		file, err := b.drive.Files.Create(fileMetadata).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("unable to create spreadsheet in folder: %w", err)
		}
		return file.Id, nil
	}

	spreadsheet, err := b.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}
	return spreadsheet.SpreadsheetId, nil
}

func (b *SheetsBackend) AddTable(ctx context.Context, workbookID string, table models.TableTemplate) error {
	resp, err := b.sheets.Spreadsheets.BatchUpdate(workbookID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: table.Name},
				},
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return fmt.Errorf("add sheet %s: empty reply", table.Name)
	}
	sheetID := resp.Replies[0].AddSheet.Properties.SheetId

	data := make([][]any, 0, len(table.Rows)+1)
	data = append(data, cells(table.Header))
	for _, row := range table.Rows {
		data = append(data, cells(row))
	}

	writeRange := utils.A1(table.Name, "A1")
	_, err = b.sheets.Spreadsheets.Values.Update(workbookID, writeRange, &sheets.ValueRange{
		Range:  writeRange,
		Values: data,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write data to sheet: %w", err)
	}

	_, err = b.sheets.Spreadsheets.BatchUpdate(workbookID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: utils.HeaderStyleRequests(sheetID, len(table.Header)),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}
	return nil
}

func (b *SheetsBackend) RemoveTablesExcept(ctx context.Context, workbookID string, keep []string) error {
	spreadsheet, err := b.sheets.Spreadsheets.Get(workbookID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to retrieve spreadsheet: %w", err)
	}

	var requests []*sheets.Request
	for _, s := range spreadsheet.Sheets {
		if s.Properties == nil || slices.Contains(keep, s.Properties.Title) {
			continue
		}
		requests = append(requests, &sheets.Request{
			DeleteSheet: &sheets.DeleteSheetRequest{
				SheetId:         s.Properties.SheetId,
				ForceSendFields: []string{"SheetId"},
			},
		})
	}
	if len(requests) == 0 {
		return nil
	}

	_, err = b.sheets.Spreadsheets.BatchUpdate(workbookID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to delete sheets: %w", err)
	}
	return nil
}

// Activate moves table to the first position, which is the tab a workbook
// opens on.
func (b *SheetsBackend) Activate(ctx context.Context, workbookID, table string) error {
	spreadsheet, err := b.sheets.Spreadsheets.Get(workbookID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to retrieve spreadsheet: %w", err)
	}
	sheetID, ok := utils.SheetID(spreadsheet, table)
	if !ok {
		return fmt.Errorf("sheet %s not found", table)
	}

	_, err = b.sheets.Spreadsheets.BatchUpdate(workbookID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:         sheetID,
						Index:           0,
						ForceSendFields: []string{"Index"},
					},
					Fields: "index",
				},
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to activate sheet: %w", err)
	}
	return nil
}

func (b *SheetsBackend) GrantEdit(ctx context.Context, workbookID, email string) error {
	_, err := b.drive.Permissions.Create(workbookID, &drive.Permission{
		Type:         "user",
		Role:         "writer",
		EmailAddress: email,
	}).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to share spreadsheet: %w", err)
	}
	return nil
}

func cells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
