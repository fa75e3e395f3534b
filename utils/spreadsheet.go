package utils

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/sheets/v4"
)

// HeaderBackground and HeaderForeground are the lead-table header colours.
const (
	HeaderBackground = "#8b7355"
	HeaderForeground = "#ffffff"
)

// SheetRange quotes a sheet name so it can stand alone as a range.
func SheetRange(sheetName string) string {
	return "'" + strings.ReplaceAll(sheetName, "'", "''") + "'"
}

// A1 builds a quoted A1 reference such as 'Leads'!A1:H1.
func A1(sheetName, cells string) string {
	return SheetRange(sheetName) + "!" + cells
}

// ColumnLetter converts a 1-based column index to its letter form (1 -> A, 27 -> AA).
func ColumnLetter(col int) string {
	if col < 1 {
		return ""
	}
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// ParseCell splits an A1 cell like "C12" into its 1-based column and row.
func ParseCell(cell string) (col, row int, err error) {
	cell = strings.ToUpper(strings.TrimSpace(cell))
	i := 0
	for ; i < len(cell) && cell[i] >= 'A' && cell[i] <= 'Z'; i++ {
		col = col*26 + int(cell[i]-'A') + 1
	}
	if i == 0 || i == len(cell) {
		return 0, 0, fmt.Errorf("invalid cell %q", cell)
	}
	row, err = strconv.Atoi(cell[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("invalid cell %q", cell)
	}
	return col, row, nil
}

// RangeStart returns the top-left cell of a range such as 'Leads'!A1:Z1000.
func RangeStart(a1 string) (col, row int, err error) {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.Index(a1, ":"); i >= 0 {
		a1 = a1[:i]
	}
	return ParseCell(a1)
}

// RowRange is the A1 range covering width columns of a single row.
func RowRange(sheetName string, row, width int) string {
	return A1(sheetName, fmt.Sprintf("A%d:%s%d", row, ColumnLetter(width), row))
}

// HeaderStyleRequests formats row 1 of a sheet bold, centred and coloured
// across width columns, then auto-sizes those columns.
func HeaderStyleRequests(sheetID int64, width int) []*sheets.Request {
	return []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(width),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						BackgroundColor:     HexColor(HeaderBackground),
						HorizontalAlignment: "CENTER",
						TextFormat: &sheets.TextFormat{
							Bold:            true,
							ForegroundColor: HexColor(HeaderForeground),
						},
					},
				},
				Fields: "userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(width),
				},
			},
		},
	}
}

// HexColor parses "#rrggbb" into a Sheets colour. Malformed input yields black.
func HexColor(hex string) *sheets.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return &sheets.Color{}
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return &sheets.Color{}
	}
	return &sheets.Color{
		Red:   float64(v>>16&0xff) / 255,
		Green: float64(v>>8&0xff) / 255,
		Blue:  float64(v&0xff) / 255,
	}
}

// SheetID finds the numeric id of the sheet titled name.
func SheetID(spreadsheet *sheets.Spreadsheet, name string) (int64, bool) {
	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return s.Properties.SheetId, true
		}
	}
	return -1, false
}
