package models

import "fmt"

// SheetURL is the edit link of a spreadsheet.
func SheetURL(id string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit", id)
}

// TableTemplate is one named tab of a template workbook: a header row and
// its illustrative rows.
type TableTemplate struct {
	Key    string     `yaml:"key" json:"key"`
	Name   string     `yaml:"name" json:"name"`
	Header []string   `yaml:"header" json:"header"`
	Rows   [][]string `yaml:"rows" json:"rows"`
}

// Workbook identifies a provisioned template workbook.
type Workbook struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	URL    string   `json:"url"`
	Tables []string `json:"tables"`
	Shared bool     `json:"shared"`
}
