package provision

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"

	"google.golang.org/api/script/v1"
)

//go:embed bound_script.gs.tmpl
var boundScriptSource string

var boundScriptTmpl = template.Must(template.New("bound_script").Parse(boundScriptSource))

// ScriptParams fill the bound capture script.
type ScriptParams struct {
	NotificationEmail string
	DataTable         string
}

// ScriptBinder attaches the customer data-capture script to a workbook.
type ScriptBinder struct {
	service  *script.Service
	params   ScriptParams
	timeZone string
}

func NewScriptBinder(service *script.Service, params ScriptParams, timeZone string) *ScriptBinder {
	if params.DataTable == "" {
		params.DataTable = "Data"
	}
	return &ScriptBinder{service: service, params: params, timeZone: timeZone}
}

// Bind creates an Apps Script project whose parent is the workbook, then
// uploads the rendered script and its manifest.
func (b *ScriptBinder) Bind(ctx context.Context, workbookID string) error {
	source, err := RenderScript(b.params)
	if err != nil {
		return err
	}
	manifest, err := json.Marshal(map[string]string{
		"timeZone":         b.timeZone,
		"exceptionLogging": "CLOUD",
	})
	if err != nil {
		return err
	}

	project, err := b.service.Projects.Create(&script.CreateProjectRequest{
		Title:    "Customer Database API",
		ParentId: workbookID,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create script project: %w", err)
	}

	content := &script.Content{
		Files: []*script.File{
			{Name: "Code", Type: "SERVER_JS", Source: source},
			{Name: "appsscript", Type: "JSON", Source: string(manifest)},
		},
	}
	if _, err := b.service.Projects.UpdateContent(project.ScriptId, content).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update script content: %w", err)
	}
	return nil
}

// RenderScript fills the capture script template.
func RenderScript(params ScriptParams) (string, error) {
	var buf bytes.Buffer
	if err := boundScriptTmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("render bound script: %w", err)
	}
	return buf.String(), nil
}
