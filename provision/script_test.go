package provision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/script/v1"
)

func newTestScriptBinder(t *testing.T, handle func(w http.ResponseWriter, r *http.Request, body string)) (*ScriptBinder, func() []apiCall) {
	t.Helper()
	opts, calls := newGoogleServer(t, handle)
	service, err := script.NewService(context.Background(), opts...)
	require.NoError(t, err)
	return NewScriptBinder(service, ScriptParams{NotificationEmail: "ops@example.com"}, "Asia/Bangkok"), calls
}

func TestScriptBinderBind(t *testing.T) {
	binder, calls := newTestScriptBinder(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		if r.Method == http.MethodPost {
			io.WriteString(w, `{"scriptId":"script-1","parentId":"wb-1"}`)
			return
		}
		io.WriteString(w, `{"scriptId":"script-1"}`)
	})

	require.NoError(t, binder.Bind(context.Background(), "wb-1"))

	got := calls()
	require.Len(t, got, 2)

	assert.Equal(t, http.MethodPost, got[0].Method)
	assert.Equal(t, "/v1/projects", got[0].Path)
	var created script.CreateProjectRequest
	require.NoError(t, json.Unmarshal([]byte(got[0].Body), &created))
	assert.Equal(t, "wb-1", created.ParentId)
	assert.Equal(t, "Customer Database API", created.Title)

	assert.Equal(t, http.MethodPut, got[1].Method)
	assert.Equal(t, "/v1/projects/script-1/content", got[1].Path)
	var content script.Content
	require.NoError(t, json.Unmarshal([]byte(got[1].Body), &content))
	require.Len(t, content.Files, 2)

	code := content.Files[0]
	assert.Equal(t, "Code", code.Name)
	assert.Equal(t, "SERVER_JS", code.Type)
	assert.Contains(t, code.Source, "const NOTIFICATION_EMAIL = 'ops@example.com';")
	assert.Contains(t, code.Source, "const DATA_SHEET_NAME = 'Data';")

	manifest := content.Files[1]
	assert.Equal(t, "appsscript", manifest.Name)
	assert.Equal(t, "JSON", manifest.Type)
	assert.JSONEq(t, `{"timeZone":"Asia/Bangkok","exceptionLogging":"CLOUD"}`, manifest.Source)
}

func TestScriptBinderCreateError(t *testing.T) {
	binder, calls := newTestScriptBinder(t, func(w http.ResponseWriter, _ *http.Request, _ string) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"Apps Script API disabled"}}`)
	})

	err := binder.Bind(context.Background(), "wb-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create script project")
	assert.Len(t, calls(), 1)
}

func TestRenderScriptEscapesStringLiterals(t *testing.T) {
	src, err := RenderScript(ScriptParams{
		NotificationEmail: "x';MailApp.sendEmail('victim@evil.test','s','b');'",
		DataTable:         "Data\n'",
	})
	require.NoError(t, err)
	assert.Contains(t, src, `const NOTIFICATION_EMAIL = 'x\';MailApp.sendEmail(\'victim@evil.test\',\'s\',\'b\');\'';`)
	assert.Contains(t, src, `const DATA_SHEET_NAME = 'Data\u000A\'';`)
	assert.NotContains(t, src, "'x';MailApp")
}
