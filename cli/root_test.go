package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nishantd01/smart-backoffice/config"
	"github.com/nishantd01/smart-backoffice/logging"
	"github.com/nishantd01/smart-backoffice/models"
	"github.com/nishantd01/smart-backoffice/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GOOGLE_CREDENTIALS_FILE", filepath.Join(dir, "missing.json"))
	t.Setenv("STORE_DRIVER", config.StoreMemory)
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("STRIPE_SECRET_KEY", "")
	return filepath.Join(dir, "absent.env")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandTree(t *testing.T) {
	cmd := NewRootCommand()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"serve", "provision", "kbank-token", "auth"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}

func TestProvisionCommandOffline(t *testing.T) {
	cfgPath := offlineEnv(t)

	out, err := execute(t, "provision", "--config", cfgPath, "--business-name", "Pet Co", "--email", "a@x.com")
	require.NoError(t, err)

	var wb models.Workbook
	require.NoError(t, json.Unmarshal([]byte(out), &wb))
	assert.NotEmpty(t, wb.ID)
	assert.True(t, strings.HasPrefix(wb.Title, "Template - Pet Co - "))
	assert.Len(t, wb.Tables, 6)
	assert.True(t, wb.Shared)
}

func TestKBankTokenCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.Header.Get("x-test-mode"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"tok","token_type":"Bearer","expires_in":1799}`)
	}))
	defer srv.Close()

	cfgPath := offlineEnv(t)
	t.Setenv("STORE_DRIVER", config.StoreSheets)
	t.Setenv("SPREADSHEET_ID", "")
	t.Setenv("KBANK_CONSUMER_ID", "consumer")
	t.Setenv("KBANK_CONSUMER_SECRET", "secret")
	t.Setenv("KBANK_TOKEN_URL", srv.URL)

	out, err := execute(t, "kbank-token", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "token_type: Bearer")
	assert.Contains(t, out, "expires: ")
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	cfgPath := offlineEnv(t)
	t.Setenv("STORE_DRIVER", "excel")

	_, err := execute(t, "serve", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown STORE_DRIVER")
}

func TestBuildSQLiteStore(t *testing.T) {
	cfgPath := offlineEnv(t)
	t.Setenv("STORE_DRIVER", config.StoreSQLite)
	t.Setenv("DATABASE_URL", ":memory:")
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	app, err := Build(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer app.Close()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"businessName":"Pet Co","email":"a@x.com"}`))
	p, err := service.PayloadFromRequest(req)
	require.NoError(t, err)

	first := app.Leads.Handle(context.Background(), p, "").(models.IngestResponse)
	require.True(t, first.Success, first.Error)
	assert.Equal(t, 2, first.Row)
	assert.NotEmpty(t, first.TemplateSpreadsheetID)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"businessType":"package","package":"basic","packagePrice":5000}`))
	p, err = service.PayloadFromRequest(req)
	require.NoError(t, err)
	second := app.Leads.Handle(context.Background(), p, "").(models.IngestResponse)
	require.True(t, second.Success, second.Error)
	assert.Equal(t, 3, second.Row)
}

func TestBuildSheetsNeedsCredentials(t *testing.T) {
	cfgPath := offlineEnv(t)
	t.Setenv("STORE_DRIVER", config.StoreSheets)
	t.Setenv("SPREADSHEET_ID", "sheet-1")
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	_, err = Build(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init google services")
}
