package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithMemoryStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "Leads", cfg.LeadsTable)
	assert.Equal(t, "Asia/Bangkok", cfg.TimeZone)
	assert.Equal(t, "thb", cfg.DefaultCurrency)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.Equal(t, "memory", cfg.StoreIdentifier())
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.env")
	content := "STORE_DRIVER=sheets\nSPREADSHEET_ID=sheet-123\nNOTIFICATION_EMAIL=ops@example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sheet-123", cfg.SpreadsheetID)
	assert.Equal(t, "ops@example.com", cfg.NotificationMail)
	assert.Equal(t, "sheet-123", cfg.StoreIdentifier())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "sheets without id", cfg: Config{StoreDriver: StoreSheets, LeadsTable: "Leads"}, wantErr: true},
		{name: "sheets with id", cfg: Config{StoreDriver: StoreSheets, SpreadsheetID: "x", LeadsTable: "Leads"}},
		{name: "postgres without url", cfg: Config{StoreDriver: StorePostgres, LeadsTable: "Leads"}, wantErr: true},
		{name: "sqlite with url", cfg: Config{StoreDriver: StoreSQLite, DatabaseURL: "leads.db", LeadsTable: "Leads"}},
		{name: "unknown driver", cfg: Config{StoreDriver: "excel", LeadsTable: "Leads"}, wantErr: true},
		{name: "empty table", cfg: Config{StoreDriver: StoreMemory}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := Config{TimeZone: "Nowhere/Invalid"}
	assert.Equal(t, time.UTC, cfg.Location())
}
