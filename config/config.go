package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers understood by the lead store.
const (
	StoreSheets   = "sheets"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config is built once at process start and handed to every component.
type Config struct {
	AppEnv           string        `mapstructure:"APP_ENV"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	HTTPListenAddr   string        `mapstructure:"HTTP_LISTEN_ADDR"`
	BasePath         string        `mapstructure:"BASE_PATH"`
	CORSAllowOrigins []string      `mapstructure:"CORS_ALLOW_ORIGINS"`
	TimeZone         string        `mapstructure:"TIME_ZONE"`
	MetricsNamespace string        `mapstructure:"METRICS_NAMESPACE"`
	SpreadsheetID    string        `mapstructure:"SPREADSHEET_ID"`
	LeadsTable       string        `mapstructure:"LEADS_TABLE"`
	NotificationMail string        `mapstructure:"NOTIFICATION_EMAIL"`
	SenderEmail      string        `mapstructure:"SENDER_EMAIL"`
	CredentialsFile  string        `mapstructure:"GOOGLE_CREDENTIALS_FILE"`
	TokenFile        string        `mapstructure:"GOOGLE_TOKEN_FILE"`
	Impersonate      string        `mapstructure:"GOOGLE_IMPERSONATE"`
	TemplateFolderID string        `mapstructure:"TEMPLATE_FOLDER_ID"`
	BindScript       bool          `mapstructure:"BIND_SCRIPT"`
	StoreDriver      string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int           `mapstructure:"REDIS_DB"`
	RedisTLS         bool          `mapstructure:"REDIS_TLS"`
	LockTTL          time.Duration `mapstructure:"LOCK_TTL"`
	RabbitMQURL      string        `mapstructure:"RABBITMQ_URL"`
	LeadsExchange    string        `mapstructure:"LEADS_EXCHANGE"`
	StripeSecretKey  string        `mapstructure:"STRIPE_SECRET_KEY"`
	StripeBaseURL    string        `mapstructure:"STRIPE_BASE_URL"`
	StripeTimeout    time.Duration `mapstructure:"STRIPE_TIMEOUT"`
	DefaultCurrency  string        `mapstructure:"DEFAULT_CURRENCY"`
	PublicSiteURL    string        `mapstructure:"PUBLIC_SITE_URL"`
	KBankConsumerID  string        `mapstructure:"KBANK_CONSUMER_ID"`
	KBankSecret      string        `mapstructure:"KBANK_CONSUMER_SECRET"`
	KBankTokenURL    string        `mapstructure:"KBANK_TOKEN_URL"`
}

var defaults = map[string]any{
	"APP_ENV":                 "development",
	"LOG_LEVEL":               "info",
	"HTTP_LISTEN_ADDR":        ":8083",
	"BASE_PATH":               "",
	"CORS_ALLOW_ORIGINS":      "*",
	"TIME_ZONE":               "Asia/Bangkok",
	"METRICS_NAMESPACE":       "backoffice",
	"SPREADSHEET_ID":          "",
	"LEADS_TABLE":             "Leads",
	"NOTIFICATION_EMAIL":      "",
	"SENDER_EMAIL":            "me",
	"GOOGLE_CREDENTIALS_FILE": "credentials.json",
	"GOOGLE_TOKEN_FILE":       "token.json",
	"GOOGLE_IMPERSONATE":      "",
	"TEMPLATE_FOLDER_ID":      "",
	"BIND_SCRIPT":             false,
	"STORE_DRIVER":            StoreSheets,
	"DATABASE_URL":            "",
	"REDIS_ADDR":              "",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"REDIS_TLS":               false,
	"LOCK_TTL":                "10s",
	"RABBITMQ_URL":            "",
	"LEADS_EXCHANGE":          "backoffice.leads",
	"STRIPE_SECRET_KEY":       "",
	"STRIPE_BASE_URL":         "https://api.stripe.com",
	"STRIPE_TIMEOUT":          "15s",
	"DEFAULT_CURRENCY":        "thb",
	"PUBLIC_SITE_URL":         "https://smart-backoffice-demo.pages.dev",
	"KBANK_CONSUMER_ID":       "",
	"KBANK_CONSUMER_SECRET":   "",
	"KBANK_TOKEN_URL":         "https://openapi-sandbox.kasikornbank.com/v2/oauth/token",
}

// Load reads configuration with Read and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads configuration from the environment, falling back to defaults.
// When path names an existing file it is read first (env syntax). Commands
// that never touch the store use it directly.
func Read(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	return &cfg, nil
}

// Validate reports configuration combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreSheets:
		if c.SpreadsheetID == "" {
			return errors.New("SPREADSHEET_ID is required for the sheets store")
		}
	case StorePostgres, StoreSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s store", c.StoreDriver)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.LeadsTable == "" {
		return errors.New("LEADS_TABLE must not be empty")
	}
	return nil
}

// Location resolves TimeZone, defaulting to UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StoreIdentifier names the backing store in health responses.
func (c *Config) StoreIdentifier() string {
	if c.StoreDriver == StoreSheets {
		return c.SpreadsheetID
	}
	return c.StoreDriver
}
