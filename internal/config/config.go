package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"familybudget/internal/core"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendSheets   = "sheets"
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
	BackendMemory   = "memory"
)

var validBackends = []string{BackendSheets, BackendSQLite, BackendSupabase, BackendMemory}

type Config struct {
	// Telegram
	TelegramToken  string
	AllowedUserIDs []int64

	// Ledger backend selection
	DataBackend string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// SQLite
	SQLiteDBPath string

	// Memory, seeded from a file when it exists
	MemorySeedFile string

	// Supabase
	SupabaseURL   string
	SupabaseKey   string
	SupabaseTable string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
	AMQPQueue      string

	// Budget
	CatalogFile string
	Catalog     *core.Catalog
	Currency    string

	// Daily report
	DailyReportTime string
	Timezone        string
	Location        *time.Location

	// Ops server, disabled when empty
	OpsAddr string

	RateLimitPerMinute int
	LogLevel           string

	// problems found while reading values in Load, reported by Validate
	loadErrs []string
}

// legacyConfig is the single JSON blob older deployments pass in BOT_CONFIG_JSON.
// sheet_name holds the spreadsheet id.
type legacyConfig struct {
	TelegramToken  string  `json:"telegram_token"`
	AllowedUserIDs []int64 `json:"allowed_user_ids"`
	SheetName      string  `json:"sheet_name"`
}

func Load() *Config {
	cfg := &Config{
		TelegramToken: getEnv("TELEGRAM_TOKEN", ""),
		DataBackend:   getEnv("DATA_BACKEND", BackendSheets),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", ""),
		GoogleCredentialsJSON: firstEnv("GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_CREDENTIALS_JSON"),
		GoogleCredentialsFile: firstEnv("GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		MemorySeedFile: getEnv("MEMORY_SEED_FILE", "./data/expenses.txt"),

		SupabaseURL:   getEnv("SUPABASE_URL", ""),
		SupabaseKey:   getEnv("SUPABASE_KEY", ""),
		SupabaseTable: getEnv("SUPABASE_TABLE", "expenses"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "budget"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "expense.recorded"),
		AMQPQueue:      getEnv("AMQP_QUEUE", ""),

		CatalogFile: getEnv("BUDGET_CATALOG_FILE", ""),
		Currency:    getEnv("CURRENCY", "zł"),

		DailyReportTime: getEnv("DAILY_REPORT_TIME", "21:00"),
		Timezone:        getEnv("TIMEZONE", "Local"),

		OpsAddr:            os.Getenv("OPS_ADDR"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
	if _, set := os.LookupEnv("OPS_ADDR"); !set {
		cfg.OpsAddr = ":9090"
	}

	if ids, err := parseUserIDs(os.Getenv("ALLOWED_USER_IDS")); err != nil {
		cfg.loadErrs = append(cfg.loadErrs, fmt.Sprintf("invalid ALLOWED_USER_IDS: %v", err))
	} else {
		cfg.AllowedUserIDs = ids
	}

	if raw := os.Getenv("BOT_CONFIG_JSON"); raw != "" {
		if err := cfg.applyLegacy(raw); err != nil {
			cfg.loadErrs = append(cfg.loadErrs, fmt.Sprintf("invalid BOT_CONFIG_JSON: %v", err))
		}
	}

	if cfg.CatalogFile == "" {
		cfg.Catalog = core.DefaultCatalog()
	} else if catalog, err := LoadCatalog(cfg.CatalogFile); err != nil {
		cfg.loadErrs = append(cfg.loadErrs, err.Error())
	} else {
		cfg.Catalog = catalog
	}

	if loc, err := loadLocation(cfg.Timezone); err != nil {
		cfg.loadErrs = append(cfg.loadErrs, fmt.Sprintf("invalid TIMEZONE '%s': %v", cfg.Timezone, err))
	} else {
		cfg.Location = loc
	}

	return cfg
}

// applyLegacy fills values the environment left unset.
func (c *Config) applyLegacy(raw string) error {
	var legacy legacyConfig
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		return err
	}
	if c.TelegramToken == "" {
		c.TelegramToken = legacy.TelegramToken
	}
	if len(c.AllowedUserIDs) == 0 {
		c.AllowedUserIDs = legacy.AllowedUserIDs
	}
	if c.GoogleSpreadsheetID == "" {
		c.GoogleSpreadsheetID = legacy.SheetName
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	errors := append([]string(nil), c.loadErrs...)

	if c.TelegramToken == "" {
		errors = append(errors, "TELEGRAM_TOKEN is required")
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			errors = append(errors, "SUPABASE_URL and SUPABASE_KEY are required when using supabase backend")
		}
		if c.SupabaseTable == "" {
			errors = append(errors, "Supabase table name cannot be empty when using supabase backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.Catalog == nil && c.CatalogFile == "" {
		errors = append(errors, "budget catalog is not configured")
	}

	if _, _, err := ParseClock(c.DailyReportTime); err != nil {
		errors = append(errors, fmt.Sprintf("invalid DAILY_REPORT_TIME '%s': must be HH:MM", c.DailyReportTime))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ReportClock returns the configured daily report hour and minute.
func (c *Config) ReportClock() (hour, minute int) {
	hour, minute, _ = ParseClock(c.DailyReportTime)
	return hour, minute
}

// ParseClock parses a 24 hour HH:MM wall clock time.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a user id", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
