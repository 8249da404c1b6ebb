package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends
const (
	BackendClickHouse = "clickhouse"
	BackendPostgres   = "postgres"
	BackendSQLite     = "sqlite"
	BackendMock       = "mock"
)

// Calendars used for chart labels and bot dates
const (
	CalendarGregorian = "gregorian"
	CalendarJalali    = "jalali"
)

// Config holds the application configuration
type Config struct {
	TelegramToken  string
	AllowedUserIDs []int64

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)
	Port        string

	Storage StorageConfig
	Display DisplayConfig

	DigestHour int
	LogLevel   string
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Backend string

	// ClickHouse configuration
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool

	DatabaseURL string // Postgres DSN
	SQLitePath  string
}

// DisplayConfig controls how periods and charts are shown to the reader
type DisplayConfig struct {
	Location  *time.Location
	Calendar  string
	WeekStart time.Weekday
	ZeroFill  bool // chart shows empty buckets
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Allowed User IDs (required)
	allowedIDsStr := os.Getenv("ALLOWED_USER_IDS")
	if allowedIDsStr == "" {
		return nil, fmt.Errorf("ALLOWED_USER_IDS is required (comma-separated list of Telegram user IDs)")
	}

	idStrs := strings.Split(allowedIDsStr, ",")
	for _, idStr := range idStrs {
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID in ALLOWED_USER_IDS: %s", idStr)
		}
		config.AllowedUserIDs = append(config.AllowedUserIDs, id)
	}

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}

	config.Port = os.Getenv("PORT")
	if config.Port == "" {
		config.Port = "8080"
	}

	storage, err := LoadStorageFromEnv()
	if err != nil {
		return nil, err
	}
	config.Storage = *storage

	display, err := LoadDisplayFromEnv()
	if err != nil {
		return nil, err
	}
	config.Display = *display

	config.DigestHour = 8
	if hourStr := os.Getenv("DIGEST_HOUR"); hourStr != "" {
		hour, err := strconv.Atoi(hourStr)
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("invalid DIGEST_HOUR: %s (expected 0-23)", hourStr)
		}
		config.DigestHour = hour
	}

	config.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	return config, nil
}

// LoadStorageFromEnv loads the storage backend configuration only
func LoadStorageFromEnv() (*StorageConfig, error) {
	config := &StorageConfig{}

	config.Backend = strings.ToLower(os.Getenv("STORAGE_BACKEND"))
	if config.Backend == "" {
		config.Backend = BackendClickHouse
	}
	// Use Mock DB (default: false)
	if os.Getenv("USE_MOCK_DB") == "true" {
		config.Backend = BackendMock
	}

	switch config.Backend {
	case BackendMock:
	case BackendClickHouse:
		config.ClickHouseHost = os.Getenv("CLICKHOUSE_HOST")
		if config.ClickHouseHost == "" {
			return nil, fmt.Errorf("CLICKHOUSE_HOST is required when STORAGE_BACKEND is clickhouse")
		}

		portStr := os.Getenv("CLICKHOUSE_PORT")
		if portStr == "" {
			config.ClickHousePort = 9000 // Default ClickHouse native port
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
			}
			config.ClickHousePort = port
		}

		config.ClickHouseDatabase = os.Getenv("CLICKHOUSE_DATABASE")
		if config.ClickHouseDatabase == "" {
			config.ClickHouseDatabase = "default"
		}

		config.ClickHouseUser = os.Getenv("CLICKHOUSE_USER")
		if config.ClickHouseUser == "" {
			config.ClickHouseUser = "default"
		}

		config.ClickHousePassword = os.Getenv("CLICKHOUSE_PASSWORD")
		// Password is optional, can be empty

		config.ClickHouseUseTLS = os.Getenv("CLICKHOUSE_USE_TLS") == "true"
	case BackendPostgres:
		config.DatabaseURL = os.Getenv("DATABASE_URL")
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND is postgres")
		}
	case BackendSQLite:
		config.SQLitePath = os.Getenv("SQLITE_PATH")
		if config.SQLitePath == "" {
			config.SQLitePath = "bookshelf.db"
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND: %s (expected clickhouse, postgres or sqlite)", config.Backend)
	}

	return config, nil
}

// LoadDisplayFromEnv loads time zone, calendar and chart settings
func LoadDisplayFromEnv() (*DisplayConfig, error) {
	config := &DisplayConfig{Location: time.UTC, Calendar: CalendarGregorian, WeekStart: time.Sunday}

	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
		}
		config.Location = loc
	}

	if cal := strings.ToLower(os.Getenv("CALENDAR")); cal != "" {
		if cal != CalendarGregorian && cal != CalendarJalali {
			return nil, fmt.Errorf("invalid CALENDAR: %s (expected gregorian or jalali)", cal)
		}
		config.Calendar = cal
	}

	if ws := strings.ToLower(os.Getenv("WEEK_START")); ws != "" {
		day, ok := parseWeekday(ws)
		if !ok {
			return nil, fmt.Errorf("invalid WEEK_START: %s", ws)
		}
		config.WeekStart = day
	}

	config.ZeroFill = os.Getenv("CHART_ZERO_FILL") == "true"
	return config, nil
}

func parseWeekday(s string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, true
		}
	}
	return time.Sunday, false
}
