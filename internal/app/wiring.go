package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bookshelf/internal/bot"
	"bookshelf/internal/chart"
	"bookshelf/internal/config"
	"bookshelf/internal/jalali"
	"bookshelf/internal/library"
	"bookshelf/internal/notify"
	"bookshelf/internal/period"
	"bookshelf/internal/storage"
	"bookshelf/internal/storage/ch"
	"bookshelf/internal/storage/sqlstore"
	"bookshelf/internal/storage/stubs"
)

// NewLogger builds a development logger for the debug level and a production one otherwise
func NewLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	return cfg.Build()
}

// OpenStorage connects to the configured backend and applies its schema
func OpenStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.Storage, error) {
	var db storage.Storage
	switch cfg.Backend {
	case config.BackendMock:
		logger.Info("Using mock database")
		db = stubs.NewMockDB()
	case config.BackendPostgres:
		logger.Info("Connecting to Postgres")
		store, err := sqlstore.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		db = store
	case config.BackendSQLite:
		logger.Info("Opening SQLite database", zap.String("path", cfg.SQLitePath))
		store, err := sqlstore.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		db = store
	case config.BackendClickHouse:
		logger.Info("Connecting to ClickHouse",
			zap.String("host", cfg.ClickHouseHost),
			zap.Int("port", cfg.ClickHousePort),
			zap.String("database", cfg.ClickHouseDatabase),
			zap.String("user", cfg.ClickHouseUser),
			zap.Bool("tls", cfg.ClickHouseUseTLS),
		)
		clickhouseDB, err := ch.NewClickHouseDB(
			cfg.ClickHouseHost,
			cfg.ClickHousePort,
			cfg.ClickHouseDatabase,
			cfg.ClickHouseUser,
			cfg.ClickHousePassword,
			cfg.ClickHouseUseTLS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		db = clickhouseDB
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if err := db.Initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("Database initialized successfully", zap.String("backend", cfg.Backend))
	return db, nil
}

// NewLibrary creates the library service on the reader's calendar
func NewLibrary(db storage.Storage, display config.DisplayConfig, logger *zap.Logger) *library.Service {
	label := chart.GregorianLabel
	if display.Calendar == config.CalendarJalali {
		label = jalali.Format
	}
	return library.New(db, notify.NewHub(logger), logger,
		library.WithResolver(period.Resolver{WeekStart: display.WeekStart}),
		library.WithChart(chart.Aggregator{
			Format:    label,
			Location:  display.Location,
			FillEmpty: display.ZeroFill,
		}),
	)
}

// BotDisplay maps the display settings onto the bot's date handling
func BotDisplay(display config.DisplayConfig) bot.Display {
	d := bot.Display{
		Location: display.Location,
		Resolver: period.Resolver{WeekStart: display.WeekStart},
		Now:      time.Now,
	}
	if display.Calendar == config.CalendarJalali {
		d.FormatDate = jalali.Format
		d.ParseDate = jalali.Parse
	}
	return d
}
