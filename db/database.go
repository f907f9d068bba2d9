package db

import (
	"fmt"
	"net/url"

	"debt_flow_app_go/config"
	"debt_flow_app_go/logger"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Initialize opens the local session store. A Turso URL takes precedence
// over the SQLite file.
func Initialize(cfg *config.Config) error {
	var err error

	gormCfg := &gorm.Config{
		Logger: logger.NewGormLogger(cfg.Environment),
	}

	if cfg.TursoDatabaseURL != "" {
		DB, err = gorm.Open(sqlite.New(sqlite.Config{
			DriverName: "libsql",
			DSN:        TursoDSN(cfg.TursoDatabaseURL, cfg.TursoAuthToken),
		}), gormCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to turso: %w", err)
		}
		zap.L().Info("Database connection established (libsql)")
		return nil
	}

	// Enable WAL mode for better concurrency support
	dsn := cfg.DBPath + "?_journal_mode=WAL&_busy_timeout=5000"

	DB, err = gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	zap.L().Info("Database connection established (WAL mode enabled)", zap.String("path", cfg.DBPath))
	return nil
}

// TursoDSN appends the auth token to a libsql URL
func TursoDSN(rawURL, authToken string) string {
	if authToken == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("authToken", authToken)
	u.RawQuery = q.Encode()
	return u.String()
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	zap.L().Info("Database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
