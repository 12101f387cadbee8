package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options controls how the connection string is completed before dialing.
type Options struct {
	Schema     string
	RequireTLS bool
	MaxOpen    int
	MaxIdle    int
}

// DSN appends search_path and sslmode to databaseURL unless the caller already
// set them.
func DSN(databaseURL string, opts Options) string {
	dsn := databaseURL
	if opts.Schema != "" && !strings.Contains(dsn, "search_path") {
		dsn = withParam(dsn, "search_path", opts.Schema)
	}
	if !strings.Contains(dsn, "sslmode") {
		mode := "disable"
		if opts.RequireTLS {
			mode = "require"
		}
		dsn = withParam(dsn, "sslmode", mode)
	}
	return dsn
}

func withParam(dsn, key, value string) string {
	// key=value style connection strings use spaces, URLs use query params.
	if !strings.Contains(dsn, "://") {
		return dsn + " " + key + "=" + value
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + value
}

// Config is the gorm configuration shared by the postgres and test stores.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Connect opens the postgres store. The returned handle is owned by the caller
// and must be released with Close.
func Connect(ctx context.Context, databaseURL string, opts Options, log zerolog.Logger) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	gdb, err := gorm.Open(postgres.Open(DSN(databaseURL, opts)), Config())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if opts.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpen)
	}
	if opts.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdle)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if opts.Schema != "" && opts.Schema != "public" {
		if err := gdb.WithContext(ctx).Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %q", opts.Schema)).Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	log.Info().Str("schema", opts.Schema).Bool("tls", opts.RequireTLS).Msg("connected to database")
	return gdb, nil
}

// Close releases the pool behind gdb.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Now asks the store for its clock. Used by the connectivity probe.
func Now(ctx context.Context, gdb *gorm.DB) (string, error) {
	var now string
	if err := gdb.WithContext(ctx).Raw("SELECT CURRENT_TIMESTAMP").Scan(&now).Error; err != nil {
		return "", err
	}
	return now, nil
}
