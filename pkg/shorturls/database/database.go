// Package database opens the gorm account database and the optional
// Postgres connection used by the link store.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang/glog"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/sethvargo/go-retry"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the SQLite database at dsn through gorm.
//
// Unique index violations are translated to gorm.ErrDuplicatedKey, which the
// link store relies on to detect code collisions. SQLite allows one writer at
// a time, and every connection to ":memory:" is a separate database, so the
// pool is limited to a single connection.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// ConnectPostgres opens a Postgres connection and pings it, retrying with
// exponential backoff up to retries times before giving up.
func ConnectPostgres(ctx context.Context, dsn string, retries uint64) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := Ping(ctx, db, retries); err != nil {
		db.Close()
		return nil, err
	}

	glog.Infof("Connected to Postgres")
	return db, nil
}

// Ping checks the connection, retrying transient failures.
func Ping(ctx context.Context, db *sql.DB, retries uint64) error {
	backoff := retry.WithMaxRetries(retries, retry.NewExponential(500*time.Millisecond))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			glog.Warningf("db.PingContext() attempt %d %+v", attempt, err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}
