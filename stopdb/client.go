package stopdb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"stopmatcher.onebusaway.org/internal/appconf"
	"stopmatcher.onebusaway.org/internal/logging"
)

//go:embed schema.sql
var ddl string

// Client owns the stop database connection and its generated queries.
type Client struct {
	config  Config
	DB      *sql.DB
	Queries *Queries
	logger  *slog.Logger
}

// NewClient opens the database, tunes the connection pool and creates the schema.
func NewClient(config Config) (*Client, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, errors.New("test database must use in-memory storage, got " + config.DBPath)
	}

	db, err := sql.Open("sqlite", dataSourceName(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	configureConnectionPool(db, config)

	logger := slog.Default().With(slog.String("component", "stopdb"))
	ctx := context.Background()

	if config.DBPath == ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			logging.SafeCloseWithLogging(db, logger, "database")
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		logging.SafeCloseWithLogging(db, logger, "database")
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if config.verbose {
		logger.Info("database opened", slog.String("path", config.DBPath))
	}

	return &Client{
		config:  config,
		DB:      db,
		Queries: New(db),
		logger:  logger,
	}, nil
}

func configureConnectionPool(db *sql.DB, config Config) {
	if config.DBPath == ":memory:" {
		// Every connection to :memory: gets its own empty database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
}

// dataSourceName attaches per-connection pragmas for file databases. The
// single in-memory connection is configured directly after opening.
func dataSourceName(config Config) string {
	if config.DBPath == ":memory:" {
		return config.DBPath
	}
	return config.DBPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (c *Client) Close() error {
	return c.DB.Close()
}
