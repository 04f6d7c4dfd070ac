// Package database manages storage connections and schema for the patient
// and coverage reference stores.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/pa-workflow-server/internal/domain"
)

// DB wraps sql.DB with driver awareness so repositories can stay
// driver-neutral.
type DB struct {
	SQL    *sql.DB
	Driver string
	log    *logrus.Logger
}

// NewConnection opens a database connection for the configured driver.
// sqlite is the embedded default; postgres goes through the pgx stdlib driver.
func NewConnection(ctx context.Context, cfg *domain.DatabaseConfig, logger *logrus.Logger) (*DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Driver {
	case "sqlite":
		dir := filepath.Dir(cfg.Path)
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return nil, fmt.Errorf("creating database directory: %w", mkErr)
		}
		db, err = sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite database: %w", err)
		}
		// WAL improves read concurrency for the reference data lookups
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting WAL mode: %w", err)
		}
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password, cfg.SSLMode,
		)
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening postgres database: %w", err)
		}
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"driver":   cfg.Driver,
		"database": cfg.Database,
		"path":     cfg.Path,
	}).Info("Database connection established")

	return &DB{
		SQL:    db,
		Driver: cfg.Driver,
		log:    logger,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.SQL != nil {
		db.log.Info("Database connection closed")
		return db.SQL.Close()
	}
	return nil
}

// Health checks the database connection health
func (db *DB) Health(ctx context.Context) error {
	return db.SQL.PingContext(ctx)
}

// Rebind translates "?" placeholders to the driver's positional style.
// Repositories write queries once with "?" and stay portable across both
// supported drivers.
func (db *DB) Rebind(query string) string {
	if db.Driver != "postgres" {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}
