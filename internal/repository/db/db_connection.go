package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"user_management/internal/config"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName   = "sqlite"
	postgresDriverName = "pgx"
	mysqlDriverName    = "mysql"

	pingTimeout     = 5 * time.Second
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// Open connects to the configured database, applies the schema and pings it.
// The caller owns the returned pool and must Close it.
func Open(cfg config.DB) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverMySQL:
		db, err = sql.Open(mysqlDriverName, mysqlDSN(cfg))
	case config.DriverPostgres:
		db, err = sql.Open(postgresDriverName, postgresDSN(cfg))
	case config.DriverSQLite:
		return InitSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s at %s: %w", cfg.Driver, cfg.Host, err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := ping(db, cfg.Driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(db, schemaFor(cfg.Driver)); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// InitSQLite opens/creates a SQLite DB file and ensures tables exist.
func InitSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Conservative pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is not great with many writers
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db, schemaFor(config.DriverSQLite)); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Fail fast if the DB cannot be reached
	if err := ping(db, config.DriverSQLite); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func ping(db *sql.DB, driver string) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", driver, err)
	}
	return nil
}

func mysqlDSN(cfg config.DB) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN()
}

func postgresDSN(cfg config.DB) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Table definitions per dialect.

const schemaUsersSQLite = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    salt TEXT NOT NULL,
    admin BOOLEAN NOT NULL DEFAULT 0
);
`

const schemaEventsSQLite = `
CREATE TABLE IF NOT EXISTS user_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    user_id INTEGER NOT NULL,
    message TEXT NOT NULL
);
`

const schemaUsersMySQL = `
CREATE TABLE IF NOT EXISTS users (
    id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    username VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    salt VARCHAR(255) NOT NULL,
    admin TINYINT(1) NOT NULL DEFAULT 0
)
`

const schemaEventsMySQL = `
CREATE TABLE IF NOT EXISTS user_events (
    id CHAR(36) NOT NULL PRIMARY KEY,
    occurred_at DATETIME(6) NOT NULL,
    type VARCHAR(32) NOT NULL,
    user_id INT NOT NULL,
    message TEXT NOT NULL,
    INDEX idx_user_events_occurred_at (occurred_at)
)
`

const schemaUsersPostgres = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    salt TEXT NOT NULL,
    admin BOOLEAN NOT NULL DEFAULT FALSE
)
`

const schemaEventsPostgres = `
CREATE TABLE IF NOT EXISTS user_events (
    id UUID PRIMARY KEY,
    occurred_at TIMESTAMPTZ NOT NULL,
    type TEXT NOT NULL,
    user_id INTEGER NOT NULL,
    message TEXT NOT NULL
)
`

func schemaFor(driver string) []string {
	switch driver {
	case config.DriverMySQL:
		return []string{schemaUsersMySQL, schemaEventsMySQL}
	case config.DriverPostgres:
		return []string{schemaUsersPostgres, schemaEventsPostgres}
	default:
		return []string{schemaUsersSQLite, schemaEventsSQLite}
	}
}

func ensureSchema(db *sql.DB, stmts []string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		// In case of panic, rollback to avoid leaving an open transaction
		_ = tx.Rollback()
	}()

	for i, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
