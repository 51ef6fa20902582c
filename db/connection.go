package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"

	"rnotes/config"
)

// DB represents the database connection
type DB struct {
	conn *sql.DB
	path string
}

// singleton instance
var (
	instance *DB
	initMu   sync.Mutex
)

// GetDB returns the database instance, creating it if necessary
func GetDB() (*DB, error) {
	initMu.Lock()
	defer initMu.Unlock()

	if instance != nil {
		return instance, nil
	}

	db, err := Open(config.Get().DBPath())
	if err != nil {
		return nil, err
	}
	instance = db
	return instance, nil
}

// Open connects to the DuckDB file at path and runs migrations.
// An empty path opens a private in-memory database.
func Open(path string) (*DB, error) {
	if path != "" {
		// Create directory if it doesn't exist
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, serr.Wrap(err, "failed to create data directory", "path", path)
		}
	}

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, serr.Wrap(err, "failed to open database", "path", path)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, serr.Wrap(err, "failed to ping database", "path", path)
	}

	db := &DB{
		conn: conn,
		path: path,
	}

	logger.Info("Database connected", "path", displayPath(path))

	if err := db.Migrate(); err != nil {
		_ = conn.Close()
		return nil, serr.Wrap(err, "failed to run migrations")
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Transaction executes a function within a database transaction
func (db *DB) Transaction(fn func(*sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return serr.Wrap(err, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p) // re-throw panic after rollback
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return serr.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// Query executes a query that returns rows
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, serr.Wrap(err, fmt.Sprintf("query failed: %s", query))
	}
	return rows, nil
}

// QueryRow executes a query that returns a single row
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// Exec executes a query that doesn't return rows
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	result, err := db.conn.Exec(query, args...)
	if err != nil {
		return nil, serr.Wrap(err, fmt.Sprintf("exec failed: %s", query))
	}
	return result, nil
}

func displayPath(path string) string {
	if path == "" {
		return ":memory:"
	}
	return path
}
