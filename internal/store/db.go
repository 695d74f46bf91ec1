package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a SQLite database connection to one of the device stores.
type DB struct {
	*sql.DB
	Path string
}

// Open opens path read-write, creating it if needed. Only fixtures and
// tooling write; readers use OpenReadOnly.
func Open(path string) (*DB, error) {
	dsn, err := fileDSN(path, "mode=rwc&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	return open(path, dsn)
}

// OpenReadOnly opens an existing store without ever writing to it.
// A missing file yields an error wrapping os.ErrNotExist instead of an
// empty database.
func OpenReadOnly(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	dsn, err := fileDSN(path, "mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	return open(path, dsn)
}

// fileDSN builds a file: URI for path. The path is made absolute and
// percent-encoded so that '#', '?' and '%' in directory names reach SQLite
// as part of the file name.
func fileDSN(path, query string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("open db: %w", err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: query}
	return u.String(), nil
}

func open(path, dsn string) (*DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: db, Path: path}, nil
}
