package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"learnbytech/internal/repository"
)

// Open opens (or creates) a sqlite database at the given path and ensures directories exist.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// a single connection serialises writers; sqlite handles the rest
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return db, nil
}

// uniqueViolation maps a sqlite UNIQUE constraint failure on the users table
// to the matching repository sentinel. It returns nil for any other error.
func uniqueViolation(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique") {
		return nil
	}
	switch {
	case strings.Contains(msg, "users.username"):
		return repository.ErrUsernameTaken
	case strings.Contains(msg, "users.email"):
		return repository.ErrEmailTaken
	default:
		return nil
	}
}
