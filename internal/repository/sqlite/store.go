package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Store is the sqlite-backed local key-value store. Read and write failures
// are logged and degraded to misses/no-ops so a broken local database never
// breaks the in-memory session.
type Store struct {
	db  *sql.DB
	log *logrus.Entry
}

// Open opens (or creates) the database at path.
func Open(path string, log *logrus.Entry) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithField("path", path).Info("Local store opened")

	return &Store{db: db, log: log}, nil
}

// Migrate runs schema migrations from the given directory.
func (s *Store) Migrate(migrationsPath string) error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite3",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.log.Info("Local store migrations completed")
	return nil
}

// Get returns the value for key, or a miss when absent or on backend error.
func (s *Store) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			s.log.WithError(err).WithField("key", key).Warn("Local store read failed")
		}
		return "", false
	}
	return value, true
}

// Set stores the value under key, replacing any previous value.
func (s *Store) Set(key, value string) {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Local store write failed")
	}
}

// Delete removes the key if present.
func (s *Store) Delete(key string) {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Local store delete failed")
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
