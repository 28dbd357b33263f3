package kvstore

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const kvTable = `CREATE TABLE IF NOT EXISTS kv (
			"Key" TEXT NOT NULL PRIMARY KEY,
			"Value" BLOB NOT NULL,
			"UpdatedAt" TEXT);`

// SQLite keeps entries in a single table of a local sqlite database
type SQLite struct {
	DB   *sql.DB
	Path string
}

// DefaultPath is ~/.daiverp/daiverp.db, or daiverpdata/daiverp.db in the
// working directory on windows.
func DefaultPath() (string, error) {
	dir, err := getHomeDir()
	if err != nil {
		return "", err
	}

	if runtime.GOOS == "windows" {
		return filepath.Join(dir, "daiverpdata", "daiverp.db"), nil
	}
	return filepath.Join(dir, ".daiverp", "daiverp.db"), nil
}

// Open creates the database file and its folder when missing
func Open(path string) (*SQLite, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, errors.Wrap(err, "could not resolve store path")
		}
	}

	if path != ":memory:" {
		if err := mkFolder(filepath.Dir(path)); err != nil {
			return nil, errors.Wrap(err, "could not create store folder")
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}

	// sqlite serialises writers anyway, one connection avoids "database is locked"
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(kvTable); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "could not create kv table")
	}

	slog.Debug("opened store", "path", path)
	return &SQLite{DB: db, Path: path}, nil
}

func (s *SQLite) Close() error {
	return s.DB.Close()
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.DB.QueryRowContext(ctx, `SELECT "Value" FROM kv WHERE "Key" = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *SQLite) PutIfAbsent(ctx context.Context, key string, value []byte) ([]byte, error) {
	_, err := s.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO kv ("Key", "Value", "UpdatedAt") VALUES (?, ?, ?)`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}

	stored, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Errorf("key %s vanished after insert", key)
	}
	return stored, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT OR REPLACE INTO kv ("Key", "Value", "UpdatedAt") VALUES (?, ?, ?)`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM kv WHERE "Key" = ?`, key)
	return err
}

func getHomeDir() (string, error) {
	if runtime.GOOS == "windows" {
		dir, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return dir, nil
	}

	return os.UserHomeDir()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func mkFolder(path string) error {
	if !exists(path) {
		return os.MkdirAll(path, os.FileMode(0755))
	}
	return nil
}
