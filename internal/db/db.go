package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stationdb/internal/config"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// ErrStoreLocked is returned by Reset when the store file cannot be removed.
var ErrStoreLocked = errors.New("store file cannot be removed")

func Open(cfg config.Config) (*sql.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.LogSQL {
		connector, err := NewLoggingConnector(cfg.Driver, dsn, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	// One writer; keep the pool small.
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// Validate connectivity early; this also creates the file.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// Reset deletes the store file at path together with its WAL and shared-memory
// files. path may use the file: URI form accepted by Open. A missing file is
// not an error.
func Reset(path string) (removed bool, err error) {
	path = StorePath(path)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		rmErr := os.Remove(p)
		switch {
		case rmErr == nil:
			if p == path {
				removed = true
			}
		case errors.Is(rmErr, fs.ErrNotExist):
		case errors.Is(rmErr, fs.ErrPermission):
			return removed, fmt.Errorf("%w: %s: %v", ErrStoreLocked, p, rmErr)
		default:
			return removed, fmt.Errorf("remove %s: %w", p, rmErr)
		}
	}
	return removed, nil
}

func buildDSN(cfg config.Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	path := cfg.Path
	dir := filepath.Dir(StorePath(path))
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := dsnParams(cfg.Driver, cfg.EnforceForeignKeys())

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// StorePath returns the file system path of the store named by path, which is
// either a plain path or a file: URI with optional query parameters.
func StorePath(path string) string {
	if !strings.HasPrefix(path, "file:") {
		return path
	}
	path = strings.TrimPrefix(path, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// dsnParams returns the connection parameters in the syntax each driver understands.
// mattn/go-sqlite3 takes underscore options, modernc.org/sqlite takes _pragma=name(value).
func dsnParams(driver string, foreignKeys bool) []string {
	fk := "off"
	if foreignKeys {
		fk = "on"
	}
	if driver == "sqlite" {
		fkVal := "0"
		if foreignKeys {
			fkVal = "1"
		}
		return []string{
			"_pragma=foreign_keys(" + fkVal + ")",
			"_pragma=busy_timeout(5000)",
			"_pragma=journal_mode(WAL)",
		}
	}
	return []string{
		"_foreign_keys=" + fk,
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}
}
