// Package store persists API key records and limiter windows in libSQL,
// either a local SQLite file or a remote Turso database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/streamrand/streamrand/internal/config"
)

const (
	driverLibsql = "libsql"
	memoryPath   = ":memory:"
	filePrefix   = "file:"
)

// Store wraps the database connection holding API keys and limiter windows.
type Store struct {
	DB     *sql.DB
	driver string
}

// location is a resolved connection target. Local file databases get
// SQLite tuning after the connection opens.
type location struct {
	dsn   string
	local bool
}

// Open connects to the configured database and verifies it answers a ping.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = driverLibsql
	}
	if driver != driverLibsql {
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}

	loc, err := resolveLocation(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverLibsql, loc.dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql store: %w", err)
	}
	if err := prepare(ctx, db, loc); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{DB: db, driver: driver}, nil
}

func prepare(ctx context.Context, db *sql.DB, loc location) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping libsql store: %w", err)
	}
	if !loc.local {
		return nil
	}

	// One writer connection; WAL lets readers proceed while it holds the lock.
	db.SetMaxOpenConns(1)
	pragmas := []struct{ name, stmt string }{
		{"enable wal", "PRAGMA journal_mode=WAL"},
		{"set busy timeout", "PRAGMA busy_timeout=5000"},
	}
	for _, p := range pragmas {
		var result string
		if err := db.QueryRowContext(ctx, p.stmt).Scan(&result); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	return nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// CheckHealth pings the database.
func (s *Store) CheckHealth(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store not open")
	}
	return s.DB.PingContext(ctx)
}

// Driver returns the configured store driver.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// resolveLocation turns the url or path settings into a DSN. A url wins
// over a path; bare paths become file: DSNs and their directory is created.
func resolveLocation(cfg config.StoreConfig) (location, error) {
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		dsn, err := withAuthToken(raw, strings.TrimSpace(cfg.AuthToken))
		return location{dsn: dsn}, err
	}

	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "":
		return location{}, errors.New("store path or url is required")
	case path == memoryPath:
		return location{dsn: memoryPath}, nil
	case strings.HasPrefix(path, "libsql:"):
		return location{dsn: path}, nil
	case strings.HasPrefix(path, filePrefix):
		parsed, err := url.Parse(path)
		if err != nil {
			return location{}, fmt.Errorf("invalid store path: %w", err)
		}
		local := parsed.Path
		if local == "" {
			local = parsed.Opaque
		}
		if err := makeParentDir(strings.TrimPrefix(local, "//")); err != nil {
			return location{}, err
		}
		return location{dsn: path, local: true}, nil
	default:
		path = filepath.Clean(path)
		if err := makeParentDir(path); err != nil {
			return location{}, err
		}
		return location{dsn: filePrefix + path, local: true}, nil
	}
}

// withAuthToken adds token to the url query unless one is already present.
func withAuthToken(raw, token string) (string, error) {
	if token == "" {
		return raw, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	query := parsed.Query()
	if query.Get("authToken") != "" {
		return raw, nil
	}
	query.Set("authToken", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func makeParentDir(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
