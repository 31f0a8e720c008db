// Package store persists deployment classifications in a local SQLite
// database so repeated CLI invocations skip the detection probe.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/dverbeek/agent-skills/internal/atlassian"
)

// defaultTTL is how long a cached deployment classification stays
// valid. Installations migrate rarely; a day is plenty.
const defaultTTL = 24 * time.Hour

// SQLiteStore implements atlassian.Store using a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

// DefaultPath returns the default database path, honoring
// XDG_CACHE_HOME (~/.cache/skills/skills.db on Linux).
func DefaultPath() string {
	path, err := xdg.CacheFile(filepath.Join("skills", "skills.db"))
	if err != nil {
		return filepath.Join(".", "skills.db")
	}
	return path
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// SQLite allows a single writer, and :memory: databases exist
	// per connection, so pin the pool to one connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, ttl: defaultTTL, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Deployment returns the cached classification for baseURL, or nil
// when no entry exists or the entry has outlived its TTL.
func (s *SQLiteStore) Deployment(ctx context.Context, baseURL string) (*atlassian.Info, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT base_url, product, deployment, version, detected_at FROM deployments WHERE base_url = ?",
		baseURL,
	)

	var (
		info       atlassian.Info
		deployment string
		detectedAt time.Time
	)
	err := row.Scan(&info.BaseURL, &info.Product, &deployment, &info.Version, &detectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning deployment row: %w", err)
	}

	info.Deployment = atlassian.Deployment(deployment)
	info.DetectedAt = detectedAt

	if s.now().Sub(detectedAt) > s.ttl {
		return nil, nil
	}

	return &info, nil
}

// SaveDeployment inserts or replaces the classification for a base URL.
func (s *SQLiteStore) SaveDeployment(ctx context.Context, info *atlassian.Info) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO deployments (base_url, product, deployment, version, detected_at)
		VALUES (?, ?, ?, ?, ?)`,
		info.BaseURL, info.Product, string(info.Deployment), info.Version, info.DetectedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving deployment for %s: %w", info.BaseURL, err)
	}
	return nil
}

// List returns all cached deployments, newest first, including entries
// past their TTL.
func (s *SQLiteStore) List(ctx context.Context) ([]atlassian.Info, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT base_url, product, deployment, version, detected_at FROM deployments ORDER BY detected_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying deployments: %w", err)
	}
	defer rows.Close()

	var infos []atlassian.Info
	for rows.Next() {
		var (
			info       atlassian.Info
			deployment string
			detectedAt time.Time
		)
		if err := rows.Scan(&info.BaseURL, &info.Product, &deployment, &info.Version, &detectedAt); err != nil {
			return nil, fmt.Errorf("scanning deployment row: %w", err)
		}
		info.Deployment = atlassian.Deployment(deployment)
		info.DetectedAt = detectedAt
		infos = append(infos, info)
	}

	return infos, rows.Err()
}

// Prune deletes entries older than the TTL and returns how many were
// removed.
func (s *SQLiteStore) Prune(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl).UTC()
	res, err := s.db.ExecContext(ctx, "DELETE FROM deployments WHERE detected_at <= ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning deployments: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all cached deployments.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM deployments"); err != nil {
		return fmt.Errorf("clearing deployments: %w", err)
	}
	return nil
}
