package mappingstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// timestampLayout is fixed width so resolved_at sorts chronologically as text.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// SQLiteStore keeps mappings in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the mapping database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite mapping store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create mapping store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the mapping for (source, canonicalID).
func (s *SQLiteStore) Get(ctx context.Context, source, canonicalID string) (Mapping, bool, error) {
	ctx = ensureContext(ctx)
	source, canonicalID, err := normalizeKey(source, canonicalID)
	if err != nil {
		return Mapping{}, false, err
	}

	var (
		m          Mapping
		resolvedAt string
	)
	err = retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT source, canonical_id, source_id, matched_title, score, resolved_at
			FROM mappings WHERE source = ? AND canonical_id = ?`,
			source, canonicalID,
		).Scan(&m.Source, &m.CanonicalID, &m.SourceID, &m.MatchedTitle, &m.Score, &resolvedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Mapping{}, false, nil
	}
	if err != nil {
		return Mapping{}, false, fmt.Errorf("get mapping: %w", err)
	}
	if m.ResolvedAt, err = parseTimeString(resolvedAt); err != nil {
		return Mapping{}, false, fmt.Errorf("parse resolved_at: %w", err)
	}
	return m, true, nil
}

// Set upserts a mapping.
func (s *SQLiteStore) Set(ctx context.Context, m Mapping) error {
	m, err := normalizeMapping(m)
	if err != nil {
		return err
	}
	return s.execWithoutResultRetry(ctx,
		`INSERT INTO mappings (source, canonical_id, source_id, matched_title, score, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, canonical_id) DO UPDATE SET
			source_id = excluded.source_id,
			matched_title = excluded.matched_title,
			score = excluded.score,
			resolved_at = excluded.resolved_at`,
		m.Source, m.CanonicalID, m.SourceID, m.MatchedTitle, m.Score, m.ResolvedAt.UTC().Format(timestampLayout),
	)
}

// Delete removes the mapping for (source, canonicalID) if present.
func (s *SQLiteStore) Delete(ctx context.Context, source, canonicalID string) error {
	source, canonicalID, err := normalizeKey(source, canonicalID)
	if err != nil {
		return err
	}
	return s.execWithoutResultRetry(ctx,
		"DELETE FROM mappings WHERE source = ? AND canonical_id = ?", source, canonicalID)
}

// List returns mappings newest first.
func (s *SQLiteStore) List(ctx context.Context, source string) ([]Mapping, error) {
	ctx = ensureContext(ctx)
	source = strings.ToLower(strings.TrimSpace(source))

	query := `SELECT source, canonical_id, source_id, matched_title, score, resolved_at FROM mappings`
	var args []any
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " ORDER BY resolved_at DESC, source, canonical_id"

	var mappings []Mapping
	err := retryOnBusy(ctx, func() error {
		mappings = mappings[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				m          Mapping
				resolvedAt string
			)
			if err := rows.Scan(&m.Source, &m.CanonicalID, &m.SourceID, &m.MatchedTitle, &m.Score, &resolvedAt); err != nil {
				return err
			}
			if m.ResolvedAt, err = parseTimeString(resolvedAt); err != nil {
				return fmt.Errorf("parse resolved_at: %w", err)
			}
			mappings = append(mappings, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return mappings, nil
}

// Clear removes mappings for source, or every mapping when source is empty.
func (s *SQLiteStore) Clear(ctx context.Context, source string) (int, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	var (
		res sql.Result
		err error
	)
	if source == "" {
		res, err = s.execWithRetry(ctx, "DELETE FROM mappings")
	} else {
		res, err = s.execWithRetry(ctx, "DELETE FROM mappings WHERE source = ?", source)
	}
	if err != nil {
		return 0, fmt.Errorf("clear mappings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear mappings: %w", err)
	}
	return int(affected), nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'sourcelink mapping clear' or delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SQLiteStore) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
