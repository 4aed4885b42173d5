package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mmcdole/kinosync/internal/domain"
)

// SQLiteStore is the authoritative per-user store served by the reference
// backend. It uses modernc.org/sqlite for CGO-less builds.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	now    func() time.Time
}

// NewSQLiteStore creates a store pointing to dbPath. Call Init before using it.
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return &SQLiteStore{dbPath: dbPath, now: time.Now}
}

// Init opens the database, configures pragmas and ensures the schema exists.
func (s *SQLiteStore) Init() error {
	if s.db != nil {
		return nil
	}
	if s.dbPath == "" {
		return fmt.Errorf("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA synchronous=NORMAL;`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS play_records (
			user       TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (user, key)
		)`,
		`CREATE TABLE IF NOT EXISTS favorites (
			user       TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (user, key)
		)`,
		`CREATE TABLE IF NOT EXISTS search_history (
			user     TEXT NOT NULL,
			keyword  TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (user, keyword)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_history_position ON search_history(user, position DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// RecordTable holds one keyed collection per user as JSON values.
type RecordTable struct {
	s     *SQLiteStore
	table string
}

// PlayRecords returns the watch-progress table.
func (s *SQLiteStore) PlayRecords() *RecordTable {
	return &RecordTable{s: s, table: "play_records"}
}

// Favorites returns the favorites table.
func (s *SQLiteStore) Favorites() *RecordTable {
	return &RecordTable{s: s, table: "favorites"}
}

// All returns every record of user keyed by composite key.
func (t *RecordTable) All(ctx context.Context, user string) (map[string]json.RawMessage, error) {
	if t.s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	rows, err := t.s.db.QueryContext(ctx, `SELECT key, value FROM `+t.table+` WHERE user=?`, user)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.table, err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.table, err)
		}
		out[key] = json.RawMessage(value)
	}
	return out, rows.Err()
}

// Put inserts or replaces the record under key.
func (t *RecordTable) Put(ctx context.Context, user, key string, value json.RawMessage) error {
	if t.s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	if err := domain.ValidateKey(key); err != nil {
		return err
	}
	_, err := t.s.db.ExecContext(ctx,
		`INSERT INTO `+t.table+` (user, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user, key) DO UPDATE SET
		   value=excluded.value,
		   updated_at=excluded.updated_at`,
		user, key, string(value), t.s.now().UnixMilli(),
	)
	return err
}

// Delete removes the record under key (no error if absent).
func (t *RecordTable) Delete(ctx context.Context, user, key string) error {
	if t.s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	_, err := t.s.db.ExecContext(ctx, `DELETE FROM `+t.table+` WHERE user=? AND key=?`, user, key)
	return err
}

// Clear removes every record of user.
func (t *RecordTable) Clear(ctx context.Context, user string) error {
	if t.s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	_, err := t.s.db.ExecContext(ctx, `DELETE FROM `+t.table+` WHERE user=?`, user)
	return err
}

// History returns user's keywords, most recent first.
func (s *SQLiteStore) History(ctx context.Context, user string) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword FROM search_history WHERE user=? ORDER BY position DESC LIMIT ?`,
		user, domain.MaxSearchHistory,
	)
	if err != nil {
		return nil, fmt.Errorf("query search_history: %w", err)
	}
	defer rows.Close()

	keywords := []string{}
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("scan search_history: %w", err)
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

// AddKeyword moves keyword to the front of user's history, trimming the
// history to its maximum length.
func (s *SQLiteStore) AddKeyword(ctx context.Context, user, keyword string) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	if keyword == "" {
		return domain.ErrEmptyKeyword
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO search_history (user, keyword, position)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM search_history WHERE user=?))
		 ON CONFLICT(user, keyword) DO UPDATE SET position=excluded.position`,
		user, keyword, user,
	); err != nil {
		return fmt.Errorf("insert keyword: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM search_history
		 WHERE user=? AND keyword NOT IN (
		   SELECT keyword FROM search_history WHERE user=? ORDER BY position DESC LIMIT ?
		 )`,
		user, user, domain.MaxSearchHistory,
	); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	return tx.Commit()
}

// RemoveKeyword deletes keyword from user's history (no error if absent).
func (s *SQLiteStore) RemoveKeyword(ctx context.Context, user, keyword string) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_history WHERE user=? AND keyword=?`, user, keyword)
	return err
}

// ClearHistory removes user's whole history.
func (s *SQLiteStore) ClearHistory(ctx context.Context, user string) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_history WHERE user=?`, user)
	return err
}
