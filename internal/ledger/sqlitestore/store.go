// Package sqlitestore persists the attribution ledger in SQLite so the
// audit trail survives process restarts. The schema is a single
// append-only table; entries are never updated or deleted.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"conclave/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	id           TEXT PRIMARY KEY,
	scope        TEXT NOT NULL,
	type         TEXT NOT NULL,
	source       TEXT NOT NULL,
	target       TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT '',
	payload      TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	impact_score REAL NOT NULL,
	verified     INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL,
	seq          INTEGER
);
CREATE INDEX IF NOT EXISTS idx_ledger_scope ON ledger_entries(scope, seq);
`

// Store is a SQLite-backed ports.LedgerStore.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path. Pass
// ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append stores the entry and returns its id. A duplicate id fails on the
// primary key, preserving the append-only contract.
func (s *Store) Append(ctx context.Context, entry ports.LedgerEntry) (string, error) {
	if entry.ID == "" {
		return "", fmt.Errorf("entry has no id")
	}
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries
			(id, scope, type, source, target, summary, payload, content_hash, impact_score, verified, created_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM ledger_entries))`,
		entry.ID, entry.Scope, string(entry.Type), entry.Source, entry.Target,
		entry.Summary, string(payload), entry.ContentHash, entry.ImpactScore,
		boolToInt(entry.Verified), entry.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("insert ledger entry: %w", err)
	}
	return entry.ID, nil
}

// Get reloads an entry by id.
func (s *Store) Get(ctx context.Context, id string) (*ports.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scope, type, source, target, summary, payload, content_hash, impact_score, verified, created_at
		FROM ledger_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entry %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns a scope's entries matching the filter, in append order.
func (s *Store) List(ctx context.Context, scope string, filter ports.LedgerFilter) ([]ports.LedgerEntry, error) {
	query := `
		SELECT id, scope, type, source, target, summary, payload, content_hash, impact_score, verified, created_at
		FROM ledger_entries WHERE scope = ?`
	args := []any{scope}

	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, string(filter.Type))
	}
	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}
	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UTC().UnixMilli())
	}
	if !filter.Until.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.Until.UTC().UnixMilli())
	}
	query += " ORDER BY seq ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []ports.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*ports.LedgerEntry, error) {
	var (
		entry      ports.LedgerEntry
		entryType  string
		payloadRaw string
		verified   int
		createdAt  int64
	)
	err := row.Scan(&entry.ID, &entry.Scope, &entryType, &entry.Source, &entry.Target,
		&entry.Summary, &payloadRaw, &entry.ContentHash, &entry.ImpactScore, &verified, &createdAt)
	if err != nil {
		return nil, err
	}

	entry.Type = ports.InteractionType(entryType)
	entry.Verified = verified != 0
	entry.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := json.Unmarshal([]byte(payloadRaw), &entry.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload of %s: %w", entry.ID, err)
	}
	return &entry, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
