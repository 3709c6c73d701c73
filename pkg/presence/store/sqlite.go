// Package store persists the durable presence state (session registry and
// consent graph) in SQLite. The whole snapshot is replaced on every save;
// at this scale a transactional truncate-and-insert is simpler and safer
// than diffing.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/presence"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	identity   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS consent (
	session_id         TEXT NOT NULL,
	allowed_session_id TEXT NOT NULL,
	position           INTEGER NOT NULL,
	PRIMARY KEY (session_id, allowed_session_id)
);
`

// SQLite is a presence.Store backed by a single database file.
type SQLite struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path and ensures the schema.
func Open(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load reads the full snapshot. An empty database yields an empty snapshot,
// not an error.
func (s *SQLite) Load(ctx context.Context) (presence.Snapshot, error) {
	snap := presence.Snapshot{
		Sessions: make(map[string]string),
		Allowed:  make(map[string][]string),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT session_id, identity FROM sessions`)
	if err != nil {
		return presence.Snapshot{}, fmt.Errorf("load sessions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sessionID, identity string
		if err := rows.Scan(&sessionID, &identity); err != nil {
			return presence.Snapshot{}, fmt.Errorf("scan session: %w", err)
		}
		snap.Sessions[sessionID] = identity
	}
	if err := rows.Err(); err != nil {
		return presence.Snapshot{}, fmt.Errorf("iterate sessions: %w", err)
	}

	consentRows, err := s.db.QueryContext(ctx,
		`SELECT session_id, allowed_session_id FROM consent ORDER BY session_id, position`)
	if err != nil {
		return presence.Snapshot{}, fmt.Errorf("load consent: %w", err)
	}
	defer consentRows.Close()
	for consentRows.Next() {
		var viewer, allowed string
		if err := consentRows.Scan(&viewer, &allowed); err != nil {
			return presence.Snapshot{}, fmt.Errorf("scan consent edge: %w", err)
		}
		snap.Allowed[viewer] = append(snap.Allowed[viewer], allowed)
	}
	if err := consentRows.Err(); err != nil {
		return presence.Snapshot{}, fmt.Errorf("iterate consent: %w", err)
	}
	return snap, nil
}

// Save replaces both tables with the contents of snap in one transaction.
func (s *SQLite) Save(ctx context.Context, snap presence.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM consent`); err != nil {
		return fmt.Errorf("clear consent: %w", err)
	}

	for sessionID, identity := range snap.Sessions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (session_id, identity) VALUES (?, ?)`,
			sessionID, identity); err != nil {
			return fmt.Errorf("insert session %s: %w", sessionID, err)
		}
	}
	for viewer, list := range snap.Allowed {
		for position, allowed := range list {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO consent (session_id, allowed_session_id, position) VALUES (?, ?, ?)`,
				viewer, allowed, position); err != nil {
				return fmt.Errorf("insert consent edge %s->%s: %w", viewer, allowed, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}
