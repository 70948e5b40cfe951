package backup

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// catalogDB indexes BackupEntry rows in a pure-Go (CGO-free) SQLite
// database, so `backup list`/`delete_oldest`/rotation-due lookups don't
// require globbing the blob directory. One open *sql.DB per Manager.
type catalogDB struct {
	db *sql.DB
}

func openCatalogDB(path string) (*catalogDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup catalog: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open backup catalog: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		file TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		created_at TEXT NOT NULL,
		encrypted INTEGER NOT NULL,
		size_bytes INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id);
	CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize backup catalog schema: %w", err)
	}
	return &catalogDB{db: db}, nil
}

func (c *catalogDB) Close() error { return c.db.Close() }

func (c *catalogDB) insert(e Entry) error {
	_, err := c.db.Exec(
		`INSERT INTO entries (id, session_id, file, content_hash, created_at, encrypted, size_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.File, e.ContentHash, e.CreatedAt.Format(time.RFC3339Nano), boolToInt(e.Encrypted), e.SizeBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert backup entry: %w", err)
	}
	return nil
}

func (c *catalogDB) find(id string) (Entry, error) {
	row := c.db.QueryRow(
		`SELECT id, session_id, file, content_hash, created_at, encrypted, size_bytes FROM entries WHERE id = ?`, id)
	return scanEntry(row)
}

func (c *catalogDB) listBySession(sessionID string) ([]Entry, error) {
	var rows *sql.Rows
	var err error
	if sessionID == "" {
		rows, err = c.db.Query(`SELECT id, session_id, file, content_hash, created_at, encrypted, size_bytes FROM entries ORDER BY created_at DESC`)
	} else {
		rows, err = c.db.Query(`SELECT id, session_id, file, content_hash, created_at, encrypted, size_bytes FROM entries WHERE session_id = ? ORDER BY created_at DESC`, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list backup entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntryRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *catalogDB) oldestSessionsBeyond(retain int) ([]string, error) {
	rows, err := c.db.Query(`SELECT session_id, MIN(created_at) AS first_seen FROM entries GROUP BY session_id ORDER BY first_seen ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate backup sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var sid, firstSeen string
		if err := rows.Scan(&sid, &firstSeen); err != nil {
			return nil, err
		}
		sessions = append(sessions, sid)
	}
	if len(sessions) <= retain {
		return nil, nil
	}
	return sessions[:len(sessions)-retain], nil
}

func (c *catalogDB) deleteSession(sessionID string) error {
	_, err := c.db.Exec(`DELETE FROM entries WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session entries: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row *sql.Row) (Entry, error) {
	return scanEntryRows(row)
}

func scanEntryRows(r rowScanner) (Entry, error) {
	var e Entry
	var createdAt string
	var encrypted int
	if err := r.Scan(&e.ID, &e.SessionID, &e.File, &e.ContentHash, &createdAt, &encrypted, &e.SizeBytes); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("failed to scan backup entry: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to parse backup entry timestamp: %w", err)
	}
	e.CreatedAt = t
	e.Encrypted = encrypted != 0
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
