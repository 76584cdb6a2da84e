// Package journal records vault activity in a local SQLite database.
//
// Entries form a tamper-evident hash chain: each row's chain value is
// the SHA-256 of the previous row's chain value concatenated with the
// row's content, so any edit or removal breaks verification from that
// point on. The journal is advisory; vault operations never fail
// because journaling failed.
package journal

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS activity (
	id       TEXT PRIMARY KEY,
	ts       INTEGER NOT NULL,
	vault_id TEXT NOT NULL DEFAULT '',
	op       TEXT NOT NULL,
	path     TEXT NOT NULL DEFAULT '',
	status   TEXT NOT NULL,
	detail   TEXT NOT NULL DEFAULT '',
	chain    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_ts ON activity(ts);
CREATE INDEX IF NOT EXISTS idx_activity_vault ON activity(vault_id);
`

// Entry is one recorded operation.
type Entry struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	VaultID string    `json:"vaultId,omitempty"`
	Op      string    `json:"op"`
	Path    string    `json:"path,omitempty"`
	Status  string    `json:"status"`
	Detail  string    `json:"detail,omitempty"`
	Chain   string    `json:"chain"`
}

// Statuses recorded for operations.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Journal wraps the activity database.
type Journal struct {
	conn *sql.DB
}

// Open opens (or creates) the journal database and applies the schema.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("journal: create dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &Journal{conn: conn}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.conn.Close()
}

// Append records an entry, linking it into the hash chain. The entry's
// id, timestamp and chain value are assigned here.
func (j *Journal) Append(vaultID, op, path, status, detail string) (Entry, error) {
	tx, err := j.conn.Begin()
	if err != nil {
		return Entry{}, fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var prev string
	err = tx.QueryRow(`SELECT chain FROM activity ORDER BY ts DESC, rowid DESC LIMIT 1`).Scan(&prev)
	if err != nil && err != sql.ErrNoRows {
		return Entry{}, fmt.Errorf("journal: read chain head: %w", err)
	}

	e := Entry{
		ID:      uuid.NewString(),
		Time:    time.Now(),
		VaultID: vaultID,
		Op:      op,
		Path:    path,
		Status:  status,
		Detail:  detail,
	}
	e.Chain = chainHash(prev, e)

	_, err = tx.Exec(`
		INSERT INTO activity (id, ts, vault_id, op, path, status, detail, chain)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Time.UnixMilli(), e.VaultID, e.Op, e.Path, e.Status, e.Detail, e.Chain)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("journal: commit: %w", err)
	}
	return e, nil
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(n int) ([]Entry, error) {
	rows, err := j.conn.Query(`
		SELECT id, ts, vault_id, op, path, status, detail, chain
		FROM activity ORDER BY ts DESC, rowid DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.VaultID, &e.Op, &e.Path, &e.Status, &e.Detail, &e.Chain); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Time = time.UnixMilli(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// VerifyChain walks the whole journal oldest-first and recomputes every
// chain value. It returns the number of verified entries, or an error
// naming the first entry that does not match.
func (j *Journal) VerifyChain() (int, error) {
	rows, err := j.conn.Query(`
		SELECT id, ts, vault_id, op, path, status, detail, chain
		FROM activity ORDER BY ts ASC, rowid ASC
	`)
	if err != nil {
		return 0, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var prev string
	count := 0
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.VaultID, &e.Op, &e.Path, &e.Status, &e.Detail, &e.Chain); err != nil {
			return count, fmt.Errorf("journal: scan: %w", err)
		}
		e.Time = time.UnixMilli(ts)

		if chainHash(prev, e) != e.Chain {
			return count, fmt.Errorf("journal: chain broken at entry %s", e.ID)
		}
		prev = e.Chain
		count++
	}
	return count, rows.Err()
}

// chainHash links an entry to its predecessor. The timestamp is part of
// the hashed content so entries cannot be silently reordered.
func chainHash(prev string, e Entry) string {
	h := sha256.New()
	h.Write([]byte(prev))
	fmt.Fprintf(h, "%s|%d|%s|%s|%s|%s|%s", e.ID, e.Time.UnixMilli(), e.VaultID, e.Op, e.Path, e.Status, e.Detail)
	return hex.EncodeToString(h.Sum(nil))
}
