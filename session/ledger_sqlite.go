package session

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go).
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS seen_sessions (
	session_id TEXT PRIMARY KEY,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS seen_sessions_expiry ON seen_sessions (expires_at);
`

// SQLiteLedger is the default replay ledger: a small local SQLite
// database in the agent's state directory. Expired entries are deleted
// on every Record call, keeping the table bounded by the 30-day session
// horizon without a background task.
type SQLiteLedger struct {
	db *sql.DB
}

// OpenSQLiteLedger opens (and if needed creates) the ledger database in
// dir.
func OpenSQLiteLedger(dir string) (*SQLiteLedger, error) {
	dsn := "file:" + filepath.ToSlash(filepath.Join(dir, "replay-ledger.db"))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open replay ledger: %w", err)
	}
	// The ledger is touched by at most one store/load at a time; a single
	// connection sidesteps SQLite writer contention.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(ledgerSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init replay ledger: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

// Record prunes expired entries, then inserts sessionID. A conflicting
// insert means the ID was already consumed.
func (l *SQLiteLedger) Record(ctx context.Context, sessionID string, expiresAt time.Time) (bool, error) {
	now := time.Now().Unix()

	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM seen_sessions WHERE expires_at <= ?`, now); err != nil {
		return false, fmt.Errorf("prune replay ledger: %w", err)
	}

	res, err := l.db.ExecContext(ctx,
		`INSERT INTO seen_sessions (session_id, expires_at) VALUES (?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		sessionID, expiresAt.Unix())
	if err != nil {
		return false, fmt.Errorf("record session id: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record session id: %w", err)
	}
	return inserted == 0, nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
