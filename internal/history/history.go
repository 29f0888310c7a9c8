// Package history provides a best-effort SQLite archive of chat
// messages. The database is opened lazily and created on first use; if
// opening or writing fails, the archive falls back to an in-memory copy.
// The authoritative conversation history lives in the session store —
// this archive only exists for audit and debugging.
package history

import (
	"database/sql"
	"os"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/openscholar/scholarship-agent/internal/logger"
	"github.com/openscholar/scholarship-agent/internal/session"
)

// Record is one archived message row.
type Record struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Sender    string    `json:"sender"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Archive stores message records in SQLite.
type Archive struct {
	mu       sync.Mutex
	fallback []Record // in-memory fallback

	openOnce sync.Once
	db       *sql.DB
	openErr  error

	path string
}

// NewArchive creates an archive backed by the given database file. An
// empty path uses HISTORY_DB_PATH or "history.db". The file is not
// touched until the first Save or List.
func NewArchive(path string) *Archive {
	if path == "" {
		path = os.Getenv("HISTORY_DB_PATH")
	}
	if path == "" {
		path = "history.db"
	}
	return &Archive{path: path}
}

func (a *Archive) open() {
	var err error
	a.db, err = sql.Open("sqlite", "file:"+a.path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		a.openErr = err
		logger.L.Warn("sqlite open failed; archiving messages in memory", "error", err)
		return
	}
	if _, err = a.db.Exec(`CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT,
        sender TEXT,
        type TEXT,
        content TEXT,
        created_at DATETIME
    );`); err != nil {
		a.openErr = err
		logger.L.Warn("sqlite table creation failed; archiving messages in memory", "error", err)
		return
	}
	logger.L.Info("message archive initialized", "path", a.path)
}

// Save archives a message. Failures are logged, never surfaced: the
// archive must not fail a conversation turn.
func (a *Archive) Save(sessionID string, msg session.Message) {
	a.openOnce.Do(a.open)

	rec := Record{
		SessionID: sessionID,
		Sender:    string(msg.Sender),
		Type:      string(msg.Type),
		Content:   msg.Content,
		CreatedAt: msg.Timestamp,
	}

	if a.openErr == nil && a.db != nil {
		_, err := a.db.Exec(
			`INSERT INTO messages (session_id, sender, type, content, created_at) VALUES (?,?,?,?,?);`,
			rec.SessionID, rec.Sender, rec.Type, rec.Content, rec.CreatedAt)
		if err == nil {
			return
		}
		logger.L.Error("failed to archive message in sqlite; keeping in memory", "error", err)
	}

	a.mu.Lock()
	a.fallback = append(a.fallback, rec)
	a.mu.Unlock()
}

// List returns all archived messages of a session in chronological order.
func (a *Archive) List(sessionID string) []Record {
	a.openOnce.Do(a.open)

	var out []Record
	if a.openErr == nil && a.db != nil {
		rows, err := a.db.Query(
			`SELECT id, session_id, sender, type, content, created_at FROM messages WHERE session_id = ? ORDER BY id ASC;`,
			sessionID)
		if err == nil {
			defer rows.Close()
			for rows.Next() {
				var r Record
				if err := rows.Scan(&r.ID, &r.SessionID, &r.Sender, &r.Type, &r.Content, &r.CreatedAt); err == nil {
					out = append(out, r)
				}
			}
			return out
		}
	}

	a.mu.Lock()
	for _, r := range a.fallback {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	a.mu.Unlock()
	return out
}

// Close closes the underlying database if it was opened.
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
