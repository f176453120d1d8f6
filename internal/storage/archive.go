// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/driftlabs/drift-tui/internal/model"
)

// =============================================================================
// ERRORS AND SCHEMA
// =============================================================================

var (
	ErrNotFound = errors.New("session not archived")
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	status      TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session
	ON messages(session_id, position);
CREATE INDEX IF NOT EXISTS idx_sessions_updated
	ON sessions(updated_at DESC);
`

// =============================================================================
// ARCHIVE
// =============================================================================

// Archive is a SQLite-backed session history.
type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at path.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	// SQLite allows one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configuring archive: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing archive schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close releases the database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}

// =============================================================================
// SAVE
// =============================================================================

// Save upserts a session and replaces its messages. Messages keep their
// in-session order via an explicit position column.
func (a *Archive) Save(sess *model.Session) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at`,
		sess.ID, sess.Title, sess.CreatedAt.UnixMilli(), sess.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (id, session_id, position, role, content, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing message insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range sess.Messages {
		_, err := stmt.Exec(msg.ID, sess.ID, i, string(msg.Role), msg.Content,
			string(msg.Status), msg.CreatedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("saving message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// LOAD AND LIST
// =============================================================================

// Load retrieves an archived session with its messages in order.
func (a *Archive) Load(id string) (*model.Session, error) {
	sess := &model.Session{}
	var created, updated int64
	err := a.db.QueryRow(`
		SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?`,
		id).Scan(&sess.ID, &sess.Title, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	sess.CreatedAt = time.UnixMilli(created)
	sess.UpdatedAt = time.UnixMilli(updated)

	rows, err := a.db.Query(`
		SELECT id, role, content, status, created_at
		FROM messages WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		msg := &model.Message{}
		var role, status string
		var msgCreated int64
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &status, &msgCreated); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Role = model.Role(role)
		msg.Status = model.Status(status)
		msg.CreatedAt = time.UnixMilli(msgCreated)
		sess.Messages = append(sess.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}

	return sess, nil
}

// List returns metadata for every archived session, most recently
// updated first.
func (a *Archive) List() ([]model.Meta, error) {
	rows, err := a.db.Query(`
		SELECT s.id, s.title, s.created_at, s.updated_at, COUNT(m.id)
		FROM sessions s
		LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

// Search returns sessions whose title or message content matches the
// query, most recently updated first.
func (a *Archive) Search(query string) ([]model.Meta, error) {
	pattern := "%" + query + "%"
	rows, err := a.db.Query(`
		SELECT s.id, s.title, s.created_at, s.updated_at,
			(SELECT COUNT(*) FROM messages WHERE session_id = s.id)
		FROM sessions s
		WHERE s.title LIKE ? OR s.id IN
			(SELECT session_id FROM messages WHERE content LIKE ?)
		ORDER BY s.updated_at DESC`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("searching sessions: %w", err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

func scanMetas(rows *sql.Rows) ([]model.Meta, error) {
	var metas []model.Meta
	for rows.Next() {
		var m model.Meta
		var created, updated int64
		if err := rows.Scan(&m.ID, &m.Title, &created, &updated, &m.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		m.CreatedAt = time.UnixMilli(created)
		m.UpdatedAt = time.UnixMilli(updated)
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading session rows: %w", err)
	}
	return metas, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes an archived session and its messages.
func (a *Archive) Delete(id string) error {
	res, err := a.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every archived session.
func (a *Archive) Clear() error {
	if _, err := a.db.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clearing archive: %w", err)
	}
	return nil
}
