package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gameserver_panel/internal/models"
)

type SessionSQLite struct {
	db *sql.DB
}

func NewSessionSQLite(db *sql.DB) *SessionSQLite {
	return &SessionSQLite{db: db}
}

// Ensure implementation of SessionRepo interface at compile time.
var _ SessionRepo = (*SessionSQLite)(nil)

const (
	insertSessionSQL   = `INSERT INTO panel_sessions (id, username, provider, pending, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`
	selectSessionSQL   = `SELECT id, username, provider, pending, created_at, expires_at FROM panel_sessions WHERE id = ?`
	activateSessionSQL = `UPDATE panel_sessions SET pending = 0, expires_at = ? WHERE id = ?`
	extendSessionSQL   = `UPDATE panel_sessions SET expires_at = ? WHERE id = ?`
	deleteSessionSQL   = `DELETE FROM panel_sessions WHERE id = ?`
	expiredSessionsSQL = `SELECT id FROM panel_sessions WHERE expires_at <= ? ORDER BY expires_at ASC`
)

// Create inserts a new panel session.
func (r *SessionSQLite) Create(ctx context.Context, s models.PanelSession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, insertSessionSQL,
		s.ID, s.Username, s.Provider, s.Pending, formatTime(s.CreatedAt), formatTime(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("insert session %q: %w", s.ID, err)
	}
	return nil
}

// Get fetches a session by id. Returns (nil, nil) if not found.
func (r *SessionSQLite) Get(ctx context.Context, id string) (*models.PanelSession, error) {
	var s models.PanelSession
	err := r.db.QueryRowContext(ctx, selectSessionSQL, id).
		Scan(&s.ID, &s.Username, &s.Provider, &s.Pending, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select session %q: %w", id, err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	return &s, nil
}

// Activate clears the pending-challenge flag and moves the expiry.
func (r *SessionSQLite) Activate(ctx context.Context, id string, expiresAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, activateSessionSQL, formatTime(expiresAt), id); err != nil {
		return fmt.Errorf("activate session %q: %w", id, err)
	}
	return nil
}

// Extend moves the expiry without touching the pending flag.
func (r *SessionSQLite) Extend(ctx context.Context, id string, expiresAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, extendSessionSQL, formatTime(expiresAt), id); err != nil {
		return fmt.Errorf("extend session %q: %w", id, err)
	}
	return nil
}

// Delete removes the session together with its status and events.
func (r *SessionSQLite) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete session %q: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{deleteEventsSQL, deleteStatusSQL, deleteSessionSQL} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete session %q: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete session %q: %w", id, err)
	}
	return nil
}

// Expired returns the ids of sessions whose expiry is at or before now.
func (r *SessionSQLite) Expired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, expiredSessionsSQL, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("select expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
