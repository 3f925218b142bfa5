package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gameserver_panel/internal/models"
)

type StatusSQLite struct {
	db *sql.DB
}

func NewStatusSQLite(db *sql.DB) *StatusSQLite {
	return &StatusSQLite{db: db}
}

const (
	upsertStatusSQL = `
		INSERT INTO server_status (session_id, status, message, public_ip, port, password, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			status=excluded.status,
			message=excluded.message,
			public_ip=excluded.public_ip,
			port=excluded.port,
			password=excluded.password,
			updated_at=excluded.updated_at
	`

	selectStatusSQL = `
		SELECT session_id, status, message, public_ip, port, password, updated_at
		FROM server_status WHERE session_id=?
	`

	deleteStatusSQL = `DELETE FROM server_status WHERE session_id = ?`
)

// Save replaces the session's snapshot.
func (r *StatusSQLite) Save(ctx context.Context, s models.StatusSnapshot) error {
	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertStatusSQL,
		s.SessionID,
		s.Status.Status,
		s.Status.Message,
		s.Status.PublicIP,
		s.Status.Port,
		s.Status.Password,
		formatTime(ts),
	)
	return err
}

// Load fetches the session's snapshot. A session that has seen no status yet gets a
// zero snapshot and no error.
func (r *StatusSQLite) Load(ctx context.Context, sessionID string) (models.StatusSnapshot, error) {
	row := r.db.QueryRowContext(ctx, selectStatusSQL, sessionID)

	var s models.StatusSnapshot
	if err := row.Scan(
		&s.SessionID,
		&s.Status.Status,
		&s.Status.Message,
		&s.Status.PublicIP,
		&s.Status.Port,
		&s.Status.Password,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StatusSnapshot{}, nil
		}
		return models.StatusSnapshot{}, err
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
