package repository

import (
	"context"
	"database/sql"
	"time"

	"gameserver_panel/internal/models"
)

// SessionRepo keeps the bookkeeping of panel sessions. Live controllers stay in the
// service layer; this is what survives between requests.
type SessionRepo interface {
	Create(ctx context.Context, s models.PanelSession) error
	Get(ctx context.Context, id string) (*models.PanelSession, error)
	Activate(ctx context.Context, id string, expiresAt time.Time) error
	Extend(ctx context.Context, id string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	Expired(ctx context.Context, now time.Time) ([]string, error)
}

type StatusRepo interface {
	Save(ctx context.Context, s models.StatusSnapshot) error
	Load(ctx context.Context, sessionID string) (models.StatusSnapshot, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.PanelEvent) error
	List(ctx context.Context, sessionID string, from, to time.Time, typ string) ([]models.PanelEvent, error)
}

type Repository struct {
	Sessions   SessionRepo
	StatusRepo StatusRepo
	EventRepo  EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Sessions:   NewSessionSQLite(db),
		StatusRepo: NewStatusSQLite(db),
		EventRepo:  NewEventSQLite(db),
	}
}

// timeLayout is fixed-width so that stored timestamps compare correctly as text.
const timeLayout = "2006-01-02 15:04:05.000000000"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }
