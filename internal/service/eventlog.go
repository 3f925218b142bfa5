package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gameserver_panel/internal/models"
	"gameserver_panel/internal/repository"
)

var ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

// List returns the session's events matching f, oldest first.
func (s *EventLogService) List(ctx context.Context, sessionID string, f LogFilter) ([]models.PanelEvent, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	f, err := f.normalize()
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, sessionID, f.From, f.To, f.Type)
}

// normalize converts bounds to UTC, canonicalizes the type and checks the range.
func (f LogFilter) normalize() (LogFilter, error) {
	out := LogFilter{
		From: normalizeToUTC(f.From),
		To:   normalizeToUTC(f.To),
		Type: strings.ToUpper(strings.TrimSpace(f.Type)),
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.From.After(out.To) {
		return LogFilter{}, ErrInvalidTimeRange
	}
	return out, nil
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
