package service

import (
	"context"

	"gameserver_panel/internal/models"
	"gameserver_panel/internal/repository"
)

type MonitoringService struct {
	statusRepo repository.StatusRepo
}

func NewMonitoringService(statusRepo repository.StatusRepo) *MonitoringService {
	return &MonitoringService{statusRepo: statusRepo}
}

// LastStatus returns the latest status the session has seen. Before the first status
// arrives the snapshot carries only the session id.
func (s *MonitoringService) LastStatus(ctx context.Context, sessionID string) (models.StatusSnapshot, error) {
	snap, err := s.statusRepo.Load(ctx, sessionID)
	if err != nil {
		return models.StatusSnapshot{}, err
	}
	if snap.SessionID == "" {
		return models.StatusSnapshot{SessionID: sessionID}, nil
	}
	snap.UpdatedAt = normalizeToUTC(snap.UpdatedAt)
	return snap, nil
}
