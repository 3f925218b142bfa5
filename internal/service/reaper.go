package service

import (
	"context"
	"time"

	"gameserver_panel/internal/logger"
	"gameserver_panel/internal/repository"

	"github.com/jonboulle/clockwork"
)

// ReaperService closes sessions whose token has expired or whose challenge was
// never answered.
type ReaperService struct {
	repo     repository.SessionRepo
	sessions *sessionTable
	clock    clockwork.Clock
	log      *logger.Logger
}

func NewReaperService(repo repository.SessionRepo, sessions *sessionTable, clock clockwork.Clock, log *logger.Logger) *ReaperService {
	return &ReaperService{repo: repo, sessions: sessions, clock: clock, log: logger.OrNop(log)}
}

// Run sweeps at the given interval until ctx is canceled.
func (s *ReaperService) Run(ctx context.Context, tick time.Duration) {
	t := s.clock.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.Chan():
			s.sweep(ctx, now)
		}
	}
}

// sweep returns the number of sessions it closed.
func (s *ReaperService) sweep(ctx context.Context, now time.Time) int {
	ids, err := s.repo.Expired(ctx, now.UTC())
	if err != nil {
		s.log.Errorw("session_sweep_failed", "err", err)
		return 0
	}
	for _, id := range ids {
		s.sessions.remove(id)
		if err := s.repo.Delete(ctx, id); err != nil {
			s.log.Errorw("session_delete_failed", "session_id", id, "err", err)
			continue
		}
		s.log.Infow("session_expired", "session_id", id)
	}
	return len(ids)
}
