package service

import (
	"context"

	gp "gameserver_panel"
)

type ControlService struct {
	sessions *sessionTable
	views    *viewFactory
}

func NewControlService(sessions *sessionTable, views *viewFactory) *ControlService {
	return &ControlService{sessions: sessions, views: views}
}

// Status queries the control API and reports the result to the session's view.
func (s *ControlService) Status(ctx context.Context, sessionID string) (gp.ServerStatus, error) {
	ls, err := s.sessions.get(sessionID)
	if err != nil {
		return gp.ServerStatus{}, err
	}
	return ls.ctrl.Refresh(ctx)
}

// Dispatch records and submits action. start and stop begin a poll that outlives ctx.
func (s *ControlService) Dispatch(ctx context.Context, sessionID string, action gp.Action) (DispatchResult, error) {
	ls, err := s.sessions.get(sessionID)
	if err != nil {
		return DispatchResult{}, err
	}
	s.views.forSession(sessionID).action(action)

	res, err := ls.ctrl.Submit(ctx, action)
	if err != nil {
		return DispatchResult{}, err
	}
	return DispatchResult{Status: res.Status, Polling: res.Polling, Target: res.Target}, nil
}

func (s *ControlService) PollState(ctx context.Context, sessionID string) (PollState, error) {
	ls, err := s.sessions.get(sessionID)
	if err != nil {
		return PollState{}, err
	}
	return toPollState(ls.ctrl.Poll()), nil
}

func (s *ControlService) CancelPoll(ctx context.Context, sessionID string) error {
	ls, err := s.sessions.get(sessionID)
	if err != nil {
		return err
	}
	ls.ctrl.CancelPoll()
	return nil
}
