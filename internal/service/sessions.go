package service

import (
	"errors"
	"sync"

	"gameserver_panel/internal/metrics"
	"gameserver_panel/internal/panel"
)

var ErrSessionNotFound = errors.New("panel session not found")

type liveSession struct {
	id       string
	username string
	ctrl     *panel.Controller
}

// sessionTable holds the live controllers, one per panel session.
type sessionTable struct {
	metrics *metrics.Metrics

	mu sync.Mutex
	m  map[string]*liveSession
}

func newSessionTable(m *metrics.Metrics) *sessionTable {
	return &sessionTable{metrics: m, m: make(map[string]*liveSession)}
}

func (t *sessionTable) put(ls *liveSession) {
	t.mu.Lock()
	t.m[ls.id] = ls
	n := len(t.m)
	t.mu.Unlock()
	t.metrics.SetActiveSessions(n)
}

func (t *sessionTable) get(id string) (*liveSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ls, ok := t.m[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ls, nil
}

// remove drops the session and stops its poller.
func (t *sessionTable) remove(id string) bool {
	t.mu.Lock()
	ls, ok := t.m[id]
	delete(t.m, id)
	n := len(t.m)
	t.mu.Unlock()
	if !ok {
		return false
	}
	t.metrics.SetActiveSessions(n)
	ls.ctrl.Close()
	return true
}
