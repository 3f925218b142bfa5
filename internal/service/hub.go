package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	gp "gameserver_panel"
	"gameserver_panel/internal/auth"
	"gameserver_panel/internal/logger"
	"gameserver_panel/internal/models"
	"gameserver_panel/internal/poller"
	"gameserver_panel/internal/repository"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	subscriberBuffer = 32
	recordTimeout    = 5 * time.Second
)

// Hub fans a session's events out to its websocket subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan models.PanelEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan models.PanelEvent]struct{})}
}

// Subscribe returns a channel of the session's future events and a func that ends
// the subscription. Slow subscribers miss events rather than block the poller.
func (h *Hub) Subscribe(sessionID string) (<-chan models.PanelEvent, func()) {
	ch := make(chan models.PanelEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan models.PanelEvent]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[sessionID], ch)
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to the subscribers of its session.
func (h *Hub) Publish(ev models.PanelEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// viewFactory builds the panel.View of each session: every callback becomes a
// PanelEvent that is logged and published.
type viewFactory struct {
	events repository.EventRepo
	status repository.StatusRepo
	hub    *Hub
	clock  clockwork.Clock
	log    *logger.Logger
}

func (f *viewFactory) forSession(id string) *hubView {
	return &hubView{f: f, sessionID: id}
}

type hubView struct {
	f         *viewFactory
	sessionID string
}

func (v *hubView) OnStatusUpdated(st gp.ServerStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	snap := models.StatusSnapshot{SessionID: v.sessionID, Status: st, UpdatedAt: v.f.clock.Now().UTC()}
	if err := v.f.status.Save(ctx, snap); err != nil {
		v.f.log.Errorw("status_save_failed", "session_id", v.sessionID, "err", err)
	}
	v.emit(models.EventStatus, st.Status, st)
}

func (v *hubView) OnMessage(msg string) {
	if msg == "" {
		return
	}
	v.emit(models.EventMessage, msg, nil)
}

func (v *hubView) OnAuthChallenge(ch auth.Challenge) {
	v.emit(models.EventAuthChallenge, ch.Name, map[string]any{
		"username":            ch.Username,
		"required_attributes": ch.RequiredAttributes,
	})
}

func (v *hubView) OnAuthFailure(msg string) {
	v.emit(models.EventAuthFailure, msg, nil)
}

func (v *hubView) OnPollStopped(o poller.Outcome) {
	desc := fmt.Sprintf("%s: %s after %d queries", o.Action, o.Reason, o.Queries)
	v.emit(models.EventPollStopped, desc, toPollOutcome(o))
}

// action records a user-submitted action.
func (v *hubView) action(a gp.Action) {
	v.emit(models.EventAction, string(a), map[string]any{"action": a})
}

func (v *hubView) emit(typ, desc string, data any) {
	ev := models.PanelEvent{
		EventID:     uuid.NewString(),
		SessionID:   v.sessionID,
		OccurredAt:  v.f.clock.Now().UTC(),
		Type:        typ,
		Description: desc,
		Metadata:    data,
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := v.f.events.Append(ctx, ev); err != nil {
		v.f.log.Errorw("event_append_failed", "session_id", v.sessionID, "type", typ, "err", err)
	}
	v.f.hub.Publish(ev)
}
