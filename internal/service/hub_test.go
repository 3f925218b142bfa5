package service

import (
	"testing"

	"gameserver_panel/internal/models"
)

func TestHub_PublishReachesOnlyTheSession(t *testing.T) {
	h := NewHub()
	a, unsubA := h.Subscribe("a")
	b, unsubB := h.Subscribe("b")
	defer unsubB()

	h.Publish(models.PanelEvent{SessionID: "a", Type: models.EventMessage})

	select {
	case ev := <-a:
		if ev.Type != models.EventMessage {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("subscriber of session a got nothing")
	}
	select {
	case ev := <-b:
		t.Fatalf("session b must not see %+v", ev)
	default:
	}

	unsubA()
	unsubA() // idempotent
	if _, ok := <-a; ok {
		t.Fatal("channel must be closed after unsubscribe")
	}
	h.Publish(models.PanelEvent{SessionID: "a"})
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()
	_, unsub := h.Subscribe("a")
	defer unsub()

	for i := 0; i < subscriberBuffer*2; i++ {
		h.Publish(models.PanelEvent{SessionID: "a"})
	}
}
