package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepdesk/prepdesk-backend/internal/session"
)

func TestManager_JanitorEvictsFinishedSessions(t *testing.T) {
	m := session.NewManager(zerolog.Nop())

	s := session.New(1, testConfig(2, nil), session.Sinks{})
	m.Add(s)
	s.Start()
	s.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.StartJanitor(ctx, 5*time.Millisecond, 5*time.Millisecond)

	waitFor(t, func() bool {
		_, ok := m.Get(s.ID)
		return !ok
	}, "finished session never evicted")
}

func TestManager_JanitorEvictsAbandonedSessions(t *testing.T) {
	m := session.NewManager(zerolog.Nop())

	// Never started: no countdown will ever finish it. Zero duration makes it
	// eligible as soon as retain elapses.
	cfg := testConfig(2, nil)
	cfg.DurationSeconds = 0
	s := session.New(1, cfg, session.Sinks{})
	m.Add(s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.StartJanitor(ctx, 5*time.Millisecond, 5*time.Millisecond)

	waitFor(t, func() bool {
		_, ok := m.Get(s.ID)
		return !ok
	}, "abandoned session never evicted")
}

func TestManager_JanitorKeepsLiveSessions(t *testing.T) {
	m := session.NewManager(zerolog.Nop())

	active := session.New(1, testConfig(2, nil), session.Sinks{})
	m.Add(active)
	active.Start()

	pending := session.New(2, testConfig(2, nil), session.Sinks{})
	m.Add(pending)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.StartJanitor(ctx, 5*time.Millisecond, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)

	if _, ok := m.Get(active.ID); !ok {
		t.Error("active session must survive the janitor")
	}
	// Pending sessions survive until duration + retain has elapsed.
	if _, ok := m.Get(pending.ID); !ok {
		t.Error("recent pending session must survive the janitor")
	}
}
