// Package session owns the in-memory source of truth for "who is logged in
// now". One State per scope (one logical user); the State is the single
// writer of its CredentialStore and broadcasts every change to observers.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cabinet-medical/portal-gateway/internal/api/metrics"
	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
)

const observerBuffer = 16

// State holds the current session (or none) for one scope.
//
// Ordering guarantee: Set emits only after the store write completed, Clear
// only after the store clear completed, and both hold the write lock through
// the emission, so no reader observes a half-applied session.
type State struct {
	store ports.CredentialStore
	log   zerolog.Logger

	mu        sync.RWMutex
	current   *domain.Session
	observers map[int]chan *domain.Session
	nextID    int
}

// NewState seeds the in-memory value from the store before any observer can
// subscribe, so the very first emission already reflects durable state. A
// failing load is logged and treated as "no session" — the gateway must stay
// usable when the store is degraded.
func NewState(ctx context.Context, store ports.CredentialStore, log zerolog.Logger) *State {
	s := &State{
		store:     store,
		log:       log.With().Str("component", "session_state").Logger(),
		observers: make(map[int]chan *domain.Session),
	}

	sess, err := store.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("seeding from credential store failed, starting unauthenticated")
		return s
	}
	s.current = sess
	return s
}

// Current returns a snapshot of the in-memory session, or nil when logged out.
func (s *State) Current() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	snapshot := *s.current
	return &snapshot
}

// Observe subscribes to session changes. The current value is delivered
// immediately, then every subsequent change in order. The returned cancel
// function detaches the observer and closes its channel.
func (s *State) Observe() (<-chan *domain.Session, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *domain.Session, observerBuffer)
	id := s.nextID
	s.nextID++
	s.observers[id] = ch

	ch <- snapshotOf(s.current)

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if obs, ok := s.observers[id]; ok {
			delete(s.observers, id)
			close(obs)
		}
	}
	return ch, cancel
}

// Set writes the session through to the store, updates the in-memory value,
// and emits. Called only after a successful gateway exchange.
func (s *State) Set(ctx context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ctx, session); err != nil {
		return err
	}
	s.current = &session
	s.broadcast(snapshotOf(s.current))
	metrics.SessionEventsTotal.WithLabelValues("set").Inc()
	return nil
}

// Clear removes the durable copy, drops the in-memory value, and emits nil.
func (s *State) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.current = nil
	s.broadcast(nil)
	metrics.SessionEventsTotal.WithLabelValues("clear").Inc()
	return nil
}

// broadcast delivers to every observer without blocking the writer. A full
// observer channel drops the update; observers always converge on the next
// emission they do receive.
func (s *State) broadcast(sess *domain.Session) {
	for id, ch := range s.observers {
		select {
		case ch <- sess:
		default:
			s.log.Warn().Int("observer", id).Msg("observer channel full, dropping session update")
		}
	}
}

func snapshotOf(sess *domain.Session) *domain.Session {
	if sess == nil {
		return nil
	}
	snapshot := *sess
	return &snapshot
}
