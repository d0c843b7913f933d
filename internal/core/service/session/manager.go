package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
)

// Manager is the registry of per-scope session states. Each portal browser
// session (scope cookie) gets exactly one State, lazily constructed and
// seeded from its credential store. There is no ambient global session.
type Manager struct {
	factory ports.StoreFactory
	log     zerolog.Logger

	mu     sync.Mutex
	states map[string]*State
}

func NewManager(factory ports.StoreFactory, log zerolog.Logger) *Manager {
	return &Manager{
		factory: factory,
		log:     log,
		states:  make(map[string]*State),
	}
}

// Get returns the State for a scope, creating and seeding it on first use.
func (m *Manager) Get(ctx context.Context, scope string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.states[scope]; ok {
		return st
	}
	st := NewState(ctx, m.factory(scope), m.log)
	m.states[scope] = st
	return st
}
