// Package memory provides an in-process CredentialStore. It backs tests
// across the repo and serves as a degraded fallback when no durable backend
// is configured.
package memory

import (
	"context"
	"sync"

	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
)

// Registry holds per-scope stores over a shared map so that a re-created
// Store for the same scope observes earlier writes, mirroring durable
// backends across a process restart.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]domain.Session)}
}

// Factory returns a ports.StoreFactory over this registry.
func (r *Registry) Factory() ports.StoreFactory {
	return func(scope string) ports.CredentialStore {
		return &Store{registry: r, scope: scope}
	}
}

// Store is the per-scope view of a Registry.
type Store struct {
	registry *Registry
	scope    string
}

func (s *Store) Save(_ context.Context, session domain.Session) error {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	s.registry.sessions[s.scope] = session
	return nil
}

func (s *Store) Load(_ context.Context) (*domain.Session, error) {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	sess, ok := s.registry.sessions[s.scope]
	if !ok {
		return nil, nil
	}
	if !sess.Complete() {
		// Self-heal: partial state counts as absence and is removed.
		delete(s.registry.sessions, s.scope)
		return nil, nil
	}
	return &sess, nil
}

func (s *Store) Clear(_ context.Context) error {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	delete(s.registry.sessions, s.scope)
	return nil
}

// Seed plants a session (possibly incomplete) for a scope. Test helper.
func (r *Registry) Seed(scope string, session domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[scope] = session
}
