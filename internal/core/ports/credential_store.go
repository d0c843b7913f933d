package ports

import (
	"context"

	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
)

// CredentialStore is durable key-value persistence for one logical user's
// session. An implementation is bound to its scope at construction; the
// session state layer is its single writer.
//
// Absence is a normal state, not a failure: Load returns (nil, nil) when no
// complete session is stored. Partial or malformed stored data is self-healed
// — cleared and reported as absent.
type CredentialStore interface {
	// Save writes all three session fields so that no reader observes a
	// partial write.
	Save(ctx context.Context, session domain.Session) error
	// Load reconstructs the stored session, or returns (nil, nil) when the
	// store holds no complete, well-formed session.
	Load(ctx context.Context) (*domain.Session, error)
	// Clear removes all three fields. Idempotent.
	Clear(ctx context.Context) error
}

// StoreFactory builds a CredentialStore bound to the given scope. The scope
// identifies one logical user (one browser session of the portal).
type StoreFactory func(scope string) CredentialStore
