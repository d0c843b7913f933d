// Package redis implements the CredentialStore contract over Redis.
//
// Each scope owns three keys, written and cleared together:
//
//	cred:<scope>:access_token
//	cred:<scope>:refresh_token
//	cred:<scope>:user           (JSON-serialised domain.User)
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUser         = "user"
)

// Store persists one scope's session in Redis.
type Store struct {
	client *redis.Client
	scope  string
}

// NewStore wraps the given client for a single scope.
func NewStore(client *redis.Client, scope string) *Store {
	return &Store{client: client, scope: scope}
}

// Factory returns a ports.StoreFactory over the shared client.
func Factory(client *redis.Client) ports.StoreFactory {
	return func(scope string) ports.CredentialStore {
		return NewStore(client, scope)
	}
}

// Save writes all three fields in a single transactional pipeline so that no
// concurrent Load observes a partial write.
func (s *Store) Save(ctx context.Context, session domain.Session) error {
	raw, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("credential store: marshal user: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(keyAccessToken), session.AccessToken, 0)
		pipe.Set(ctx, s.key(keyRefreshToken), session.RefreshToken, 0)
		pipe.Set(ctx, s.key(keyUser), raw, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("credential store: save: %w", err)
	}
	return nil
}

// Load reconstructs the stored session. Missing, partial, or malformed state
// is self-healed: remaining fields are cleared and (nil, nil) is returned.
func (s *Store) Load(ctx context.Context) (*domain.Session, error) {
	values, err := s.client.MGet(ctx, s.key(keyAccessToken), s.key(keyRefreshToken), s.key(keyUser)).Result()
	if err != nil {
		return nil, fmt.Errorf("credential store: load: %w", err)
	}

	access, okAccess := asString(values[0])
	refresh, okRefresh := asString(values[1])
	rawUser, okUser := asString(values[2])

	if !okAccess && !okRefresh && !okUser {
		return nil, nil // plain absence
	}

	if !okAccess || !okRefresh || !okUser {
		return nil, s.heal(ctx)
	}

	var user domain.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, s.heal(ctx)
	}

	sess := domain.Session{AccessToken: access, RefreshToken: refresh, User: user}
	if !sess.Complete() {
		return nil, s.heal(ctx)
	}
	return &sess, nil
}

// Clear removes all three fields. Idempotent.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(keyAccessToken), s.key(keyRefreshToken), s.key(keyUser)).Err(); err != nil {
		return fmt.Errorf("credential store: clear: %w", err)
	}
	return nil
}

// heal clears partial state; corruption is treated as absence, never raised.
func (s *Store) heal(ctx context.Context) error {
	return s.Clear(ctx)
}

func (s *Store) key(field string) string {
	return fmt.Sprintf("cred:%s:%s", s.scope, field)
}

func asString(v any) (string, bool) {
	str, ok := v.(string)
	if !ok || str == "" {
		return "", false
	}
	return str, true
}
