// Package guard implements the per-navigation authorization check. The
// backend's live verdict is authoritative on every protected navigation; the
// locally cached user is never the sole basis for an allow.
package guard

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	"github.com/rs/zerolog"

	"github.com/cabinet-medical/portal-gateway/internal/api/metrics"
	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/redirect"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/session"
)

// Guard evaluates NavigationRequests against the session state and the
// credential backend.
type Guard struct {
	gateway   ports.AuthGateway
	sessions  *session.Manager
	redirects *redirect.Controller
	log       zerolog.Logger

	// validations collapses concurrent validate calls for the same access
	// token into one in-flight backend request.
	validations singleflight.Group
}

func New(gateway ports.AuthGateway, sessions *session.Manager, redirects *redirect.Controller, log zerolog.Logger) *Guard {
	return &Guard{
		gateway:   gateway,
		sessions:  sessions,
		redirects: redirects,
		log:       log.With().Str("component", "route_guard").Logger(),
	}
}

// Evaluate decides one navigation. The routing layer performs the redirect
// named in the decision; role-mismatch redirects are already performed here
// through the redirect controller and nav.
func (g *Guard) Evaluate(ctx context.Context, nav ports.Navigator, scope string, req domain.NavigationRequest) domain.AuthorizationDecision {
	state := g.sessions.Get(ctx, scope)

	sess := state.Current()
	if sess == nil {
		// No session: deny without touching the backend.
		metrics.GuardDecisionsTotal.WithLabelValues("deny_unauthenticated").Inc()
		return domain.Deny(domain.LoginPath)
	}

	sess, ok := g.refreshIfExpired(ctx, state, sess)
	if !ok {
		return domain.Deny(domain.LoginPath)
	}

	result, err := g.validate(ctx, sess.AccessToken)
	if errors.Is(err, domain.ErrBackendUnavailable) {
		// Transient failure: deny this navigation but keep the session so a
		// retry can succeed without re-login.
		metrics.GuardDecisionsTotal.WithLabelValues("deny_backend_unavailable").Inc()
		g.log.Warn().Err(err).Str("target", req.TargetPath).Msg("backend unreachable, denying navigation without logout")
		return domain.Deny(domain.LoginPath)
	}
	if err != nil || !result.Valid || result.User == nil {
		// Definitive rejection: the session is dead.
		g.clearSession(ctx, state)
		metrics.GuardDecisionsTotal.WithLabelValues("deny_invalid_token").Inc()
		return domain.Deny(domain.LoginPath)
	}

	if req.RequiredRole != "" && result.User.Role != req.RequiredRole {
		metrics.GuardDecisionsTotal.WithLabelValues("deny_role_mismatch").Inc()
		if g.redirects.RedirectToRoleDashboard(ctx, nav, scope, req.TargetPath, result.User.Role) {
			return domain.Deny(domain.DashboardPath(result.User.Role))
		}
		// Redirect suppressed (loop breaker) or redundant: deny flat.
		return domain.Deny("")
	}

	metrics.GuardDecisionsTotal.WithLabelValues("allow").Inc()
	return domain.Allow()
}

// Logout clears the scope's session and reports the login entry point.
func (g *Guard) Logout(ctx context.Context, scope string) string {
	g.clearSession(ctx, g.sessions.Get(ctx, scope))
	return domain.LoginPath
}

// refreshIfExpired exchanges the refresh token when the access token's exp
// claim has passed. Returns the session to validate and whether evaluation
// may continue: a rejected refresh clears the session, a transient failure
// preserves it, and both stop the evaluation.
func (g *Guard) refreshIfExpired(ctx context.Context, state *session.State, sess *domain.Session) (*domain.Session, bool) {
	if !accessTokenExpired(sess.AccessToken) {
		return sess, true
	}

	newToken, err := g.gateway.Refresh(ctx, sess.RefreshToken)
	switch {
	case errors.Is(err, domain.ErrBackendUnavailable):
		metrics.GuardDecisionsTotal.WithLabelValues("deny_backend_unavailable").Inc()
		return nil, false
	case err != nil:
		g.clearSession(ctx, state)
		metrics.GuardDecisionsTotal.WithLabelValues("deny_invalid_token").Inc()
		return nil, false
	}

	refreshed := sess.WithAccessToken(newToken)
	if err := state.Set(ctx, refreshed); err != nil {
		g.log.Error().Err(err).Msg("persisting refreshed session failed")
		return nil, false
	}
	metrics.SessionEventsTotal.WithLabelValues("refresh").Inc()
	return &refreshed, true
}

// validate funnels concurrent evaluations of the same token through one
// backend call.
func (g *Guard) validate(ctx context.Context, accessToken string) (*ports.ValidationResult, error) {
	v, err, _ := g.validations.Do(accessToken, func() (any, error) {
		return g.gateway.Validate(ctx, accessToken)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ports.ValidationResult), nil
}

func (g *Guard) clearSession(ctx context.Context, state *session.State) {
	if err := state.Clear(ctx); err != nil {
		g.log.Error().Err(err).Msg("clearing session failed")
	}
}
