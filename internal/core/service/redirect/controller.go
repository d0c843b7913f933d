// Package redirect computes canonical dashboard destinations and performs
// the navigation with loop suppression: a guard denial redirecting to a
// dashboard that is itself denied must not recurse.
package redirect

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cabinet-medical/portal-gateway/internal/api/metrics"
	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
)

const defaultSettleDelay = time.Second

type phase int

const (
	phaseIdle phase = iota
	phaseRedirecting
)

type scopeState struct {
	phase phase
	timer *time.Timer
}

// Controller drives role-dashboard redirects, one state machine per scope:
// Idle → Redirecting on a performed navigation, back to Idle on navigation
// completion. The settle-delay timer is the safety net for a navigation that
// never completes.
type Controller struct {
	settleDelay time.Duration
	log         zerolog.Logger

	mu     sync.Mutex
	scopes map[string]*scopeState
}

func NewController(settleDelay time.Duration, log zerolog.Logger) *Controller {
	if settleDelay <= 0 {
		settleDelay = defaultSettleDelay
	}
	return &Controller{
		settleDelay: settleDelay,
		log:         log.With().Str("component", "redirect_controller").Logger(),
		scopes:      make(map[string]*scopeState),
	}
}

// RedirectToRoleDashboard navigates the scope to the canonical dashboard for
// role. Returns true when a navigation was performed. No-ops when the scope
// is already on the target path, and while a previous redirect is settling.
func (c *Controller) RedirectToRoleDashboard(ctx context.Context, nav ports.Navigator, scope, currentPath string, role domain.Role) bool {
	target := domain.DashboardPath(role)

	if target == currentPath {
		metrics.RedirectsTotal.WithLabelValues("noop").Inc()
		return false
	}

	if !c.begin(scope) {
		metrics.RedirectsTotal.WithLabelValues("suppressed").Inc()
		c.log.Debug().Str("scope", scope).Str("target", target).Msg("redirect suppressed, previous redirect still settling")
		return false
	}

	if err := nav.Navigate(ctx, target); err != nil {
		c.Complete(scope)
		c.log.Error().Err(err).Str("target", target).Msg("navigation failed")
		return false
	}

	metrics.RedirectsTotal.WithLabelValues("performed").Inc()
	return true
}

// Complete transitions the scope back to Idle. Called by the routing layer
// when the redirected navigation lands; the settle timer calls it otherwise.
func (c *Controller) Complete(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.scopes[scope]
	if !ok || st.phase == phaseIdle {
		return
	}
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	st.phase = phaseIdle
}

// begin attempts the Idle → Redirecting transition. Returns false when the
// scope is already redirecting.
func (c *Controller) begin(scope string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.scopes[scope]
	if !ok {
		st = &scopeState{}
		c.scopes[scope] = st
	}
	if st.phase == phaseRedirecting {
		return false
	}

	st.phase = phaseRedirecting
	st.timer = time.AfterFunc(c.settleDelay, func() { c.Complete(scope) })
	return true
}
