package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/guard"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/redirect"
)

// NavigationGuard gates a protected route. Every request is one
// NavigationRequest; the guard's decision is carried out here: proceed,
// 302 to the decision's target, or 403 when a redirect was suppressed to
// break a loop.
func NavigationGuard(g *guard.Guard, redirects *redirect.Controller, requiredRole domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scope := ScopeFromContext(c)
			if scope == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session scope")
			}

			req := domain.NavigationRequest{
				TargetPath:   c.Request().URL.Path,
				RequiredRole: requiredRole,
			}

			decision := g.Evaluate(c.Request().Context(), echoNavigator{c}, scope, req)
			if decision.Allowed {
				// The navigation landed; a settling redirect is complete.
				redirects.Complete(scope)
				return next(c)
			}

			if c.Response().Committed {
				// The redirect controller already navigated.
				return nil
			}
			if decision.RedirectTo != "" {
				return c.Redirect(http.StatusFound, decision.RedirectTo)
			}
			return echo.NewHTTPError(http.StatusForbidden, "navigation denied")
		}
	}
}

// echoNavigator adapts one echo request to the Navigator port: performing a
// navigation means committing the 302 response.
type echoNavigator struct {
	c echo.Context
}

var _ ports.Navigator = echoNavigator{}

func (n echoNavigator) Navigate(_ context.Context, path string) error {
	return n.c.Redirect(http.StatusFound, path)
}
