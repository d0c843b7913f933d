package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ScopeCookie names the browser-session cookie identifying one logical user.
const ScopeCookie = "portal_scope"

const scopeContextKey = "scope"

// Scope resolves the per-browser scope identifier and injects it into the
// echo context, minting a new one on first contact.
func Scope() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scope := ""
			if cookie, err := c.Cookie(ScopeCookie); err == nil && cookie.Value != "" {
				scope = cookie.Value
			}
			if scope == "" {
				scope = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     ScopeCookie,
					Value:    scope,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					Expires:  time.Now().Add(30 * 24 * time.Hour),
				})
			}
			c.Set(scopeContextKey, scope)
			return next(c)
		}
	}
}

// ScopeFromContext returns the scope injected by Scope, or empty.
func ScopeFromContext(c echo.Context) string {
	scope, _ := c.Get(scopeContextKey).(string)
	return scope
}
