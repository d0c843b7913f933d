package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apimiddleware "github.com/cabinet-medical/portal-gateway/internal/api/middleware"
	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/session"
)

// DashboardHandler serves the role landing routes. The portal's actual
// dashboard content (records, consultations, tables) lives behind other
// services; these handlers only confirm the landing and identify the user.
type DashboardHandler struct {
	sessions *session.Manager
}

func NewDashboardHandler(sessions *session.Manager) *DashboardHandler {
	return &DashboardHandler{sessions: sessions}
}

func (h *DashboardHandler) Admin(c echo.Context) error {
	return h.landing(c, domain.RoleAdmin)
}

func (h *DashboardHandler) Doctor(c echo.Context) error {
	return h.landing(c, domain.RoleDoctor)
}

func (h *DashboardHandler) Patient(c echo.Context) error {
	return h.landing(c, domain.RolePatient)
}

// Fallback is the unknown-role dashboard: it always redirects to login.
func (h *DashboardHandler) Fallback(c echo.Context) error {
	return c.Redirect(http.StatusFound, domain.LoginPath)
}

func (h *DashboardHandler) landing(c echo.Context, role domain.Role) error {
	ctx := c.Request().Context()
	sess := h.sessions.Get(ctx, apimiddleware.ScopeFromContext(c)).Current()
	if sess == nil {
		// The guard already vouched for this navigation; an empty state here
		// means it was cleared mid-flight.
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"dashboard": string(role),
		"user":      sess.User,
	})
}
