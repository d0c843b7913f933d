package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/cabinet-medical/portal-gateway/internal/api/handler"
	"github.com/cabinet-medical/portal-gateway/internal/api/middleware"
	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/guard"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/redirect"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/session"
	"github.com/cabinet-medical/portal-gateway/internal/infrastructure/http/handlers"
)

// Dependencies bundles everything the router wires together.
type Dependencies struct {
	Gateway   ports.AuthGateway
	Sessions  *session.Manager
	Guard     *guard.Guard
	Redirects *redirect.Controller
	Checks    map[string]handlers.Check
	Log       zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("portal"))
	e.Use(middleware.Scope())

	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Gateway, deps.Sessions)
	dashHandler := handler.NewDashboardHandler(deps.Sessions)

	// --- Auth routes (unguarded) ---
	e.GET("/auth/login", authHandler.LoginEntry)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/logout", authHandler.Logout)
	e.GET("/auth/session", authHandler.Session)

	// --- Protected dashboards ---
	e.GET("/admin/dashboard", dashHandler.Admin,
		middleware.NavigationGuard(deps.Guard, deps.Redirects, domain.RoleAdmin))
	e.GET("/doctor/dashboard", dashHandler.Doctor,
		middleware.NavigationGuard(deps.Guard, deps.Redirects, domain.RoleDoctor))
	e.GET("/patient/dashboard", dashHandler.Patient,
		middleware.NavigationGuard(deps.Guard, deps.Redirects, domain.RolePatient))

	// Unknown-role fallback: redirects straight to login.
	e.GET(domain.FallbackDashboardPath, dashHandler.Fallback)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	readinessHandler := handlers.NewReadinessHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)       // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
