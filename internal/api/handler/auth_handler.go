package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apimiddleware "github.com/cabinet-medical/portal-gateway/internal/api/middleware"
	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/session"
)

// AuthHandler owns the credential-exchange endpoints. On success the session
// is written through SessionState; the gateway itself never touches storage.
type AuthHandler struct {
	gateway  ports.AuthGateway
	sessions *session.Manager
}

func NewAuthHandler(gateway ports.AuthGateway, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{gateway: gateway, sessions: sessions}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"omitempty,oneof=admin doctor patient"`
}

type authResponse struct {
	User         domain.User `json:"user"`
	RedirectPath string      `json:"redirect_path"`
}

type redirectResponse struct {
	RedirectPath string `json:"redirect_path"`
}

// Login authenticates against the backend and establishes the session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	sess, err := h.gateway.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	state := h.sessions.Get(ctx, apimiddleware.ScopeFromContext(c))
	if err := state.Set(ctx, *sess); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{
		User:         sess.User,
		RedirectPath: domain.DashboardPath(sess.User.Role),
	})
}

// Register creates an account and establishes the freshly issued session.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	sess, err := h.gateway.Register(ctx, ports.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.Role(req.Role),
	})
	if err != nil {
		return err
	}

	state := h.sessions.Get(ctx, apimiddleware.ScopeFromContext(c))
	if err := state.Set(ctx, *sess); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, authResponse{
		User:         sess.User,
		RedirectPath: domain.DashboardPath(sess.User.Role),
	})
}

// Logout clears the session and points the client at the login entry point.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  redirectResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	state := h.sessions.Get(ctx, apimiddleware.ScopeFromContext(c))
	if err := state.Clear(ctx); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, redirectResponse{RedirectPath: domain.LoginPath})
}

// Session reports the current session's user, or 401 when logged out. It
// reads the in-memory state only — no backend round trip.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]domain.User
// @Failure      401  {object}  map[string]string
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	ctx := c.Request().Context()
	sess := h.sessions.Get(ctx, apimiddleware.ScopeFromContext(c)).Current()
	if sess == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return c.JSON(http.StatusOK, map[string]domain.User{"user": sess.User})
}

// LoginEntry is the unguarded login entry point every denial redirects to.
func (h *AuthHandler) LoginEntry(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "authentication required",
		"login":   domain.LoginPath,
	})
}
