// Package backend implements the AuthGateway port against the cabinet-medical
// REST backend. It is a stateless boundary adapter: no storage, no session
// state, just request/response translation and error classification.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cabinet-medical/portal-gateway/internal/api/metrics"
	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
)

const defaultTimeout = 5 * time.Second

// Client talks to the credential backend over HTTP. The embedded client-side
// timeout bounds validate/refresh calls; an expired deadline is classified as
// a transient failure, never an authentication failure.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// New builds a Client for the given base URL (e.g. http://backend:5000/api).
// A default timeout is applied when none is provided.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "auth_gateway").Logger(),
	}
}

var _ ports.AuthGateway = (*Client)(nil)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      domain.Role `json:"role,omitempty"`
}

type sessionResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         domain.User `json:"user"`
}

type validateResponse struct {
	Valid bool         `json:"valid"`
	User  *domain.User `json:"user,omitempty"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Login exchanges email/password for a full session.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	started := time.Now()
	resp, err := c.postJSON(ctx, "/auth/login", loginRequest{Email: email, Password: password}, "")
	if err != nil {
		metrics.ObserveGatewayCall("login", "network_error", started)
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		// fall through to decode
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		metrics.ObserveGatewayCall("login", "rejected", started)
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, readError(resp.Body))
	case resp.StatusCode >= http.StatusInternalServerError:
		metrics.ObserveGatewayCall("login", "network_error", started)
		return nil, fmt.Errorf("%w: login returned %d", domain.ErrBackendUnavailable, resp.StatusCode)
	default:
		metrics.ObserveGatewayCall("login", "rejected", started)
		return nil, fmt.Errorf("%w: login returned %d", domain.ErrInvalidCredentials, resp.StatusCode)
	}

	session, err := decodeSession(resp.Body)
	if err != nil {
		metrics.ObserveGatewayCall("login", "network_error", started)
		return nil, err
	}
	metrics.ObserveGatewayCall("login", "ok", started)
	return session, nil
}

// Register creates an account and returns the freshly issued session.
func (c *Client) Register(ctx context.Context, input ports.RegisterInput) (*domain.Session, error) {
	started := time.Now()
	payload := registerRequest{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      input.Role,
	}
	resp, err := c.postJSON(ctx, "/auth/register", payload, "")
	if err != nil {
		metrics.ObserveGatewayCall("register", "network_error", started)
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		// fall through to decode
	case resp.StatusCode == http.StatusConflict:
		metrics.ObserveGatewayCall("register", "rejected", started)
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, readError(resp.Body))
	case resp.StatusCode == http.StatusBadRequest:
		metrics.ObserveGatewayCall("register", "rejected", started)
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidRegistration, readError(resp.Body))
	case resp.StatusCode >= http.StatusInternalServerError:
		metrics.ObserveGatewayCall("register", "network_error", started)
		return nil, fmt.Errorf("%w: register returned %d", domain.ErrBackendUnavailable, resp.StatusCode)
	default:
		metrics.ObserveGatewayCall("register", "rejected", started)
		return nil, fmt.Errorf("%w: register returned %d", domain.ErrInvalidRegistration, resp.StatusCode)
	}

	session, err := decodeSession(resp.Body)
	if err != nil {
		metrics.ObserveGatewayCall("register", "network_error", started)
		return nil, err
	}
	metrics.ObserveGatewayCall("register", "ok", started)
	return session, nil
}

// Validate asks the backend whether the access token is still good.
// A {valid:false} body is a normal result, not an error.
func (c *Client) Validate(ctx context.Context, accessToken string) (*ports.ValidationResult, error) {
	started := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/validate-token", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("auth gateway: build validate request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveGatewayCall("validate", "network_error", started)
		return nil, fmt.Errorf("%w: validate: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var body validateResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			metrics.ObserveGatewayCall("validate", "network_error", started)
			return nil, fmt.Errorf("%w: validate: malformed response: %v", domain.ErrBackendUnavailable, err)
		}
		result := "ok"
		if !body.Valid {
			result = "invalid"
		}
		metrics.ObserveGatewayCall("validate", result, started)
		return &ports.ValidationResult{Valid: body.Valid, User: body.User}, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Explicit rejection of the token itself.
		metrics.ObserveGatewayCall("validate", "invalid", started)
		return nil, fmt.Errorf("%w: validate returned %d", domain.ErrTokenRejected, resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		metrics.ObserveGatewayCall("validate", "network_error", started)
		return nil, fmt.Errorf("%w: validate returned %d", domain.ErrBackendUnavailable, resp.StatusCode)
	default:
		metrics.ObserveGatewayCall("validate", "invalid", started)
		return nil, fmt.Errorf("%w: validate returned %d", domain.ErrTokenRejected, resp.StatusCode)
	}
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	started := time.Now()
	resp, err := c.postJSON(ctx, "/auth/refresh", struct{}{}, refreshToken)
	if err != nil {
		metrics.ObserveGatewayCall("refresh", "network_error", started)
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var body refreshResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.AccessToken == "" {
			metrics.ObserveGatewayCall("refresh", "network_error", started)
			return "", fmt.Errorf("%w: refresh: malformed response", domain.ErrBackendUnavailable)
		}
		metrics.ObserveGatewayCall("refresh", "ok", started)
		return body.AccessToken, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		metrics.ObserveGatewayCall("refresh", "invalid", started)
		return "", fmt.Errorf("%w: refresh returned %d", domain.ErrRefreshRejected, resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		metrics.ObserveGatewayCall("refresh", "network_error", started)
		return "", fmt.Errorf("%w: refresh returned %d", domain.ErrBackendUnavailable, resp.StatusCode)
	default:
		metrics.ObserveGatewayCall("refresh", "invalid", started)
		return "", fmt.Errorf("%w: refresh returned %d", domain.ErrRefreshRejected, resp.StatusCode)
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, bearer string) (*http.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("auth gateway: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("auth gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("backend unreachable")
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	return resp, nil
}

func decodeSession(r io.Reader) (*domain.Session, error) {
	var body sessionResponse
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed session response: %v", domain.ErrBackendUnavailable, err)
	}

	session := domain.Session{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		User:         body.User,
	}
	if !session.Complete() {
		return nil, fmt.Errorf("%w: incomplete session response", domain.ErrBackendUnavailable)
	}
	return &session, nil
}

func readError(r io.Reader) string {
	var body errorBody
	if err := json.NewDecoder(r).Decode(&body); err != nil || body.Error == "" {
		return "backend rejected the request"
	}
	return body.Error
}
