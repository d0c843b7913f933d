package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second, zerolog.Nop())
}

func TestClient_Login_Success(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		if body["email"] != "admin@cabinet.com" || body["password"] != "secret" {
			t.Errorf("unexpected credentials: %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "acc_1",
			"refresh_token": "ref_1",
			"user": map[string]string{
				"id": "u1", "email": "admin@cabinet.com", "role": "admin",
			},
		})
	}))

	sess, err := client.Login(context.Background(), "admin@cabinet.com", "secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if sess.AccessToken != "acc_1" || sess.RefreshToken != "ref_1" {
		t.Fatalf("unexpected tokens: %+v", sess)
	}
	if sess.User.Role != domain.RoleAdmin {
		t.Fatalf("unexpected role: %s", sess.User.Role)
	}
}

func TestClient_Login_InvalidCredentials(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
	}))

	_, err := client.Login(context.Background(), "admin@cabinet.com", "wrong")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestClient_Login_ServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Login(context.Background(), "admin@cabinet.com", "secret")
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestClient_Login_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listening any more

	client := New(url, time.Second, zerolog.Nop())
	_, err := client.Login(context.Background(), "admin@cabinet.com", "secret")
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestClient_Register_DuplicateEmail(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "email already registered"})
	}))

	_, err := client.Register(context.Background(), ports.RegisterInput{Email: "dup@cabinet.com", Password: "password1"})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestClient_Register_Success(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/register" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		if body["first_name"] != "Paul" || body["role"] != "patient" {
			t.Errorf("unexpected payload: %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "acc_2",
			"refresh_token": "ref_2",
			"user": map[string]string{
				"id": "u2", "email": "paul@cabinet.com", "role": "patient", "first_name": "Paul",
			},
		})
	}))

	sess, err := client.Register(context.Background(), ports.RegisterInput{
		Email:     "paul@cabinet.com",
		Password:  "password1",
		FirstName: "Paul",
		LastName:  "Martin",
		Role:      domain.RolePatient,
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if sess.User.ID != "u2" || sess.User.Role != domain.RolePatient {
		t.Fatalf("unexpected user: %+v", sess.User)
	}
}

func TestClient_Validate_Valid(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/validate-token" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer acc_1" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"valid": true,
			"user":  map[string]string{"id": "u1", "email": "admin@cabinet.com", "role": "admin"},
		})
	}))

	res, err := client.Validate(context.Background(), "acc_1")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if !res.Valid || res.User == nil || res.User.Role != domain.RoleAdmin {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestClient_Validate_InvalidIsNotAnError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"valid": false})
	}))

	res, err := client.Validate(context.Background(), "stale")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if res.Valid {
		t.Fatalf("expected valid=false")
	}
}

func TestClient_Validate_UnauthorizedIsRejection(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.Validate(context.Background(), "stale")
	if !errors.Is(err, domain.ErrTokenRejected) {
		t.Fatalf("expected ErrTokenRejected, got %v", err)
	}
	if errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("rejection must not be classified as transient")
	}
}

func TestClient_Validate_ServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Validate(context.Background(), "acc_1")
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestClient_Refresh_Success(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/refresh" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ref_1" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "acc_new"})
	}))

	token, err := client.Refresh(context.Background(), "ref_1")
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if token != "acc_new" {
		t.Fatalf("unexpected token: %q", token)
	}
}

func TestClient_Refresh_Rejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.Refresh(context.Background(), "ref_stale")
	if !errors.Is(err, domain.ErrRefreshRejected) {
		t.Fatalf("expected ErrRefreshRejected, got %v", err)
	}
}
