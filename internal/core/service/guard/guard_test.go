package guard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/cabinet-medical/portal-gateway/internal/core/domain"
	"github.com/cabinet-medical/portal-gateway/internal/core/ports"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/redirect"
	"github.com/cabinet-medical/portal-gateway/internal/core/service/session"
	"github.com/cabinet-medical/portal-gateway/internal/infrastructure/store/memory"
)

type fakeGateway struct {
	validateFn    func(ctx context.Context, token string) (*ports.ValidationResult, error)
	refreshFn     func(ctx context.Context, token string) (string, error)
	validateCalls atomic.Int32
	refreshCalls  atomic.Int32
}

func (f *fakeGateway) Login(context.Context, string, string) (*domain.Session, error) {
	return nil, errors.New("not used in guard tests")
}

func (f *fakeGateway) Register(context.Context, ports.RegisterInput) (*domain.Session, error) {
	return nil, errors.New("not used in guard tests")
}

func (f *fakeGateway) Validate(ctx context.Context, token string) (*ports.ValidationResult, error) {
	f.validateCalls.Add(1)
	if f.validateFn == nil {
		return &ports.ValidationResult{Valid: false}, nil
	}
	return f.validateFn(ctx, token)
}

func (f *fakeGateway) Refresh(ctx context.Context, token string) (string, error) {
	f.refreshCalls.Add(1)
	if f.refreshFn == nil {
		return "", domain.ErrRefreshRejected
	}
	return f.refreshFn(ctx, token)
}

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(_ context.Context, path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
	return nil
}

func (n *recordingNavigator) recorded() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func validUserFor(role domain.Role) *domain.User {
	return &domain.User{ID: "u1", Email: string(role) + "@cabinet.com", Role: role}
}

func sessionFor(role domain.Role) domain.Session {
	return domain.Session{
		AccessToken:  "acc_live",
		RefreshToken: "ref_live",
		User:         *validUserFor(role),
	}
}

func expiredJWT(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func newTestGuard(gw ports.AuthGateway, reg *memory.Registry) (*Guard, *session.Manager) {
	sessions := session.NewManager(reg.Factory(), zerolog.Nop())
	redirects := redirect.NewController(50*time.Millisecond, zerolog.Nop())
	return New(gw, sessions, redirects, zerolog.Nop()), sessions
}

func TestGuard_NoSession_DeniesWithoutBackendCall(t *testing.T) {
	gw := &fakeGateway{}
	g, _ := newTestGuard(gw, memory.NewRegistry())
	nav := &recordingNavigator{}

	decision := g.Evaluate(context.Background(), nav, "s1", domain.NavigationRequest{
		TargetPath:   "/admin/dashboard",
		RequiredRole: domain.RoleAdmin,
	})

	if decision.Allowed {
		t.Fatalf("expected deny")
	}
	if decision.RedirectTo != domain.LoginPath {
		t.Fatalf("expected redirect to login, got %q", decision.RedirectTo)
	}
	if gw.validateCalls.Load() != 0 {
		t.Fatalf("validate must not be called without a session")
	}
}

func TestGuard_MatchingRole_Allows(t *testing.T) {
	gw := &fakeGateway{
		validateFn: func(_ context.Context, token string) (*ports.ValidationResult, error) {
			if token != "acc_live" {
				t.Errorf("unexpected token: %q", token)
			}
			return &ports.ValidationResult{Valid: true, User: validUserFor(domain.RoleAdmin)}, nil
		},
	}
	reg := memory.NewRegistry()
	reg.Seed("s1", sessionFor(domain.RoleAdmin))
	g, _ := newTestGuard(gw, reg)

	decision := g.Evaluate(context.Background(), &recordingNavigator{}, "s1", domain.NavigationRequest{
		TargetPath:   "/admin/dashboard",
		RequiredRole: domain.RoleAdmin,
	})

	if !decision.Allowed {
		t.Fatalf("expected allow, got redirect to %q", decision.RedirectTo)
	}
}

func TestGuard_NoRequiredRole_Allows(t *testing.T) {
	gw := &fakeGateway{
		validateFn: func(context.Context, string) (*ports.ValidationResult, error) {
			return &ports.ValidationResult{Valid: true, User: validUserFor(domain.RolePatient)}, nil
		},
	}
	reg := memory.NewRegistry()
	reg.Seed("s1", sessionFor(domain.RolePatient))
	g, _ := newTestGuard(gw, reg)

	decision := g.Evaluate(context.Background(), &recordingNavigator{}, "s1", domain.NavigationRequest{
		TargetPath: "/profile",
	})

	if !decision.Allowed {
		t.Fatalf("expected allow for role-free route")
	}
}

func TestGuard_RoleMismatch_RedirectsToOwnDashboard(t *testing.T) {
	// A doctor asking for the admin dashboard keeps their own dashboard.
	gw := &fakeGateway{
		validateFn: func(context.Context, string) (*ports.ValidationResult, error) {
			return &ports.ValidationResult{Valid: true, User: validUserFor(domain.RoleDoctor)}, nil
		},
	}
	reg := memory.NewRegistry()
	reg.Seed("s1", sessionFor(domain.RoleDoctor))
	g, _ := newTestGuard(gw, reg)
	nav := &recordingNavigator{}

	decision := g.Evaluate(context.Background(), nav, "s1", domain.NavigationRequest{
		TargetPath:   "/admin/dashboard",
		RequiredRole: domain.RoleAdmin,
	})

	if decision.Allowed {
		t.Fatalf("expected deny")
	}
	if decision.RedirectTo != "/doctor/dashboard" {
		t.Fatalf("expected redirect to /doctor/dashboard, got %q", decision.RedirectTo)
	}
	if got := nav.recorded(); len(got) != 1 || got[0] != "/doctor/dashboard" {
		t.Fatalf("expected one navigation to /doctor/dashboard, got %v", got)
	}
}

func TestGuard_AdminOnDoctorRoute_RedirectsToAdminDashboard(t *testing.T) {
	gw := &fakeGateway{
		validateFn: func(context.Context, string) (*ports.ValidationResult, error) {
			return &ports.ValidationResult{Valid: true, User: validUserFor(domain.RoleAdmin)}, nil
		},
	}
	reg := memory.NewRegistry()
	reg.Seed("s1", sessionFor(domain.RoleAdmin))
	g, _ := newTestGuard(gw, reg)
	nav := &recordingNavigator{}

	decision := g.Evaluate(context.Background(), nav, "s1", domain.NavigationRequest{
		TargetPath:   "/doctor/dashboard",
		RequiredRole: domain.RoleDoctor,
	})

	if decision.Allowed || decision.RedirectTo != "/admin/dashboard" {
		t.Fatalf("expected deny with redirect to /admin/dashboard, got %+v", decision)
	}
}

func TestGuard_RoleMismatch_SecondRedirectSuppressed(t *testing.T) {
	gw := &fakeGateway{
		validateFn: func(context.Context, string) (*ports.ValidationResult, error) {
			return &ports.ValidationResult{Valid: true, User: validUserFor(domain.RoleDoctor)}, nil
		},
	}
	reg := memory.NewRegistry()
	reg.Seed("s1", sessionFor(domain.RoleDoctor))
	g, _ := newTestGuard(gw, reg)
	nav := &recordingNavigator{}

	req := domain.NavigationRequest{TargetPath: "/admin/dashboard", RequiredRole: domain.RoleAdmin}

	first := g.Evaluate(context.Background(), nav, "s1", req)
	second := g.Evaluate(context.Background(), nav, "s1", req)

	if first.RedirectTo != "/doctor/dashboard" {
		t.Fatalf("expected first redirect, got %+v", first)
	}
	if second.Allowed || second.RedirectTo != "" {
		t.Fatalf("expected suppressed flat deny, got %+v", second)
	}
	if got := nav.recorded(); len(got) != 1 {
		t.Fatalf("expected a single navigation, got %v", got)
	}
}

func TestGuard_TransientFailure_PreservesSession(t *testing.T) {
	gw := &fakeGateway{
		validateFn: func(context.Context, string) (*ports.ValidationResult, error) {
			return nil, domain.ErrBackendUnavailable
		},
	}
	reg := memory.NewRegistry()
	reg.Seed("s1", sessionFor(domain.RoleAdmin))
	g, sessions := newTestGuard(gw, reg)

	decision := g.Evaluate(context.Background(), &recordingNavigator{}, "s1", domain.NavigationRequest{
		TargetPath:   "/admin/dashboard",
		RequiredRole: domain.RoleAdmin,
	})

	if decision.Allowed || decision.RedirectTo != domain.LoginPath {
		t.Fatalf("expected deny with login redirect, got %+v", decision)
	}
	if sessions.Get(context.Background(), "s1").Current() == nil {
		t.Fatalf("transient failure must not clear the session")
	}
}

func TestGuard_InvalidToken_ClearsSession(t *testing.T) {
	gw := &fakeGateway{
		validateFn: func(context.Context, string) (*ports.ValidationResult, error) {
			return &ports.ValidationResult{Valid: false}, nil
		},
	}
	reg := memory.NewRegistry()
	reg.Seed("s1", sessionFor(domain.RoleAdmin))
	g, sessions := newTestGuard(gw, reg)

	decision := g.Evaluate(context.Background(), &recordingNavigator{}, "s1", domain.NavigationRequest{
		TargetPath:   "/admin/dashboard",
		RequiredRole: domain.RoleAdmin,
	})

	if decision.Allowed || decision.RedirectTo != domain.LoginPath {
		t.Fatalf("expected deny with login redirect, got %+v", decision)
	}
	if sessions.Get(context.Background(), "s1").Current() != nil {
		t.Fatalf("expected session cleared after valid:false")
	}
}

func TestGuard_TokenRejection_ClearsSession(t *testing.T) {
	gw := &fakeGateway{
		validateFn: func(context.Context, string) (*ports.ValidationResult, error) {
			return nil, domain.ErrTokenRejected
		},
	}
	reg := memory.NewRegistry()
	reg.Seed("s1", sessionFor(domain.RoleDoctor))
	g, sessions := newTestGuard(gw, reg)

	g.Evaluate(context.Background(), &recordingNavigator{}, "s1", domain.NavigationRequest{
		TargetPath:   "/doctor/dashboard",
		RequiredRole: domain.RoleDoctor,
	})

	if sessions.Get(context.Background(), "s1").Current() != nil {
		t.Fatalf("expected session cleared after rejection")
	}
}

func TestGuard_ExpiredToken_RefreshedInPlace(t *testing.T) {
	gw := &fakeGateway{
		refreshFn: func(_ context.Context, token string) (string, error) {
			if token != "ref_live" {
				t.Errorf("unexpected refresh token: %q", token)
			}
			return "acc_fresh", nil
		},
		validateFn: func(_ context.Context, token string) (*ports.ValidationResult, error) {
			if token != "acc_fresh" {
				t.Errorf("expected refreshed token to be validated, got %q", token)
			}
			return &ports.ValidationResult{Valid: true, User: validUserFor(domain.RolePatient)}, nil
		},
	}
	reg := memory.NewRegistry()
	expired := sessionFor(domain.RolePatient)
	expired.AccessToken = expiredJWT(t)
	reg.Seed("s1", expired)
	g, sessions := newTestGuard(gw, reg)

	decision := g.Evaluate(context.Background(), &recordingNavigator{}, "s1", domain.NavigationRequest{
		TargetPath:   "/patient/dashboard",
		RequiredRole: domain.RolePatient,
	})

	if !decision.Allowed {
		t.Fatalf("expected allow after refresh, got %+v", decision)
	}
	current := sessions.Get(context.Background(), "s1").Current()
	if current == nil || current.AccessToken != "acc_fresh" {
		t.Fatalf("expected refreshed access token, got %+v", current)
	}
	if current.RefreshToken != "ref_live" {
		t.Fatalf("refresh token must stay unchanged, got %q", current.RefreshToken)
	}
}

func TestGuard_RefreshRejected_ClearsSession(t *testing.T) {
	gw := &fakeGateway{
		refreshFn: func(context.Context, string) (string, error) {
			return "", domain.ErrRefreshRejected
		},
	}
	reg := memory.NewRegistry()
	expired := sessionFor(domain.RolePatient)
	expired.AccessToken = expiredJWT(t)
	reg.Seed("s1", expired)
	g, sessions := newTestGuard(gw, reg)

	decision := g.Evaluate(context.Background(), &recordingNavigator{}, "s1", domain.NavigationRequest{
		TargetPath:   "/patient/dashboard",
		RequiredRole: domain.RolePatient,
	})

	if decision.Allowed || decision.RedirectTo != domain.LoginPath {
		t.Fatalf("expected deny with login redirect, got %+v", decision)
	}
	if sessions.Get(context.Background(), "s1").Current() != nil {
		t.Fatalf("expected session cleared after refresh rejection")
	}
	if gw.validateCalls.Load() != 0 {
		t.Fatalf("validate must not run after a rejected refresh")
	}
}

func TestGuard_RefreshTransientFailure_PreservesSession(t *testing.T) {
	gw := &fakeGateway{
		refreshFn: func(context.Context, string) (string, error) {
			return "", domain.ErrBackendUnavailable
		},
	}
	reg := memory.NewRegistry()
	expired := sessionFor(domain.RolePatient)
	expired.AccessToken = expiredJWT(t)
	reg.Seed("s1", expired)
	g, sessions := newTestGuard(gw, reg)

	decision := g.Evaluate(context.Background(), &recordingNavigator{}, "s1", domain.NavigationRequest{
		TargetPath:   "/patient/dashboard",
		RequiredRole: domain.RolePatient,
	})

	if decision.Allowed {
		t.Fatalf("expected deny")
	}
	if sessions.Get(context.Background(), "s1").Current() == nil {
		t.Fatalf("transient refresh failure must not clear the session")
	}
}

func TestGuard_ConcurrentValidations_Collapsed(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{
		validateFn: func(context.Context, string) (*ports.ValidationResult, error) {
			<-release
			return &ports.ValidationResult{Valid: true, User: validUserFor(domain.RoleAdmin)}, nil
		},
	}
	reg := memory.NewRegistry()
	reg.Seed("s1", sessionFor(domain.RoleAdmin))
	g, _ := newTestGuard(gw, reg)

	req := domain.NavigationRequest{TargetPath: "/admin/dashboard", RequiredRole: domain.RoleAdmin}

	var wg sync.WaitGroup
	decisions := make([]domain.AuthorizationDecision, 2)
	for i := range decisions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i] = g.Evaluate(context.Background(), &recordingNavigator{}, "s1", req)
		}(i)
	}

	// Let both evaluations reach the validate call, then release it once.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if gw.validateCalls.Load() != 1 {
		t.Fatalf("expected concurrent validations to collapse into one call, got %d", gw.validateCalls.Load())
	}
	for i, d := range decisions {
		if !d.Allowed {
			t.Fatalf("decision %d: expected allow, got %+v", i, d)
		}
	}
}

func TestGuard_Logout_ClearsAndPointsAtLogin(t *testing.T) {
	reg := memory.NewRegistry()
	reg.Seed("s1", sessionFor(domain.RoleAdmin))
	g, sessions := newTestGuard(&fakeGateway{}, reg)

	target := g.Logout(context.Background(), "s1")

	if target != domain.LoginPath {
		t.Fatalf("expected login path, got %q", target)
	}
	if sessions.Get(context.Background(), "s1").Current() != nil {
		t.Fatalf("expected session cleared on logout")
	}
}
