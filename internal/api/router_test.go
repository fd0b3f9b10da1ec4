package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/talentflow/recruiting/internal/core/domain"
	"github.com/talentflow/recruiting/internal/core/service"
	"github.com/talentflow/recruiting/internal/infrastructure/identity"
)

type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func (r *memoryAccounts) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[a.Email]; ok {
		return nil, domain.ErrAccountExists
	}
	c := *a
	r.accounts[a.Email] = &c
	return &c, nil
}

func (r *memoryAccounts) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[email]
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	c := *a
	return &c, nil
}

type memoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

func (s *memoryProfiles) GetProfile(_ context.Context, id string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[id].Clone(), nil
}

func (s *memoryProfiles) UpsertProfile(_ context.Context, id string, patch domain.ProfilePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		if patch.Role == nil {
			return domain.ErrProfileNotFound
		}
		p = &domain.Profile{PrincipalID: id, Role: *patch.Role, IsActive: true}
		s.profiles[id] = p
	}
	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	return nil
}

type testServer struct {
	e        *echo.Echo
	manager  *service.SessionManager
	provider *identity.LocalProvider
}

func newTestServer(t *testing.T, start bool) *testServer {
	t.Helper()
	log := zerolog.Nop()
	provider := identity.NewLocalProvider(&memoryAccounts{accounts: map[string]*domain.Account{}}, nil, identity.Config{}, log)
	resolver := service.NewRoleResolver("founder@org.com", []string{"org.com"})
	manager := service.NewSessionManager(provider, &memoryProfiles{profiles: map[string]*domain.Profile{}}, resolver,
		service.SessionManagerConfig{Timeout: time.Second}, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		if start {
			<-manager.Done()
		}
		provider.Close()
	})
	if start {
		manager.Start(ctx)
	}

	e := NewRouter(Dependencies{
		Sessions: manager,
		Accounts: provider,
		Routes:   service.Routes{Login: "/login", Home: "/"},
		Log:      log,
		Registry: prometheus.NewRegistry(),
	})
	return &testServer{e: e, manager: manager, provider: provider}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) waitForStatus(t *testing.T, status domain.SessionStatus) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for s.manager.GetSession().Status != status {
		if time.Now().After(deadline) {
			t.Fatalf("session never reached %s, last %s", status, s.manager.GetSession().Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, target string) {
	t.Helper()
	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != target {
		t.Fatalf("expected redirect to %s, got %d %q", target, rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
}

func TestRouter_PendingSessionWaits(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(http.MethodGet, "/dashboard", "")
	if rec.Code != http.StatusServiceUnavailable || rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected 503 with Retry-After, got %d", rec.Code)
	}
}

func TestRouter_SignUpToGuardedAreasAndBack(t *testing.T) {
	s := newTestServer(t, true)
	s.waitForStatus(t, domain.SessionUnauthenticated)

	expectRedirect(t, s.do(http.MethodGet, "/dashboard", ""), "/login")

	rec := s.do(http.MethodPost, "/auth/signup", `{"email":"sam@org.com","password":"long-enough","role":"admin"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	s.waitForStatus(t, domain.SessionAuthenticated)

	var session struct {
		Status  string         `json:"status"`
		Profile domain.Profile `json:"profile"`
	}
	rec = s.do(http.MethodGet, "/session", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("invalid session json: %v", err)
	}
	if session.Status != "authenticated" || session.Profile.Role != domain.RoleAdmin {
		t.Fatalf("unexpected session: %+v", session)
	}

	for _, path := range []string{"/dashboard", "/admin", "/recruiting"} {
		if rec := s.do(http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
	expectRedirect(t, s.do(http.MethodGet, "/portal", ""), "/")
	expectRedirect(t, s.do(http.MethodGet, "/applications", ""), "/")

	rec = s.do(http.MethodPatch, "/profile", `{"display_name":"Sam"}`)
	if rec.Code != http.StatusOK || s.manager.GetSession().Profile.DisplayName != "Sam" {
		t.Fatalf("profile update failed: %d %s", rec.Code, rec.Body.String())
	}

	if rec := s.do(http.MethodPost, "/auth/logout", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}
	expectRedirect(t, s.do(http.MethodGet, "/admin", ""), "/login")
	if rec := s.do(http.MethodPatch, "/profile", `{"display_name":"Sam"}`); rec.Code != http.StatusFound {
		t.Fatalf("profile update after logout: expected redirect, got %d", rec.Code)
	}
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(http.MethodPost, "/auth/login", `{"email":"nobody@org.com","password":"long-enough"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || !strings.Contains(resp.Error, "try again") {
		t.Fatalf("unexpected error body %q", rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/auth/federated", `{"assertion":"x.y.z"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("federation disabled: expected 401, got %d", rec.Code)
	}

	rec = s.do(http.MethodPost, "/auth/signup", `{"email":"sam@org.com","password":"short"}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "password must be at least 8") {
		t.Fatalf("expected validation error, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t, false)

	if rec := s.do(http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/health/ready", ""); rec.Code != http.StatusOK {
		t.Fatalf("readiness without dependencies: expected 200, got %d", rec.Code)
	}

	rec := s.do(http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "recruiting_http_requests_total") {
		t.Fatalf("expected http metrics to be exposed, got %d", rec.Code)
	}
}
