package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/infrastructure/db/memory"
	"github.com/99minutos/auth-service/internal/infrastructure/password"
	"github.com/99minutos/auth-service/internal/infrastructure/queue"
	"github.com/99minutos/auth-service/internal/infrastructure/token"
)

var publicRoutes = []string{
	"/api/v1/users/register",
	"/api/v1/auth/login",
	"/health",
	"/health/ready",
	"/metrics",
	"/swagger/**",
}

type testServer struct {
	e     *echo.Echo
	store *memory.AccountRepository
	codec *token.Codec
}

func newTestServer(t *testing.T, liveRoles bool) *testServer {
	t.Helper()

	store := memory.NewAccountRepository()
	hasher, err := password.New(password.Config{BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	pool := queue.NewHashPool(2, hasher, zerolog.Nop())
	pool.Start(ctx)

	codec, err := token.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	deps := Deps{
		Auth:         service.NewAuthService(store, pool, codec, zerolog.Nop()),
		Codec:        codec,
		TokenTTL:     codec.TTL(),
		PublicRoutes: publicRoutes,
		Health:       map[string]handler.Pinger{"store": store},
		Metrics:      prometheus.NewRegistry(),
		Log:          zerolog.Nop(),
	}
	if liveRoles {
		deps.Roles = service.NewStoreRoleResolver(store)
	}
	return &testServer{e: NewRouter(deps), store: store, codec: codec}
}

func (s *testServer) do(t *testing.T, method, target, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, bearer)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username, pw string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":"`+username+`","password":"`+pw+`"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp.Token
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

func TestRouter_RegisterLoginMe(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/v1/users/register", `{"username":"alice","password":"secret123"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	tok := s.login(t, "alice", "secret123")
	claims, err := s.codec.Decode(tok)
	if err != nil {
		t.Fatalf("decode issued token: %v", err)
	}
	if claims.Subject != "alice" || claims.ExpiresAt.Sub(claims.IssuedAt) != 4*time.Hour {
		t.Fatalf("unexpected claims %+v", claims)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/users/me", "", "Bearer "+tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	var me struct {
		Username string   `json:"username"`
		Roles    []string `json:"roles"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &me)
	if me.Username != "alice" || len(me.Roles) != 1 || me.Roles[0] != "USER" {
		t.Fatalf("unexpected identity %+v", me)
	}
}

func TestRouter_DuplicateRegistration(t *testing.T) {
	s := newTestServer(t, false)
	body := `{"username":"alice","password":"secret123"}`

	if rec := s.do(t, http.MethodPost, "/api/v1/users/register", body, ""); rec.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/api/v1/users/register", `{"username":"alice","password":"other"}`, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second register: expected 409, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "username already taken" {
		t.Fatalf("unexpected message %q", msg)
	}

	// The original password still works.
	s.login(t, "alice", "secret123")
}

func TestRouter_LoginFailuresLookAlike(t *testing.T) {
	s := newTestServer(t, false)
	s.do(t, http.MethodPost, "/api/v1/users/register", `{"username":"alice","password":"secret123"}`, "")

	wrong := s.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"nope"}`, "")
	unknown := s.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":"bob","password":"nope"}`, "")

	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown} {
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Fatalf("wrong password and unknown user must be indistinguishable")
	}
}

func TestRouter_ProtectedRouteRejectsBadTokens(t *testing.T) {
	s := newTestServer(t, false)
	s.do(t, http.MethodPost, "/api/v1/users/register", `{"username":"alice","password":"secret123"}`, "")
	tok := s.login(t, "alice", "secret123")

	tampered := []byte(tok)
	sig := strings.LastIndexByte(tok, '.') + 1
	if tampered[sig] == 'A' {
		tampered[sig] = 'B'
	} else {
		tampered[sig] = 'A'
	}

	for _, header := range []string{"", "Bearer garbage", "Bearer " + string(tampered), "Basic " + tok} {
		rec := s.do(t, http.MethodGet, "/api/v1/users/me", "", header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
		if msg := errorMessage(t, rec); msg != "unauthenticated" {
			t.Fatalf("header %q: expected generic message, got %q", header, msg)
		}
	}
}

func TestRouter_PublicRouteWithGarbageHeader(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/health", "", "Bearer %%%")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/api/v1/users/register", `{"username":"carol","password":"pw"}`, "Bearer not-a-token")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestRouter_AdminRequiresRole(t *testing.T) {
	s := newTestServer(t, true)
	s.do(t, http.MethodPost, "/api/v1/users/register", `{"username":"alice","password":"secret123"}`, "")
	tok := s.login(t, "alice", "secret123")

	if rec := s.do(t, http.MethodGet, "/api/v1/admin/ping", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/admin/ping", "", "Bearer "+tok); rec.Code != http.StatusForbidden {
		t.Fatalf("user: expected 403, got %d", rec.Code)
	}

	// Live roles: a promotion is visible without logging in again.
	if err := s.store.SetRoles("alice", []string{"USER", "ADMIN"}); err != nil {
		t.Fatalf("set roles: %v", err)
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/admin/ping", "", "Bearer "+tok); rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rec.Code)
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	s := newTestServer(t, false)

	for _, target := range []string{"/health", "/health/ready", "/metrics", "/swagger/doc.json"} {
		if rec := s.do(t, http.MethodGet, target, "", ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", target, rec.Code)
		}
	}
}

func TestRouter_Preflight(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/me", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
