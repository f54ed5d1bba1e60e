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

	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/core/service"
	"github.com/99minutos/user-service/internal/infrastructure/db/memory"
)

const (
	rootEmail    = "root@example.com"
	rootPassword = "rootpw"
)

type testServer struct {
	e      *echo.Echo
	stop   context.CancelFunc
	proc   *service.UserProcessor
	tokens *service.JWTTokens
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	tokens := service.NewJWTTokens("router-test-key")
	proc, err := service.NewUserProcessor(store, service.NewBcryptHasher(), tokens, service.ProcessorConfig{
		TokenIssuer:   "XApps",
		TokenValidity: time.Hour,
		HashCost:      bcrypt.MinCost,
		Root: service.RootAccount{
			Email:      rootEmail,
			Password:   rootPassword,
			FirstName:  "Root",
			HashRounds: bcrypt.MinCost,
		},
		Timeout: 2 * time.Second,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewUserProcessor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	proc.Start(ctx)
	t.Cleanup(func() {
		cancel()
		<-proc.Done()
	})
	if err := proc.Seed(ctx); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	e := NewRouter(Dependencies{
		Users:    proc,
		Verifier: tokens,
		Issuer:   "XApps",
		Health:   map[string]ports.Pinger{"store": store},
		Log:      zerolog.Nop(),
		Metrics:  prometheus.NewRegistry(),
	})
	return &testServer{e: e, stop: cancel, proc: proc, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/users/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	if code != http.StatusOK || body["type"] != "OK" {
		t.Fatalf("login %s: %d %v", email, code, body)
	}
	auth := body["authentication"].(map[string]any)
	if auth["validity"].(float64) <= float64(time.Now().UnixMilli()) {
		t.Fatalf("validity must be in the future: %v", auth["validity"])
	}
	return auth["token"].(string)
}

func userID(t *testing.T, body map[string]any) int64 {
	t.Helper()
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("no user in %v", body)
	}
	return int64(user["id"].(float64))
}

func roleNamesOf(body map[string]any) []string {
	user, _ := body["user"].(map[string]any)
	roles, _ := user["roles"].([]any)
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.(map[string]any)["name"].(string))
	}
	return names
}

func TestRouter_LoginOutcomesShareShape(t *testing.T) {
	s := newTestServer(t)

	token := s.login(t, rootEmail, rootPassword)
	if token == "" {
		t.Fatalf("expected token")
	}

	_, wrong := s.do(t, http.MethodPost, "/users/login", "", `{"email":"root@example.com","password":"nope"}`)
	_, unknown := s.do(t, http.MethodPost, "/users/login", "", `{"email":"ghost@example.com","password":"x"}`)
	if len(wrong) != 1 || wrong["type"] != "UNAUTHORIZED" {
		t.Fatalf("unexpected wrong-password body: %v", wrong)
	}
	if len(unknown) != 1 || unknown["type"] != "UNAUTHORIZED" {
		t.Fatalf("unexpected unknown-email body: %v", unknown)
	}
}

func TestRouter_ListUsersAuthorization(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, rootEmail, rootPassword)

	if code, _ := s.do(t, http.MethodGet, "/users", "", ""); code != http.StatusForbidden {
		t.Fatalf("anonymous list: expected 403, got %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/users", "not-a-jwt", ""); code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set(echo.HeaderAuthorization, "Token "+admin)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("malformed header: expected 401, got %d", rec.Code)
	}

	code, body := s.do(t, http.MethodGet, "/users", admin, "")
	if code != http.StatusOK || body["type"] != "OK" {
		t.Fatalf("admin list: %d %v", code, body)
	}
	if users := body["users"].([]any); len(users) != 1 {
		t.Fatalf("expected the root user only, got %v", users)
	}
}

func TestRouter_AnonymousSignup(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/users", "", `{"email":"a@x.com","password":"p","roles":null}`)
	if code != http.StatusOK || body["type"] != "OK" {
		t.Fatalf("signup: %d %v", code, body)
	}
	if names := roleNamesOf(body); len(names) != 1 || names[0] != "Guest" {
		t.Fatalf("expected [Guest], got %v", names)
	}
	if strings.Contains(toJSON(body), "password") {
		t.Fatalf("response leaks password: %v", body)
	}

	code, body = s.do(t, http.MethodPost, "/users", "", `{"email":"a@x.com","password":"q"}`)
	if code != http.StatusOK || body["type"] != "EMAIL_NOT_AVAILABLE" {
		t.Fatalf("duplicate signup: %d %v", code, body)
	}
}

func TestRouter_AdministratorSignupNeedsAdministrator(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, rootEmail, rootPassword)
	payload := `{"email":"boss@x.com","password":"p","roles":[{"name":"Administrator"}]}`

	if code, _ := s.do(t, http.MethodPost, "/users", "", payload); code != http.StatusForbidden {
		t.Fatalf("anonymous admin signup: expected 403, got %d", code)
	}
	_, list := s.do(t, http.MethodGet, "/users", admin, "")
	if n := len(list["users"].([]any)); n != 1 {
		t.Fatalf("rejected signup must not create a user, have %d", n)
	}

	code, body := s.do(t, http.MethodPost, "/users", admin, payload)
	if code != http.StatusOK || body["type"] != "OK" {
		t.Fatalf("admin signup: %d %v", code, body)
	}
	if names := roleNamesOf(body); len(names) != 1 || names[0] != "Administrator" {
		t.Fatalf("expected [Administrator], got %v", names)
	}
}

func TestRouter_SelfOrAdministratorRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, rootEmail, rootPassword)

	_, created := s.do(t, http.MethodPost, "/users", "", `{"email":"g@x.com","password":"p"}`)
	guestID := userID(t, created)
	guest := s.login(t, "g@x.com", "p")

	self := "/users/" + itoa(guestID)
	if code, body := s.do(t, http.MethodGet, self, guest, ""); code != http.StatusOK || body["type"] != "OK" {
		t.Fatalf("self read: %d %v", code, body)
	}
	if code, _ := s.do(t, http.MethodGet, "/users/1", guest, ""); code != http.StatusForbidden {
		t.Fatalf("guest reading root: expected 403, got %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, self, "", ""); code != http.StatusForbidden {
		t.Fatalf("anonymous read: expected 403, got %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, self, admin, ""); code != http.StatusOK {
		t.Fatalf("admin read: expected 200, got %d", code)
	}
	if code, body := s.do(t, http.MethodGet, "/users/999", admin, ""); code != http.StatusOK || body["type"] != "NOT_FOUND" {
		t.Fatalf("missing user: %d %v", code, body)
	}
	if code, _ := s.do(t, http.MethodGet, "/users/abc", admin, ""); code != http.StatusNotFound {
		t.Fatalf("non-numeric id: expected 404, got %d", code)
	}
}

func TestRouter_UpdateRoles(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, rootEmail, rootPassword)

	_, created := s.do(t, http.MethodPost, "/users", "", `{"email":"g@x.com","password":"p","firstName":"G"}`)
	path := "/users/" + itoa(userID(t, created))

	code, body := s.do(t, http.MethodPut, path, admin, `{"firstName":"Gina","roles":[]}`)
	if code != http.StatusOK || body["type"] != "OK" {
		t.Fatalf("update: %d %v", code, body)
	}
	if names := roleNamesOf(body); len(names) != 1 || names[0] != "Guest" {
		t.Fatalf("empty roles must keep [Guest], got %v", names)
	}
	if body["user"].(map[string]any)["firstName"] != "Gina" {
		t.Fatalf("first name not updated: %v", body)
	}

	_, body = s.do(t, http.MethodPut, path, admin, `{"roles":["Administrator"]}`)
	if names := roleNamesOf(body); len(names) != 1 || names[0] != "Administrator" {
		t.Fatalf("expected [Administrator], got %v", names)
	}

	_, body = s.do(t, http.MethodPut, path, admin, `{"email":"root@example.com"}`)
	if body["type"] != "EMAIL_NOT_AVAILABLE" {
		t.Fatalf("expected EMAIL_NOT_AVAILABLE, got %v", body)
	}

	if code, _ := s.do(t, http.MethodPut, path, admin, `{"email":"not-an-email"}`); code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid email: expected 422, got %d", code)
	}
	if code, _ := s.do(t, http.MethodPut, path, admin, `{"email":`); code != http.StatusBadRequest {
		t.Fatalf("bad json: expected 400, got %d", code)
	}
}

func TestRouter_Delete(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, rootEmail, rootPassword)

	_, created := s.do(t, http.MethodPost, "/users", "", `{"email":"g@x.com","password":"p"}`)
	path := "/users/" + itoa(userID(t, created))

	if code, body := s.do(t, http.MethodDelete, path, admin, ""); code != http.StatusOK || body["type"] != "OK" {
		t.Fatalf("delete: %d %v", code, body)
	}
	if _, body := s.do(t, http.MethodDelete, path, admin, ""); body["type"] != "NOT_FOUND" {
		t.Fatalf("second delete: %v", body)
	}
}

func TestRouter_PublicRoutes(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/users/roles", "", "")
	if code != http.StatusOK || len(body["roles"].([]any)) != 2 {
		t.Fatalf("roles: %d %v", code, body)
	}
	if code, _ := s.do(t, http.MethodGet, "/health", "", ""); code != http.StatusOK {
		t.Fatalf("health: %d", code)
	}
	if code, body := s.do(t, http.MethodGet, "/health/ready", "", ""); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("ready: %d %v", code, body)
	}
	if code, _ := s.do(t, http.MethodGet, "/metrics", "", ""); code != http.StatusOK {
		t.Fatalf("metrics: %d", code)
	}
}

func TestRouter_StoppedProcessorIs503(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, rootEmail, rootPassword)

	s.stop()
	<-s.proc.Done()

	if code, _ := s.do(t, http.MethodGet, "/users/1", token, ""); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func toJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
