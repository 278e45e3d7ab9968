package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/joaomjbraga/shipment-management/internal/api/dto"
	"github.com/joaomjbraga/shipment-management/internal/api/http/handlers"
	"github.com/joaomjbraga/shipment-management/internal/auth"
	"github.com/joaomjbraga/shipment-management/internal/domain"
	"github.com/joaomjbraga/shipment-management/internal/events"
	"github.com/joaomjbraga/shipment-management/internal/observability"
	"github.com/joaomjbraga/shipment-management/internal/repository/memory"
	"github.com/joaomjbraga/shipment-management/internal/service"
	"github.com/joaomjbraga/shipment-management/pkg/util/validation"
)

type harness struct {
	t     *testing.T
	app   *fiber.App
	now   time.Time
	logs  *observer.ObservedLogs
	users *service.UserService
}

func newHarness(t *testing.T, customize ...func(*RouteConfig)) *harness {
	t.Helper()
	h := &harness{t: t, now: time.Now()}

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	h.logs = logs

	store := memory.NewStore()
	tokens, err := auth.NewTokenManager("test-secret", 24*time.Hour, auth.WithClock(func() time.Time { return h.now }))
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	metrics := observability.NewMetrics()
	v := validation.New()

	h.users = service.NewUserService(store.Users(), bcrypt.MinCost)
	authService := service.NewAuthService(store.Users(), tokens, logger, metrics)
	deliveries := service.NewDeliveryService(service.DeliveryDependencies{
		DeliveryRepo: store.Deliveries(),
		LogRepo:      store.DeliveryLogs(),
		UserRepo:     store.Users(),
		Dispatcher:   events.NewInMemoryDispatcher(),
		Metrics:      metrics,
		Logger:       logger,
	})

	routes := RouteConfig{
		Health:              handlers.NewHealthHandler("shipment-management", "test", nil),
		Sessions:            handlers.NewSessionsHandler(authService, v),
		Users:               handlers.NewUsersHandler(h.users, v),
		Deliveries:          handlers.NewDeliveriesHandler(deliveries, v),
		DeliveryLogs:        handlers.NewDeliveryLogsHandler(deliveries, v),
		AuthMiddleware:      auth.NewAuthMiddleware(tokens, logger, metrics),
		DeliveryCreateRoles: auth.NewRoleSet(domain.RoleSeller),
		Metrics:             metrics.Handler(),
	}
	for _, fn := range customize {
		fn(&routes)
	}
	h.app = NewApp(AppConfig{Name: "test", RequestTimeout: 5 * time.Second}, logger, metrics, routes)
	return h
}

func (h *harness) do(method, path, token string, body any) (int, []byte) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func (h *harness) decode(data []byte, out any) {
	h.t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		h.t.Fatalf("decode %s: %v", data, err)
	}
}

func (h *harness) expect(status, want int, body []byte) {
	h.t.Helper()
	if status != want {
		h.t.Fatalf("expected status %d, got %d: %s", want, status, body)
	}
}

func (h *harness) seedSeller(email, password string) {
	h.t.Helper()
	if _, err := h.users.EnsureSeller(context.Background(), service.UserCreateInput{Name: "Seller", Email: email, Password: password}); err != nil {
		h.t.Fatalf("seed seller: %v", err)
	}
}

func (h *harness) register(name, email, password string) dto.UserResponse {
	h.t.Helper()
	status, body := h.do("POST", "/users", "", fiber.Map{"name": name, "email": email, "password": password})
	h.expect(status, fiber.StatusCreated, body)
	var user dto.UserResponse
	h.decode(body, &user)
	return user
}

func (h *harness) login(email, password string) string {
	h.t.Helper()
	status, body := h.do("POST", "/sessions", "", fiber.Map{"email": email, "password": password})
	h.expect(status, fiber.StatusOK, body)
	var session dto.SessionResponse
	h.decode(body, &session)
	if session.Token == "" {
		h.t.Fatal("expected token in session response")
	}
	return session.Token
}

func TestSellerCustomerScenario(t *testing.T) {
	h := newHarness(t)
	h.seedSeller("seller@example.com", "secret1")
	customer := h.register("Carla", "carla@example.com", "secret1")
	h.register("Caio", "caio@example.com", "secret1")

	sellerToken := h.login("seller@example.com", "secret1")
	customerToken := h.login("carla@example.com", "secret1")
	otherToken := h.login("caio@example.com", "secret1")

	status, body := h.do("POST", "/deliveries", sellerToken, fiber.Map{"user_id": customer.ID, "description": "notebook"})
	h.expect(status, fiber.StatusCreated, body)
	var delivery dto.DeliveryResponse
	h.decode(body, &delivery)
	if delivery.Status != domain.DeliveryStatusProcessing || delivery.UserID != customer.ID {
		t.Fatalf("unexpected delivery %+v", delivery)
	}

	statusPath := "/deliveries/" + delivery.ID + "/status"
	status, body = h.do("PATCH", statusPath, customerToken, fiber.Map{"status": "shipped"})
	h.expect(status, fiber.StatusForbidden, body)

	status, body = h.do("PATCH", statusPath, sellerToken, fiber.Map{"status": "shipped"})
	h.expect(status, fiber.StatusOK, body)
	h.decode(body, &delivery)
	if delivery.Status != domain.DeliveryStatusShipped {
		t.Fatalf("expected shipped, got %s", delivery.Status)
	}

	showPath := "/deliveries-logs/" + delivery.ID + "/show"
	status, body = h.do("GET", showPath, customerToken, nil)
	h.expect(status, fiber.StatusOK, body)
	var shown dto.DeliveryWithLogsResponse
	h.decode(body, &shown)
	if len(shown.Logs) != 1 || shown.Logs[0].Description != "shipped" {
		t.Fatalf("expected one shipped entry, got %+v", shown.Logs)
	}

	status, body = h.do("GET", showPath, otherToken, nil)
	h.expect(status, fiber.StatusForbidden, body)
}

func TestLoginWrongPasswordBody(t *testing.T) {
	h := newHarness(t)
	h.register("Carla", "carla@example.com", "secret1")

	status, body := h.do("POST", "/sessions", "", fiber.Map{"email": "carla@example.com", "password": "nope-nope"})
	h.expect(status, fiber.StatusUnauthorized, body)

	var payload map[string]any
	h.decode(body, &payload)
	if len(payload) != 1 || payload["message"] != "Invalid email or password." {
		t.Fatalf("unexpected body %s", body)
	}
	if _, ok := payload["token"]; ok {
		t.Fatal("token must not be present on failure")
	}
}

func TestExpiredTokenIsUniform401(t *testing.T) {
	h := newHarness(t)
	h.seedSeller("seller@example.com", "secret1")
	token := h.login("seller@example.com", "secret1")

	h.now = h.now.Add(25 * time.Hour)
	status, expiredBody := h.do("GET", "/deliveries", token, nil)
	h.expect(status, fiber.StatusUnauthorized, expiredBody)

	status, malformedBody := h.do("GET", "/deliveries", "not.a.token", nil)
	h.expect(status, fiber.StatusUnauthorized, malformedBody)

	if !bytes.Equal(expiredBody, malformedBody) {
		t.Fatalf("bodies differ: %s vs %s", expiredBody, malformedBody)
	}
	var payload map[string]any
	h.decode(expiredBody, &payload)
	if payload["message"] != auth.UnauthorizedMessage {
		t.Fatalf("unexpected message %v", payload["message"])
	}

	expiredLogs := h.logs.FilterMessage("authentication failed").FilterField(zap.String("reason", "expired_token"))
	if expiredLogs.Len() != 1 {
		t.Fatalf("expected one expired_token log entry, got %d", expiredLogs.Len())
	}
}

func TestTransitionRulesOverHTTP(t *testing.T) {
	h := newHarness(t)
	h.seedSeller("seller@example.com", "secret1")
	customer := h.register("Carla", "carla@example.com", "secret1")
	token := h.login("seller@example.com", "secret1")

	status, body := h.do("POST", "/deliveries", token, fiber.Map{"user_id": customer.ID, "description": "bike"})
	h.expect(status, fiber.StatusCreated, body)
	var delivery dto.DeliveryResponse
	h.decode(body, &delivery)
	statusPath := "/deliveries/" + delivery.ID + "/status"

	for _, requested := range []string{"processing", "delivered"} {
		status, body = h.do("PATCH", statusPath, token, fiber.Map{"status": requested})
		h.expect(status, fiber.StatusBadRequest, body)
	}
	status, body = h.do("PATCH", statusPath, token, fiber.Map{"status": "lost"})
	h.expect(status, fiber.StatusBadRequest, body)
	var invalid map[string]any
	h.decode(body, &invalid)
	if _, ok := invalid["errors"]; !ok {
		t.Fatalf("expected field errors for unknown status, got %s", body)
	}

	status, body = h.do("GET", "/deliveries-logs/"+delivery.ID+"/show", token, nil)
	h.expect(status, fiber.StatusOK, body)
	var shown dto.DeliveryWithLogsResponse
	h.decode(body, &shown)
	if len(shown.Logs) != 0 || shown.Status != domain.DeliveryStatusProcessing {
		t.Fatalf("rejected transitions must not mutate, got %+v", shown)
	}

	status, body = h.do("PATCH", "/deliveries/not-a-uuid/status", token, fiber.Map{"status": "shipped"})
	h.expect(status, fiber.StatusBadRequest, body)

	status, body = h.do("PATCH", "/deliveries/6f1c1e36-3b8e-4d0e-9d4a-2a8f0c6b9e11/status", token, fiber.Map{"status": "shipped"})
	h.expect(status, fiber.StatusNotFound, body)
}

func TestDeliveryLogEndpoints(t *testing.T) {
	h := newHarness(t)
	h.seedSeller("seller@example.com", "secret1")
	customer := h.register("Carla", "carla@example.com", "secret1")
	token := h.login("seller@example.com", "secret1")
	customerToken := h.login("carla@example.com", "secret1")

	status, body := h.do("POST", "/deliveries", token, fiber.Map{"user_id": customer.ID, "description": "sofa"})
	h.expect(status, fiber.StatusCreated, body)
	var delivery dto.DeliveryResponse
	h.decode(body, &delivery)

	logBody := fiber.Map{"delivery_id": delivery.ID, "description": "left the warehouse"}
	status, body = h.do("POST", "/deliveries-logs", token, logBody)
	h.expect(status, fiber.StatusBadRequest, body)

	status, body = h.do("POST", "/deliveries-logs", customerToken, logBody)
	h.expect(status, fiber.StatusForbidden, body)

	status, body = h.do("PATCH", "/deliveries/"+delivery.ID+"/status", token, fiber.Map{"status": "shipped"})
	h.expect(status, fiber.StatusOK, body)

	status, body = h.do("POST", "/deliveries-logs", token, logBody)
	h.expect(status, fiber.StatusCreated, body)

	status, body = h.do("GET", "/deliveries-logs/"+delivery.ID+"/show", customerToken, nil)
	h.expect(status, fiber.StatusOK, body)
	var shown dto.DeliveryWithLogsResponse
	h.decode(body, &shown)
	if len(shown.Logs) != 2 || shown.Logs[0].Description != "shipped" || shown.Logs[1].Description != "left the warehouse" {
		t.Fatalf("unexpected log order %+v", shown.Logs)
	}

	status, body = h.do("GET", "/deliveries", token, nil)
	h.expect(status, fiber.StatusOK, body)
	var list []dto.DeliveryListItem
	h.decode(body, &list)
	if len(list) != 1 || list[0].User.Email != "carla@example.com" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestDeliveryCreateRolesConfigurable(t *testing.T) {
	h := newHarness(t, func(rc *RouteConfig) {
		rc.DeliveryCreateRoles = auth.NewRoleSet(domain.RoleSeller, domain.RoleCustomer)
	})
	customer := h.register("Carla", "carla@example.com", "secret1")
	other := h.register("Caio", "caio@example.com", "secret1")
	token := h.login("carla@example.com", "secret1")

	status, body := h.do("POST", "/deliveries", token, fiber.Map{"user_id": customer.ID, "description": "mine"})
	h.expect(status, fiber.StatusCreated, body)

	status, body = h.do("POST", "/deliveries", token, fiber.Map{"user_id": other.ID, "description": "theirs"})
	h.expect(status, fiber.StatusForbidden, body)

	// seller-only default rejects customers outright
	strict := newHarness(t)
	strictCustomer := strict.register("Carla", "carla@example.com", "secret1")
	strictToken := strict.login("carla@example.com", "secret1")
	status, body = strict.do("POST", "/deliveries", strictToken, fiber.Map{"user_id": strictCustomer.ID, "description": "mine"})
	strict.expect(status, fiber.StatusForbidden, body)
}

func TestUserEndpoints(t *testing.T) {
	h := newHarness(t)
	h.seedSeller("seller@example.com", "secret1")
	customer := h.register("Carla", "carla@example.com", "secret1")
	other := h.register("Caio", "caio@example.com", "secret1")
	sellerToken := h.login("seller@example.com", "secret1")
	customerToken := h.login("carla@example.com", "secret1")

	status, body := h.do("POST", "/users", "", fiber.Map{"name": "Dup", "email": "carla@example.com", "password": "secret1"})
	h.expect(status, fiber.StatusBadRequest, body)

	status, body = h.do("POST", "/users", "", fiber.Map{"name": "Bad", "email": "not-an-email", "password": "123"})
	h.expect(status, fiber.StatusBadRequest, body)
	var invalid struct {
		Message string `json:"message"`
		Errors  []struct {
			Field string `json:"field"`
		} `json:"errors"`
	}
	h.decode(body, &invalid)
	if len(invalid.Errors) != 2 || invalid.Errors[0].Field != "email" || invalid.Errors[1].Field != "password" {
		t.Fatalf("unexpected field errors %s", body)
	}

	status, body = h.do("GET", "/users", customerToken, nil)
	h.expect(status, fiber.StatusForbidden, body)
	status, body = h.do("GET", "/users", "", nil)
	h.expect(status, fiber.StatusUnauthorized, body)
	status, body = h.do("GET", "/users", sellerToken, nil)
	h.expect(status, fiber.StatusOK, body)
	if bytes.Contains(body, []byte("password")) {
		t.Fatalf("user listing leaked password data: %s", body)
	}

	status, body = h.do("PUT", "/users/"+customer.ID, customerToken, fiber.Map{"name": "Carla Souza"})
	h.expect(status, fiber.StatusOK, body)
	var updated dto.UserResponse
	h.decode(body, &updated)
	if updated.Name != "Carla Souza" {
		t.Fatalf("expected updated name, got %q", updated.Name)
	}

	status, body = h.do("PUT", "/users/"+other.ID, customerToken, fiber.Map{"name": "Hacked"})
	h.expect(status, fiber.StatusForbidden, body)
	status, body = h.do("PUT", "/users/"+customer.ID, customerToken, fiber.Map{"role": "seller"})
	h.expect(status, fiber.StatusForbidden, body)

	status, body = h.do("DELETE", "/users/"+other.ID, sellerToken, nil)
	h.expect(status, fiber.StatusNoContent, body)
	status, body = h.do("DELETE", "/users/"+other.ID, sellerToken, nil)
	h.expect(status, fiber.StatusNotFound, body)
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], window, nil
}

func TestSessionsRateLimited(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}}
	h := newHarness(t, func(rc *RouteConfig) {
		rc.SessionsLimiter = RateLimit(counter, 2, time.Minute, zap.NewNop())
	})
	creds := fiber.Map{"email": "nobody@example.com", "password": "whatever"}

	for i := 0; i < 2; i++ {
		status, body := h.do("POST", "/sessions", "", creds)
		h.expect(status, fiber.StatusUnauthorized, body)
	}
	status, body := h.do("POST", "/sessions", "", creds)
	h.expect(status, fiber.StatusTooManyRequests, body)
}

func TestRateLimitFailsOpen(t *testing.T) {
	counter := &fakeCounter{err: errors.New("redis down")}
	h := newHarness(t, func(rc *RouteConfig) {
		rc.SessionsLimiter = RateLimit(counter, 1, time.Minute, zap.NewNop())
	})
	for i := 0; i < 3; i++ {
		status, body := h.do("POST", "/sessions", "", fiber.Map{"email": "nobody@example.com", "password": "whatever"})
		h.expect(status, fiber.StatusUnauthorized, body)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t, func(rc *RouteConfig) {
		rc.Health = handlers.NewHealthHandler("shipment-management", "test", map[string]handlers.Pinger{
			"postgres": stubPinger{},
			"redis":    stubPinger{err: errors.New("connection refused")},
		})
	})

	status, body := h.do("GET", "/health/live", "", nil)
	h.expect(status, fiber.StatusOK, body)

	status, body = h.do("GET", "/health/ready", "", nil)
	h.expect(status, fiber.StatusServiceUnavailable, body)

	status, body = h.do("GET", "/metrics", "", nil)
	h.expect(status, fiber.StatusOK, body)
	if !bytes.Contains(body, []byte("http_requests_total")) {
		t.Fatalf("expected request metrics in exposition")
	}
}

func TestUnknownRouteUsesErrorBody(t *testing.T) {
	h := newHarness(t)
	status, body := h.do("GET", "/nowhere", "", nil)
	h.expect(status, fiber.StatusNotFound, body)

	var payload map[string]any
	h.decode(body, &payload)
	if _, ok := payload["message"]; !ok {
		t.Fatalf("expected message field, got %s", body)
	}
}

func TestRequestTimeoutRendersServiceUnavailable(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	RegisterMiddlewares(app, zap.NewNop(), nil, 20*time.Millisecond)
	app.Get("/slow", func(c *fiber.Ctx) error {
		<-c.UserContext().Done()
		return c.UserContext().Err()
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/slow", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", resp.StatusCode, body)
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["message"] != "Request timed out." {
		t.Fatalf("unexpected body %s", body)
	}
}
