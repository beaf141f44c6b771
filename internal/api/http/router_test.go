package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-console/internal/auth"
	"github.com/spec-kit/helpdesk-console/internal/config"
	"github.com/spec-kit/helpdesk-console/internal/observability"
	"github.com/spec-kit/helpdesk-console/internal/service"
	"github.com/spec-kit/helpdesk-console/internal/session"
)

type fakeBackend struct {
	mu          sync.Mutex
	failUpdates bool
	updates     []string
	imageParts  []string
}

func (b *fakeBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/auth/login":
			if err := r.ParseForm(); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			username := r.FormValue("username")
			role := "user"
			if username == "root" {
				role = "admin"
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-" + username, "role": role, "username": username})
		case r.URL.Path == "/api/tickets/all":
			_, _ = io.WriteString(w, `{"text_tickets":[
				{"id":1,"subject":"Printer jam","body":"Paper stuck in tray two","ticket_type":"hardware","priority":"high","is_resolved":false},
				{"id":2,"subject":"VPN drops","body":"Disconnects hourly","ticket_type":"software","priority":"low","is_resolved":true,"admin_solution":"Update client"}
			],"ocr_tickets":[]}`)
		case strings.HasSuffix(r.URL.Path, "/admin-solution"):
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.failUpdates {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"detail":"db down"}`)
				return
			}
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			b.updates = append(b.updates, body["admin_solution"])
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/api/tickets/submit":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 9, "subject": body["subject"], "body": body["body"], "ticket_type": "software", "priority": "medium"})
		case r.URL.Path == "/api/ocr/submit-image":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b.mu.Lock()
			b.imageParts = append(b.imageParts, r.MultipartForm.File["image"][0].Header.Get("Content-Type"))
			b.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 10, "subject": r.FormValue("subject"), "body": r.FormValue("body") + "\nOCR text", "ticket_type": "hardware", "priority": "high"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

type harness struct {
	t       *testing.T
	app     *fiber.App
	backend *fakeBackend
	cookie  *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := &fakeBackend{}
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	cfg := config.Config{
		Backend:   config.BackendConfig{BaseURL: server.URL, APIPrefix: "/api", TimeoutSeconds: 5},
		Workspace: config.WorkspaceConfig{PageSize: 1, PreviewLength: 10},
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	registry := service.NewRegistry(service.ConsoleDependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
	}, func(string) session.Backend { return session.NewMemoryBackend() }, 0)

	app := NewApp(AppConfig{Name: "test", Logger: logger, BodyLimit: 20 << 20}, RouteConfig{
		Health:            handlers.NewHealthHandler("test", "dev", nil),
		Auth:              handlers.NewAuthHandler(),
		Tickets:           handlers.NewTicketsHandler(0),
		Admin:             handlers.NewAdminHandler(),
		SessionMiddleware: auth.NewSessionMiddleware(registry, auth.CookieOptions{Name: "sid"}, logger),
		Metrics:           metrics,
	})
	return &harness{t: t, app: app, backend: backend}
}

func (h *harness) do(method, path string, body io.Reader, contentType string) (int, map[string]any) {
	h.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == "sid" {
			h.cookie = c
		}
	}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(h.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (h *harness) json(method, path string, payload any) (int, map[string]any) {
	h.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(h.t, err)
		body = bytes.NewReader(raw)
	}
	return h.do(method, path, body, fiber.MIMEApplicationJSON)
}

func data(out map[string]any) map[string]any {
	d, _ := out["data"].(map[string]any)
	return d
}

func errorCode(out map[string]any) string {
	e, _ := out["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthLive(t *testing.T) {
	h := newHarness(t)
	status, out := h.do(http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", out["status"])
}

func TestUnknownRouteRendersError(t *testing.T) {
	h := newHarness(t)
	status, out := h.do(http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(out))
}

func TestAdminRoutesRequireLogin(t *testing.T) {
	h := newHarness(t)
	status, out := h.json(http.MethodGet, "/api/admin/tickets", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(out))
	require.NotNil(t, h.cookie, "a session cookie is issued on first contact")
	assert.True(t, h.cookie.HttpOnly)
}

func TestRouteResolution(t *testing.T) {
	h := newHarness(t)
	_, out := h.json(http.MethodGet, "/api/routes/resolve?path=/admin-dashboard", nil)
	assert.Equal(t, session.RouteLogin, data(out)["redirect"])

	status, _ := h.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "root", "password": "pw"})
	require.Equal(t, http.StatusOK, status)

	_, out = h.json(http.MethodGet, "/api/routes/resolve?path=/admin-dashboard", nil)
	assert.Equal(t, true, data(out)["allowed"])

	_, out = h.json(http.MethodGet, "/api/routes/resolve?path=/unknown", nil)
	assert.Equal(t, true, data(out)["not_found"])
}

func TestUnissuedSessionIDIsReplaced(t *testing.T) {
	h := newHarness(t)
	forced := "11111111-1111-1111-1111-111111111111"
	h.cookie = &http.Cookie{Name: "sid", Value: forced}

	status, _ := h.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "root", "password": "pw"})
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, h.cookie)
	assert.NotEqual(t, forced, h.cookie.Value)
	signedIn := h.cookie

	h.cookie = &http.Cookie{Name: "sid", Value: forced}
	status, out := h.json(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(out))

	h.cookie = signedIn
	status, out = h.json(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "root", data(out)["username"])
}

func TestLoginRotatesSessionID(t *testing.T) {
	h := newHarness(t)
	h.json(http.MethodGet, "/api/routes/resolve?path=/", nil)
	require.NotNil(t, h.cookie)
	before := h.cookie.Value

	status, _ := h.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "neo", "password": "pw"})
	require.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, before, h.cookie.Value)

	h.cookie = &http.Cookie{Name: "sid", Value: before}
	status, _ = h.json(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginValidation(t *testing.T) {
	h := newHarness(t)
	status, out := h.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(out))
}

func TestAdminWorkflow(t *testing.T) {
	h := newHarness(t)

	status, out := h.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "root", "password": "pw"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, session.RouteAdminDashboard, data(out)["redirect"])

	status, out = h.json(http.MethodPost, "/api/admin/tickets/refresh", nil)
	require.Equal(t, http.StatusOK, status)
	dash := data(out)
	stats := dash["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["total"])
	assert.Equal(t, float64(1), stats["resolved"])
	assert.Equal(t, float64(2), dash["total_pages"])
	items := dash["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Paper stuc...", items[0].(map[string]any)["preview"])

	_, out = h.json(http.MethodGet, "/api/admin/tickets?page=2", nil)
	assert.Equal(t, float64(2), data(out)["page"])

	_, out = h.json(http.MethodGet, "/api/admin/tickets?status=resolved", nil)
	dash = data(out)
	assert.Equal(t, float64(1), dash["page"])
	assert.Equal(t, float64(1), dash["total_items"])
	assert.Equal(t, "2", dash["items"].([]any)[0].(map[string]any)["id"])

	_, out = h.json(http.MethodGet, "/api/admin/tickets?text=nothing-matches", nil)
	assert.Equal(t, "Try adjusting your filters.", data(out)["empty_message"])

	status, out = h.json(http.MethodPost, "/api/admin/tickets/1/expand", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Paper stuck in tray two", data(out)["body"])

	status, out = h.json(http.MethodPost, "/api/admin/tickets/2/edit", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Update client", data(out)["draft"])

	status, _ = h.json(http.MethodPut, "/api/admin/tickets/2/edit", map[string]string{"draft": "Reinstall client"})
	require.Equal(t, http.StatusOK, status)

	status, _ = h.json(http.MethodPut, "/api/admin/tickets/2/admin-solution", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"Reinstall client"}, h.backend.updates)

	status, out = h.json(http.MethodPost, "/api/admin/tickets/1/resolve", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, data(out)["is_resolved"])

	status, out = h.json(http.MethodPost, "/api/admin/tickets/404/resolve", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(out))

	status, out = h.json(http.MethodPost, "/api/tickets/text", map[string]string{"subject": "Hello", "body": "A valid description"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(out))
}

func TestAdminSolutionFailureIsUnsynced(t *testing.T) {
	h := newHarness(t)
	h.backend.failUpdates = true

	status, _ := h.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "root", "password": "pw"})
	require.Equal(t, http.StatusOK, status)
	status, _ = h.json(http.MethodPost, "/api/admin/tickets/refresh", nil)
	require.Equal(t, http.StatusOK, status)

	status, out := h.json(http.MethodPut, "/api/admin/tickets/1/admin-solution", map[string]string{"admin_solution": "Clear the tray"})
	assert.Equal(t, http.StatusBadGateway, status)
	dash := data(out)
	assert.Equal(t, []any{"1"}, dash["unsynced"])
	assert.NotEmpty(t, dash["error"])
	assert.Equal(t, "Clear the tray", dash["items"].([]any)[0].(map[string]any)["admin_solution"])

	_, out = h.json(http.MethodPost, "/api/admin/tickets/dismiss-error", nil)
	assert.Empty(t, data(out)["error"])
}

func TestUserSubmissions(t *testing.T) {
	h := newHarness(t)

	status, out := h.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "neo", "password": "pw"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, session.RouteUserDashboard, data(out)["redirect"])

	status, out = h.json(http.MethodPost, "/api/tickets/text", map[string]string{"subject": "Hi", "body": "short"})
	assert.Equal(t, http.StatusBadRequest, status)
	details := out["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "Subject must be at least 5 characters", details["subject"])

	status, out = h.json(http.MethodPost, "/api/tickets/text", map[string]string{"subject": "Laptop slow", "body": "Takes ages to boot up"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "9", data(out)["id"])
	assert.Equal(t, "Software", data(out)["type_label"])

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("subject", "Broken screen"))
	require.NoError(t, writer.WriteField("body", "Cracked after a fall"))
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="shot.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	status, out = h.do(http.MethodPost, "/api/tickets/image", &buf, writer.FormDataContentType())
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "10", data(out)["id"])
	assert.Equal(t, []string{"image/png"}, h.backend.imageParts)

	_, out = h.json(http.MethodGet, "/api/tickets/submission", nil)
	last := data(out)["last"].(map[string]any)
	assert.Equal(t, "10", last["id"])

	status, _ = h.json(http.MethodGet, "/api/admin/tickets", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = h.json(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = h.json(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/health/live", nil, "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "helpdesk_console_http_requests_total")
}
