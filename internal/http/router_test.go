package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/seshhq/sesh-backend/internal/config"
	"github.com/seshhq/sesh-backend/internal/domain"
	"github.com/seshhq/sesh-backend/internal/repo"
)

const testAuthSecret = "router-test-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	cfg := config.Config{
		ServiceName:    "sesh-backend",
		ServiceVersion: "test",
		APIBasePath:    "/api/v1",
		AuthSecret:     testAuthSecret,
		InternalToken:  "internal-secret",
	}
	cfg.RateLimit.Max = 100
	cfg.RateLimit.Window = time.Minute
	cfg.OTEL.ServiceName = "sesh-backend"
	return cfg
}

func newRouter(t *testing.T, db *gorm.DB, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, db, nil, cfg)
	return r
}

func userToken(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": userID, "exp": time.Now().Add(time.Hour).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAuthSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

// closeNotifyRecorder implements http.CloseNotifier, which go1.21's
// httputil.ReverseProxy still requires of the ResponseWriter.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
}

func (c *closeNotifyRecorder) CloseNotify() <-chan bool { return make(chan bool) }

func doJSON(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(&closeNotifyRecorder{w}, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestPublicEndpoints(t *testing.T) {
	r := newRouter(t, newTestDB(t), testConfig())

	w := doJSON(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("/health status = %d", w.Code)
	}
	health := decodeBody(t, w)
	if health["status"] != "ok" {
		t.Fatalf("/health status field = %v", health["status"])
	}

	w = doJSON(r, http.MethodGet, "/version", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("/version status = %d", w.Code)
	}
	version := decodeBody(t, w)
	if version["service"] != "sesh-backend" || version["version"] != "test" {
		t.Fatalf("/version body = %v", version)
	}

	if w = doJSON(r, http.MethodGet, "/", "", nil); w.Code != http.StatusOK {
		t.Fatalf("/ status = %d", w.Code)
	}
	if w = doJSON(r, http.MethodGet, "/metrics", "", nil); w.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", w.Code)
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	r := newRouter(t, newTestDB(t), testConfig())

	w := doJSON(r, http.MethodGet, "/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	body := decodeBody(t, w)
	if body["code"] != "not_found" {
		t.Fatalf("code = %v", body["code"])
	}
	if body["request_id"] == "" {
		t.Fatalf("missing request_id in error envelope")
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	r := newRouter(t, newTestDB(t), testConfig())

	w := doJSON(r, http.MethodPost, "/api/v1/focus/end", `{"hours":1}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if body := decodeBody(t, w); body["code"] != "missing_auth" {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestFocusEndFlow(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&domain.User{ID: "u1", DisplayName: "Thandi"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	r := newRouter(t, db, testConfig())
	auth := map[string]string{"Authorization": "Bearer " + userToken(t, "u1")}

	w := doJSON(r, http.MethodPost, "/api/v1/focus/end", `{"hours":2}`, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["status"] != "recorded" {
		t.Fatalf("body = %v", body)
	}

	var u domain.User
	if err := db.First(&u, "id = ?", "u1").Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if u.SeshFocusHours != 2 {
		t.Fatalf("focus hours = %v, want 2", u.SeshFocusHours)
	}
	// 2h at 10 XP/hour plus the first focus tier reward.
	if u.XP != 45 {
		t.Fatalf("xp = %d, want 45", u.XP)
	}
}

func TestFocusEndRejectsBadHours(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&domain.User{ID: "u1"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	r := newRouter(t, db, testConfig())
	auth := map[string]string{"Authorization": "Bearer " + userToken(t, "u1")}

	for _, body := range []string{`{"hours":0}`, `{"hours":-1}`, `not json`} {
		w := doJSON(r, http.MethodPost, "/api/v1/focus/end", body, auth)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, w.Code)
		}
		if resp := decodeBody(t, w); resp["code"] != "bad_request" {
			t.Fatalf("body %q: code = %v", body, resp["code"])
		}
	}
}

func TestRecheckAchievements(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&domain.User{ID: "u1", PostCount: 12}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	r := newRouter(t, db, testConfig())
	auth := map[string]string{"Authorization": "Bearer " + userToken(t, "u1")}

	w := doJSON(r, http.MethodPost, "/api/v1/achievements/recheck", "", auth)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodGet, "/api/v1/achievements", "", auth)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	body := decodeBody(t, w)
	items, ok := body["achievements"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("achievements = %v, want 2 entries", body["achievements"])
	}
}

func TestRecheckMissingUser(t *testing.T) {
	r := newRouter(t, newTestDB(t), testConfig())
	auth := map[string]string{"Authorization": "Bearer " + userToken(t, "ghost")}

	w := doJSON(r, http.MethodPost, "/api/v1/achievements/recheck", "", auth)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if body := decodeBody(t, w); body["code"] != "not_found" {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestPushTokenLifecycle(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&domain.User{ID: "u1"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	r := newRouter(t, db, testConfig())
	auth := map[string]string{"Authorization": "Bearer " + userToken(t, "u1")}

	w := doJSON(r, http.MethodPost, "/api/v1/push/tokens", `{"token":"tok-1"}`, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d body = %s", w.Code, w.Body.String())
	}
	// Re-registering is a no-op, not a conflict.
	if w = doJSON(r, http.MethodPost, "/api/v1/push/tokens", `{"token":"tok-1"}`, auth); w.Code != http.StatusOK {
		t.Fatalf("re-register status = %d", w.Code)
	}

	tokens, err := repo.ListPushTokens(context.Background(), db, "u1")
	if err != nil || len(tokens) != 1 || tokens[0] != "tok-1" {
		t.Fatalf("tokens = %v (err %v), want [tok-1]", tokens, err)
	}

	// Blank token rejected.
	w = doJSON(r, http.MethodPost, "/api/v1/push/tokens", `{"token":"  "}`, auth)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank token status = %d, want 400", w.Code)
	}

	w = doJSON(r, http.MethodDelete, "/api/v1/push/tokens", `{"token":"tok-1"}`, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("unregister status = %d body = %s", w.Code, w.Body.String())
	}
	tokens, err = repo.ListPushTokens(context.Background(), db, "u1")
	if err != nil || len(tokens) != 0 {
		t.Fatalf("tokens after unregister = %v (err %v), want none", tokens, err)
	}
}

func TestRateLimitAppliesToAPI(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&domain.User{ID: "u1"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	cfg := testConfig()
	cfg.RateLimit.Max = 2
	r := newRouter(t, db, cfg)
	auth := map[string]string{"Authorization": "Bearer " + userToken(t, "u1")}

	for i := 0; i < 2; i++ {
		w := doJSON(r, http.MethodGet, "/api/v1/achievements", "", auth)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}

	w := doJSON(r, http.MethodGet, "/api/v1/achievements", "", auth)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("retry-after") == "" {
		t.Fatalf("missing retry-after header")
	}
	if got := w.Header().Get("x-rate-limit-remaining"); got != "0" {
		t.Fatalf("remaining = %q", got)
	}
	if body := decodeBody(t, w); body["code"] != "rate_limited" {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestInternalEventsEndpoint(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&domain.User{ID: "author"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	r := newRouter(t, db, testConfig())

	event := `{"collection":"posts","type":"created","id":"p1","after":{"authorId":"author"}}`

	// Wrong secret is rejected before dispatch.
	w := doJSON(r, http.MethodPost, "/internal/events", event,
		map[string]string{"X-Internal-Token": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: status = %d", w.Code)
	}

	w = doJSON(r, http.MethodPost, "/internal/events", event,
		map[string]string{"X-Internal-Token": "internal-secret"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	var u domain.User
	if err := db.First(&u, "id = ?", "author").Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if u.PostCount != 1 {
		t.Fatalf("post count = %d, want 1", u.PostCount)
	}
}

func TestInternalEventsRejectsMalformed(t *testing.T) {
	r := newRouter(t, newTestDB(t), testConfig())
	headers := map[string]string{"X-Internal-Token": "internal-secret"}

	for _, body := range []string{`not json`, `{"collection":"posts"}`, `{"type":"created"}`} {
		w := doJSON(r, http.MethodPost, "/internal/events", body, headers)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestAIProxyForwardsUserAndStripsPrefix(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"path":%q,"user":%q,"internal":%q}`,
			req.URL.Path, req.Header.Get("X-User-ID"), req.Header.Get("X-Internal-Token"))
	}))
	defer upstream.Close()

	db := newTestDB(t)
	cfg := testConfig()
	cfg.AIUpstream = upstream.URL
	r := newRouter(t, db, cfg)
	auth := map[string]string{
		"Authorization":    "Bearer " + userToken(t, "u1"),
		"X-Internal-Token": "leak-me",
	}

	w := doJSON(r, http.MethodPost, "/api/v1/ai/chat", `{"prompt":"hi"}`, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["path"] != "/chat" {
		t.Fatalf("upstream path = %v, want /chat", body["path"])
	}
	if body["user"] != "u1" {
		t.Fatalf("upstream X-User-ID = %v, want u1", body["user"])
	}
	if body["internal"] != "" {
		t.Fatalf("internal token leaked to upstream: %v", body["internal"])
	}
}

func TestAIProxyUpstreamDown(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	cfg.AIUpstream = "http://127.0.0.1:1" // nothing listens here
	r := newRouter(t, db, cfg)
	auth := map[string]string{"Authorization": "Bearer " + userToken(t, "u1")}

	w := doJSON(r, http.MethodPost, "/api/v1/ai/chat", `{"prompt":"hi"}`, auth)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if body := decodeBody(t, w); body["code"] != "upstream_unavailable" {
		t.Fatalf("code = %v", body["code"])
	}
}
