package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
	if subject != "" {
		claims["sub"] = subject
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func authEngine(verifier TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(verifier))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFrom(c))
	})
	return r
}

func TestJWTVerifier_Verify(t *testing.T) {
	v := NewJWTVerifier(testSecret)

	uid, err := v.Verify(signToken(t, testSecret, "u1"))
	if err != nil || uid != "u1" {
		t.Fatalf("Verify = (%q, %v), want (u1, nil)", uid, err)
	}

	if _, err := v.Verify(signToken(t, "wrong-secret", "u1")); err == nil {
		t.Fatalf("wrong signature accepted")
	}
	if _, err := v.Verify(signToken(t, testSecret, "")); err == nil {
		t.Fatalf("subject-less token accepted")
	}
	if _, err := v.Verify("not.a.jwt"); err == nil {
		t.Fatalf("garbage token accepted")
	}
}

func TestJWTVerifier_RejectsExpired(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	claims := jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(token); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestAuth_HappyPath(t *testing.T) {
	r := authEngine(NewJWTVerifier(testSecret))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "u1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "u1" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestAuth_MissingAndInvalid(t *testing.T) {
	r := authEngine(NewJWTVerifier(testSecret))

	cases := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"no header", "", "missing_auth"},
		{"wrong scheme", "Basic abc", "missing_auth"},
		{"bad token", "Bearer nope", "invalid_token"},
		{"wrong secret", "Bearer " + signToken(t, "other", "u1"), "invalid_token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["code"] != tc.wantCode {
				t.Fatalf("code = %v, want %s", body["code"], tc.wantCode)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"BEARER abc", "abc"},
		{"Token abc", ""},
		{"Bearer", ""},
		{"Bearer  padded ", "padded"},
	}
	for _, tc := range cases {
		if got := bearerToken(tc.in); got != tc.want {
			t.Fatalf("bearerToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInternalToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(InternalToken("hunter2"))
	r.POST("/internal", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	// Valid secret.
	req := httptest.NewRequest(http.MethodPost, "/internal", nil)
	req.Header.Set("X-Internal-Token", "hunter2")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("valid secret: status = %d", w.Code)
	}

	// Wrong and missing secrets.
	for _, tok := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodPost, "/internal", nil)
		if tok != "" {
			req.Header.Set("X-Internal-Token", tok)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: status = %d, want 401", tok, w.Code)
		}
	}
}

func TestInternalToken_EmptySecretClosesEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(InternalToken(""))
	r.POST("/internal", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/internal", nil)
	req.Header.Set("X-Internal-Token", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("empty secret must close the endpoint, status = %d", w.Code)
	}
}
