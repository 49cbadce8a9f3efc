package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so host leakage cannot skew the
// defaults under test.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "MAX_HEADER_BYTES", "GIN_MODE",
		"SERVICE_NAME", "SERVICE_VERSION", "K_REVISION", "GIT_SHA",
		"LOG_LEVEL", "LOG_PRETTY",
		"DB_PATH", "API_BASE_PATH", "AUTH_SECRET", "INTERNAL_TOKEN",
		"AI_UPSTREAM_URL",
		"RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW",
		"PUSH_ENABLED", "GOOGLE_APPLICATION_CREDENTIALS",
		"CORS_ALLOWED_ORIGINS", "ENABLE_HSTS", "HSTS_MAX_AGE",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME",
		"OTEL_TRACES_SAMPLER_ARG",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q", cfg.GinMode)
	}
	if cfg.ServiceName != "sesh-backend" {
		t.Errorf("ServiceName = %q", cfg.ServiceName)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.DBPath != "app.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.RateLimit.Max != 60 || cfg.RateLimit.Window != time.Minute {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Push.Enabled {
		t.Errorf("push enabled by default")
	}
	if cfg.OTEL.Enabled || cfg.OTEL.SampleRatio != 1.0 {
		t.Errorf("OTEL = %+v", cfg.OTEL)
	}
	if cfg.AIUpstream != "" {
		t.Errorf("AIUpstream = %q", cfg.AIUpstream)
	}
	if len(cfg.CORS.AllowedOrigins) != 0 {
		t.Errorf("CORS origins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("GIN_MODE", "DEBUG")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("AI_UPSTREAM_URL", "http://ai:8000")
	t.Setenv("PUSH_ENABLED", "yes")
	t.Setenv("API_BASE_PATH", "api/v2/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "debug" {
		t.Errorf("GinMode = %q, want lowercased debug", cfg.GinMode)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warning normalized to warn", cfg.LogLevel)
	}
	if cfg.RateLimit.Max != 5 || cfg.RateLimit.Window != 30*time.Second {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORS origins = %v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Push.Enabled {
		t.Errorf("PUSH_ENABLED=yes not honored")
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Errorf("APIBasePath = %q, want normalized /api/v2", cfg.APIBasePath)
	}
	if cfg.AIUpstream != "http://ai:8000" {
		t.Errorf("AIUpstream = %q", cfg.AIUpstream)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing auth secret", map[string]string{}, "AUTH_SECRET"},
		{"bad log level", map[string]string{"AUTH_SECRET": "s", "LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"negative rate limit", map[string]string{"AUTH_SECRET": "s", "RATE_LIMIT_MAX": "-1"}, "RATE_LIMIT_MAX"},
		{"window below 1s", map[string]string{"AUTH_SECRET": "s", "RATE_LIMIT_WINDOW": "500ms"}, "RATE_LIMIT_WINDOW"},
		{"sample ratio out of range", map[string]string{"AUTH_SECRET": "s", "OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
		{"negative read timeout", map[string]string{"AUTH_SECRET": "s", "READ_TIMEOUT": "-1s"}, "timeouts"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatalf("Load succeeded, want error mentioning %s", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %q, want it to mention %s", err, tc.wantErr)
			}
		})
	}
}

func TestGetBool(t *testing.T) {
	cases := []struct {
		val  string
		def  bool
		want bool
	}{
		{"1", false, true},
		{"true", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
		{"", false, false},
	}
	for _, tc := range cases {
		t.Setenv("BOOL_UNDER_TEST", tc.val)
		if got := getbool("BOOL_UNDER_TEST", tc.def); got != tc.want {
			t.Errorf("getbool(%q, %v) = %v, want %v", tc.val, tc.def, got, tc.want)
		}
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"api", "/api"},
		{"/api/v1", "/api/v1"},
		{"/api/v1/", "/api/v1"},
		{" /api/v1 ", "/api/v1"},
	}
	for _, tc := range cases {
		if got := normalizeBasePath(tc.in); got != tc.want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
