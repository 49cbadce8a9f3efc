// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, auth, rate limiting, and auditing.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID, logging, recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/seshhq/sesh-backend/internal/config"
	"github.com/seshhq/sesh-backend/internal/events"
	"github.com/seshhq/sesh-backend/internal/http/handlers"
	"github.com/seshhq/sesh-backend/internal/http/middleware"
	"github.com/seshhq/sesh-backend/internal/push"
	"github.com/seshhq/sesh-backend/internal/services"
)

// RegisterRoutes attaches all middleware and endpoints to the Gin engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics and the /metrics endpoint
//  7. CORS and security headers
//  8. Audit trail
//
// Auth and rate limiting apply only to the versioned API group; the event
// endpoint is guarded by the internal shared secret instead.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, sender push.Sender, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (allow all when no origins configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	// 8) Persisted audit trail
	r.Use(middleware.Audit(db))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.CodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.CodeMethodNotAllowed, "method not allowed")
	})

	// Dependency injection: services ← db/sender/config
	progressSvc := services.NewProgressService(db)
	notifySvc := &services.NotifyService{DB: db, Sender: sender}
	limiter := services.NewRateLimitService(db, cfg.RateLimit.Max, cfg.RateLimit.Window)
	dispatcher := &events.Dispatcher{DB: db, Progress: progressSvc, Notify: notifySvc}

	gw := handlers.NewGateway(cfg.ServiceName, cfg.ServiceVersion, cfg.Revision)
	progressAPI := &handlers.ProgressAPI{Progress: progressSvc}
	eventsAPI := &handlers.EventsAPI{Dispatcher: dispatcher}
	pushAPI := &handlers.PushAPI{DB: db}

	// Public service surface
	r.GET("/", gw.Root)
	r.GET("/health", gw.Health)
	r.GET("/version", gw.Version)

	// Internal event ingestion (shared secret, no user auth)
	internal := r.Group("/internal", middleware.InternalToken(cfg.InternalToken))
	{
		internal.POST("/events", eventsAPI.Ingest)
	}

	// Authenticated, rate-limited API
	verifier := middleware.NewJWTVerifier(cfg.AuthSecret)
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.Auth(verifier))
	api.Use(middleware.RateLimit(limiter))
	{
		api.POST("/focus/end", progressAPI.EndFocusSession)
		api.POST("/achievements/recheck", progressAPI.RecheckAchievements)
		api.GET("/achievements", progressAPI.Achievements)
		api.POST("/push/tokens", pushAPI.RegisterToken)
		api.DELETE("/push/tokens", pushAPI.UnregisterToken)

		if cfg.AIUpstream != "" {
			proxy, err := handlers.NewAIProxy(cfg.AIUpstream, cfg.APIBasePath+"/ai")
			if err != nil {
				log.Error().Err(err).Str("upstream", cfg.AIUpstream).Msg("ai proxy disabled: bad upstream url")
			} else {
				api.Any("/ai/*path", proxy.Handle)
			}
		}
	}
}

// limitBody caps the request body for all endpoints using
// http.MaxBytesReader; oversized bodies error on downstream reads.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
