// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file records an audit trail row for each API request. Writes happen
// after the response on a detached goroutine so auditing never adds latency
// or failure modes to the request path.
package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/seshhq/sesh-backend/internal/domain"
	"github.com/seshhq/sesh-backend/internal/repo"
)

// auditWriteTimeout bounds the detached audit insert.
const auditWriteTimeout = 5 * time.Second

// Audit returns a middleware that persists one AuditLog row per request,
// fire-and-forget. Failures are logged and otherwise ignored.
func Audit(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		rec := &domain.AuditLog{
			RequestID:  RequestIDFrom(c),
			Method:     c.Request.Method,
			Path:       c.FullPath(),
			Status:     c.Writer.Status(),
			DurationMS: time.Since(start).Milliseconds(),
			UserID:     UserIDFrom(c),
			IP:         c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		}
		if rec.Path == "" {
			rec.Path = c.Request.URL.Path
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
			defer cancel()
			if err := repo.CreateAuditLog(ctx, db, rec); err != nil {
				log.Warn().Err(err).Str("request_id", rec.RequestID).Msg("audit write failed")
			}
		}()
	}
}
