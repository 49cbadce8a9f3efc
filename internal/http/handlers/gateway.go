package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Gateway serves the unauthenticated service-surface endpoints.
type Gateway struct {
	ServiceName    string
	ServiceVersion string
	Revision       string

	started time.Time
}

// NewGateway constructs the gateway handler set, stamping the start time
// used for uptime reporting.
func NewGateway(name, version, revision string) *Gateway {
	return &Gateway{
		ServiceName:    name,
		ServiceVersion: version,
		Revision:       revision,
		started:        time.Now(),
	}
}

// Health reports liveness. It never touches downstream dependencies, so a
// degraded database or upstream does not flap the health check.
func (g *Gateway) Health(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(g.started).Seconds()),
	})
}

// Version reports build identity for deploy verification.
func (g *Gateway) Version(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"service":  g.ServiceName,
		"version":  g.ServiceVersion,
		"revision": g.Revision,
	})
}

// Root answers the bare path with a service banner.
func (g *Gateway) Root(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"service": g.ServiceName,
		"message": g.ServiceName + " is running",
	})
}
