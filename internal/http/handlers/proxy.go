// Package handlers provides HTTP handler implementations for the public API.
//
// This file implements the AI upstream proxy. The gateway owns auth and rate
// limiting; everything under the AI path segment is then forwarded verbatim
// to the configured upstream with the gateway-internal headers stripped.
package handlers

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// upstreamTimeout bounds one proxied round trip, generous because AI
// completions stream slowly.
const upstreamTimeout = 120 * time.Second

// AIProxy forwards requests to the AI upstream after the middleware chain
// has authenticated and rate limited them.
type AIProxy struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
	// StripPrefix is removed from the request path before forwarding,
	// e.g. "/api/v1/ai" so upstream sees "/chat" not "/api/v1/ai/chat".
	StripPrefix string
}

// NewAIProxy builds a reverse proxy for the given upstream base URL.
func NewAIProxy(upstream, stripPrefix string) (*AIProxy, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, err
	}

	p := &AIProxy{target: target, StripPrefix: stripPrefix}

	rp := httputil.NewSingleHostReverseProxy(target)
	rp.Transport = &http.Transport{ResponseHeaderTimeout: upstreamTimeout}

	baseDirector := rp.Director
	rp.Director = func(req *http.Request) {
		baseDirector(req)
		if p.StripPrefix != "" {
			req.URL.Path = "/" + strings.TrimPrefix(strings.TrimPrefix(req.URL.Path, p.StripPrefix), "/")
		}
		// Forwarded identity for the upstream; gateway credentials stay here.
		req.Header.Del("X-Internal-Token")
		req.Host = target.Host
	}
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("ai upstream unreachable")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"code":"upstream_unavailable","message":"ai upstream unreachable"}`))
	}
	p.proxy = rp

	return p, nil
}

// Handle forwards the request, tagging it with the authenticated user so
// the upstream can attribute usage without re-verifying the token.
func (p *AIProxy) Handle(c *gin.Context) {
	if uid, ok := c.Get("userID"); ok {
		if s, _ := uid.(string); s != "" {
			c.Request.Header.Set("X-User-ID", s)
		}
	}
	p.proxy.ServeHTTP(c.Writer, c.Request)
}
