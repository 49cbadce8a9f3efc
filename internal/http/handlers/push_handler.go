// Package handlers provides HTTP handler implementations for the public API.
//
// This file serves push-token registration. Devices register their delivery
// token after login and unregister it on logout; invalid tokens are also
// pruned server-side after rejected deliveries.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/seshhq/sesh-backend/internal/http/middleware"
	"github.com/seshhq/sesh-backend/internal/repo"
)

// PushAPI exposes push-token management for the authenticated user.
type PushAPI struct {
	DB *gorm.DB
}

// pushTokenRequest is the body of POST/DELETE /push/tokens.
type pushTokenRequest struct {
	Token string `json:"token"`
}

// RegisterToken stores a delivery token for the caller. Re-registering the
// same token is a no-op.
func (a *PushAPI) RegisterToken(c *gin.Context) {
	uid := middleware.UserIDFrom(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, CodeMissingUser, "no authenticated user")
		return
	}

	var req pushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		fail(c, http.StatusBadRequest, CodeBadRequest, "token is required")
		return
	}

	if err := repo.RegisterPushToken(c.Request.Context(), a.DB, uid, strings.TrimSpace(req.Token)); err != nil {
		fail(c, http.StatusInternalServerError, CodeInternalError, "could not register token")
		return
	}
	ok(c, http.StatusOK, gin.H{"status": "registered"})
}

// UnregisterToken removes a delivery token for the caller, typically on
// logout. Removing an unknown token still succeeds.
func (a *PushAPI) UnregisterToken(c *gin.Context) {
	uid := middleware.UserIDFrom(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, CodeMissingUser, "no authenticated user")
		return
	}

	var req pushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		fail(c, http.StatusBadRequest, CodeBadRequest, "token is required")
		return
	}

	if err := repo.DeletePushTokens(c.Request.Context(), a.DB, uid, []string{strings.TrimSpace(req.Token)}); err != nil {
		fail(c, http.StatusInternalServerError, CodeInternalError, "could not unregister token")
		return
	}
	ok(c, http.StatusOK, gin.H{"status": "unregistered"})
}
