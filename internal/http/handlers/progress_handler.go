// Package handlers provides HTTP handler implementations for the public API.
//
// This file serves the progress endpoints: closing a focus session, forcing
// an achievement recheck, and listing a user's unlocked achievements. All
// three operate on the authenticated user from the request context.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seshhq/sesh-backend/internal/http/middleware"
	"github.com/seshhq/sesh-backend/internal/services"
)

// ProgressAPI exposes the progress surface over a ProgressService.
type ProgressAPI struct {
	Progress *services.ProgressService
}

// endFocusRequest is the body of POST /focus/end.
type endFocusRequest struct {
	// Hours is the focus-session length. Fractions are meaningful; a
	// 90-minute session reports 1.5.
	Hours float64 `json:"hours"`
}

// EndFocusSession records a finished focus session for the caller, credits
// XP, and evaluates focus achievements.
func (a *ProgressAPI) EndFocusSession(c *gin.Context) {
	uid := middleware.UserIDFrom(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, CodeMissingUser, "no authenticated user")
		return
	}

	var req endFocusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
		return
	}

	err := a.Progress.AddFocusHours(c.Request.Context(), uid, req.Hours)
	switch {
	case errors.Is(err, services.ErrInvalidHours):
		fail(c, http.StatusBadRequest, CodeBadRequest, "hours must be a positive finite number")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, CodeInternalError, "could not record focus session")
		return
	}

	ok(c, http.StatusOK, gin.H{"status": "recorded", "hours": req.Hours})
}

// RecheckAchievements re-evaluates every achievement against the caller's
// stored counters and grants anything missing. Safe to call repeatedly.
func (a *ProgressAPI) RecheckAchievements(c *gin.Context) {
	uid := middleware.UserIDFrom(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, CodeMissingUser, "no authenticated user")
		return
	}

	err := a.Progress.Recheck(c.Request.Context(), uid)
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, CodeNotFound, "user not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, CodeInternalError, "could not recheck achievements")
		return
	}

	ok(c, http.StatusOK, gin.H{"status": "rechecked"})
}

// Achievements lists the caller's unlocked achievement tiers, newest first.
func (a *ProgressAPI) Achievements(c *gin.Context) {
	uid := middleware.UserIDFrom(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, CodeMissingUser, "no authenticated user")
		return
	}

	items, err := a.Progress.ListAchievements(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternalError, "could not list achievements")
		return
	}
	ok(c, http.StatusOK, gin.H{"achievements": items})
}
