// Package handlers provides HTTP handler implementations for the public API.
//
// This file receives change events from the persistence tier on the internal
// endpoint and hands them to the dispatcher. Delivery is at-least-once, so
// the handler stays idempotent end to end: a replayed event produces the
// same 202 and the dispatcher's guards absorb the duplicate work.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seshhq/sesh-backend/internal/events"
	"github.com/seshhq/sesh-backend/internal/http/middleware"
)

// EventsAPI exposes the internal event-ingestion endpoint.
type EventsAPI struct {
	Dispatcher *events.Dispatcher
}

// Ingest accepts one change event and routes it. Malformed payloads get a
// 400; dispatch failures get a 500 so the source redelivers.
func (a *EventsAPI) Ingest(c *gin.Context) {
	var ev events.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		fail(c, http.StatusBadRequest, CodeBadRequest, "invalid event payload")
		return
	}
	if ev.Collection == "" || ev.Type == "" {
		fail(c, http.StatusBadRequest, CodeBadRequest, "event requires collection and type")
		return
	}

	if err := a.Dispatcher.Dispatch(c.Request.Context(), ev); err != nil {
		middleware.LoggerFrom(c).Error().Err(err).
			Str("collection", ev.Collection).
			Str("event_type", ev.Type).
			Str("doc_id", ev.ID).
			Msg("event dispatch failed")
		fail(c, http.StatusInternalServerError, CodeInternalError, "event dispatch failed")
		return
	}

	ok(c, http.StatusAccepted, gin.H{"status": "accepted"})
}
