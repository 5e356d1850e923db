package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"turnstil-backend/store"
)

// ScannerHandler manages the per-session "active event" selection used by
// scanner clients. The selection is keyed by the caller's API token and
// staff authorization is re-validated on every read, since staff
// assignments can change mid-session.
type ScannerHandler struct {
	store *store.Store
}

func NewScannerHandler(s *store.Store) *ScannerHandler {
	return &ScannerHandler{store: s}
}

type setActiveEventRequest struct {
	EventID string `json:"event_id" binding:"required,uuid"`
}

// SetActiveEvent selects the event this scanner session operates on. The
// caller must be staff for the event at selection time.
func (h *ScannerHandler) SetActiveEvent(c *gin.Context) {
	var req setActiveEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid event ID"})
		return
	}

	event, err := h.store.ResolveEvent(c, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "code": "INVALID", "message": "Event not found"})
			return
		}
		log.Printf("Error resolving event %s: %v", eventID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}

	user := CurrentUser(c)
	authorized, err := h.store.IsStaffAuthorized(c, event, user)
	if err != nil {
		log.Printf("Error checking staff authorization: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}
	if !authorized {
		c.JSON(http.StatusForbidden, gin.H{"status": "error", "code": "UNAUTHORIZED", "message": "You are not staff for this event."})
		return
	}

	if err := h.store.SetActiveEvent(c, SessionToken(c), event.ID); err != nil {
		log.Printf("Error saving active event: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to select event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"event": event}})
}

// GetActiveEvent returns the session's selected event. Authorization is
// checked again here: a selection made while staffed goes stale the moment
// the assignment is revoked, and the stale selection is cleared.
func (h *ScannerHandler) GetActiveEvent(c *gin.Context) {
	token := SessionToken(c)

	eventID, err := h.store.ActiveEvent(c, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "No event selected"})
			return
		}
		log.Printf("Error reading active event: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}

	event, err := h.store.ResolveEvent(c, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Event deleted since selection; drop the stale session row.
			_ = h.store.ClearActiveEvent(c, token)
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Selected event no longer exists"})
			return
		}
		log.Printf("Error resolving event %s: %v", eventID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}

	user := CurrentUser(c)
	authorized, err := h.store.IsStaffAuthorized(c, event, user)
	if err != nil {
		log.Printf("Error checking staff authorization: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}
	if !authorized {
		_ = h.store.ClearActiveEvent(c, token)
		c.JSON(http.StatusForbidden, gin.H{"status": "error", "code": "UNAUTHORIZED", "message": "You are no longer staff for the selected event."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"event": event}})
}
