package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"turnstil-backend/checkin"
	"turnstil-backend/store"
)

type CheckinHandler struct {
	store  *store.Store
	engine *checkin.Engine
}

func NewCheckinHandler(s *store.Store) *CheckinHandler {
	return &CheckinHandler{store: s, engine: checkin.NewEngine(s)}
}

// CheckInRequest is the scan payload. EventID may be omitted when the
// scanner session has an active event selected.
type CheckInRequest struct {
	PersonToken string `json:"person_token" binding:"required,uuid"`
	EventID     string `json:"event_id" binding:"omitempty,uuid"`
}

// CheckIn processes one QR scan. Malformed input is rejected here, before
// any engine logic runs; everything past this point is audited by the
// engine itself.
func (h *CheckinHandler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	personToken, err := uuid.Parse(req.PersonToken)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid person token"})
		return
	}

	var eventID uuid.UUID
	if req.EventID != "" {
		eventID, err = uuid.Parse(req.EventID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid event ID"})
			return
		}
	} else {
		eventID, err = h.store.ActiveEvent(c, SessionToken(c))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "No event selected for this scanner session"})
				return
			}
			log.Printf("Error reading active event: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
			return
		}
	}

	actor := CurrentUser(c)
	log.Printf("Check-in scan: person=%s event=%s actor=%s", personToken, eventID, actor.Username)

	result, err := h.engine.Process(c, personToken, eventID, actor)
	if err != nil {
		log.Printf("Check-in failed: person=%s event=%s: %v", personToken, eventID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Check-in could not be processed"})
		return
	}

	if result.Outcome != checkin.Success {
		c.JSON(result.Outcome.HTTPStatus(), gin.H{
			"status":  "error",
			"code":    result.Outcome.Code(),
			"message": result.Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"person_name":   result.PersonName,
			"checked_in_at": result.CheckedInAt.Format(time.RFC3339),
			"event_name":    result.EventName,
		},
	})
}

// GetScans lists audit rows, optionally filtered by event and result.
// Admin only (route guard).
func (h *CheckinHandler) GetScans(c *gin.Context) {
	filter := store.ScanFilter{Result: c.Query("result")}

	if raw := c.Query("event"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid event ID"})
			return
		}
		filter.EventID = &id
	}

	logs, err := h.store.ListScans(c, filter)
	if err != nil {
		log.Printf("Error listing scan logs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": logs})
}
