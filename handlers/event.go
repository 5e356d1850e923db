package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"turnstil-backend/models"
	"turnstil-backend/store"
)

type EventHandler struct {
	store *store.Store
}

func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

func (h *EventHandler) eventFromParam(c *gin.Context) *models.Event {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid event ID"})
		return nil
	}

	event, err := h.store.ResolveEvent(c, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "code": "INVALID", "message": "Event not found"})
			return nil
		}
		log.Printf("Error resolving event %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return nil
	}
	return event
}

// CreateEvent creates an event. Organizer role required (route guard); the
// creator is automatically added to the staff set.
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if req.EndTime.Before(req.StartTime) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "end_time must not precede start_time"})
		return
	}

	user := CurrentUser(c)
	event, err := h.store.CreateEvent(c, user.ID, &req)
	if err != nil {
		log.Printf("Error creating event %q: %v", req.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to create event"})
		return
	}

	log.Printf("Created event %s (%s) by %s", event.Name, event.ID, user.Username)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": event})
}

// GetEvents lists all events.
func (h *EventHandler) GetEvents(c *gin.Context) {
	events, err := h.store.ListEvents(c)
	if err != nil {
		log.Printf("Error listing events: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": events})
}

// GetEvent returns one event with its derived registration numbers.
func (h *EventHandler) GetEvent(c *gin.Context) {
	event := h.eventFromParam(c)
	if event == nil {
		return
	}

	registered, err := h.store.RegistrationCount(c, event.ID)
	if err != nil {
		log.Printf("Error counting registrations for event %s: %v", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"event":              event,
			"registration_count": registered,
			"is_full":            event.IsFull(registered),
			"is_active":          event.IsActive(time.Now()),
		},
	})
}

// DeleteEvent removes an event; tickets and scan logs cascade. Only the
// creator or an admin may delete.
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	event := h.eventFromParam(c)
	if event == nil {
		return
	}

	user := CurrentUser(c)
	if event.CreatedBy != user.ID && !user.HasCapability(models.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"status": "error", "code": "UNAUTHORIZED", "message": "Not authorized to delete this event"})
		return
	}

	if err := h.store.DeleteEvent(c, event.ID); err != nil {
		log.Printf("Error deleting event %s: %v", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to delete event"})
		return
	}

	log.Printf("Deleted event %s (%s)", event.Name, event.ID)
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Event deleted"})
}

// RegisterForEvent registers the caller's person for the event. A canceled
// ticket is reactivated; an active one yields ALREADY_REGISTERED.
func (h *EventHandler) RegisterForEvent(c *gin.Context) {
	event := h.eventFromParam(c)
	if event == nil {
		return
	}

	user := CurrentUser(c)
	person, err := h.store.PersonByUser(c, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "No person identity for this account"})
			return
		}
		log.Printf("Error loading person for user %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}

	ticket, reactivated, err := h.store.RegisterTicket(c, person.ID, event.ID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEventFull):
			c.JSON(http.StatusConflict, gin.H{"status": "error", "code": "EVENT_FULL", "message": "This event has reached capacity."})
		case errors.Is(err, store.ErrAlreadyRegistered):
			c.JSON(http.StatusConflict, gin.H{"status": "error", "code": "ALREADY_REGISTERED", "message": "Already registered for this event."})
		default:
			log.Printf("Error registering person %s for event %s: %v", person.ID, event.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to register"})
		}
		return
	}

	if reactivated {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": ticket, "message": "Registration reactivated."})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": ticket})
}

// AssignStaff adds a user to the event's staff set. Organizer role required
// (route guard).
func (h *EventHandler) AssignStaff(c *gin.Context) {
	event := h.eventFromParam(c)
	if event == nil {
		return
	}

	var req models.AssignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	staffUser, err := h.store.UserByID(c, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "User not found"})
			return
		}
		log.Printf("Error resolving user %s: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}

	if err := h.store.AddStaff(c, event.ID, staffUser.ID); err != nil {
		log.Printf("Error assigning staff %s to event %s: %v", staffUser.ID, event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to assign staff"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": staffUser.Username + " assigned as staff."})
}

// GetStaff lists the event's staff set.
func (h *EventHandler) GetStaff(c *gin.Context) {
	event := h.eventFromParam(c)
	if event == nil {
		return
	}

	staff, err := h.store.EventStaff(c, event.ID)
	if err != nil {
		log.Printf("Error listing staff for event %s: %v", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": staff})
}

// SetWalkins toggles walk-in admission. Creator, event staff, or admin.
func (h *EventHandler) SetWalkins(c *gin.Context) {
	event := h.eventFromParam(c)
	if event == nil {
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

	var req models.SetWalkinsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := h.store.SetWalkins(c, event.ID, req.AllowWalkins); err != nil {
		log.Printf("Error setting walkins for event %s: %v", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to update event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"allow_walkins": req.AllowWalkins}})
}

// Dashboard returns live stats and recent scans for event staff.
func (h *EventHandler) Dashboard(c *gin.Context) {
	event := h.eventFromParam(c)
	if event == nil {
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

	registered, err := h.store.RegistrationCount(c, event.ID)
	if err != nil {
		log.Printf("Error counting registrations for event %s: %v", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}
	checkedIn, err := h.store.CheckinCount(c, event.ID)
	if err != nil {
		log.Printf("Error counting checkins for event %s: %v", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}
	recent, err := h.store.ListScans(c, store.ScanFilter{EventID: &event.ID, Limit: 20})
	if err != nil {
		log.Printf("Error listing recent scans for event %s: %v", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"event": event,
			"stats": models.EventStats{
				Registered: registered,
				CheckedIn:  checkedIn,
				Capacity:   event.Capacity,
				IsFull:     event.IsFull(registered),
			},
			"recent_scans": recent,
		},
	})
}
