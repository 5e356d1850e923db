package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"turnstil-backend/models"
	"turnstil-backend/store"
)

type UserHandler struct {
	store *store.Store
}

func NewUserHandler(s *store.Store) *UserHandler {
	return &UserHandler{store: s}
}

// Register creates a user account together with its person identity and
// returns the API token the client authenticates with from then on.
func (h *UserHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	user, token, err := h.store.CreateUser(c, req.Username, req.Email, req.Password, models.RoleAttendee)
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "Username already taken"})
			return
		}
		log.Printf("Error creating user %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to create account"})
		return
	}

	person, err := h.store.CreatePerson(c, user.ID, req.Name, req.Email, req.Organization)
	if err != nil {
		log.Printf("Error creating person for user %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to create identity"})
		return
	}

	log.Printf("Registered user %s with person token %s", user.Username, person.ID)

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data": gin.H{
			"user":         user,
			"person_token": person.ID,
			"api_token":    token,
		},
	})
}

// Me returns the authenticated user and its person identity.
func (h *UserHandler) Me(c *gin.Context) {
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

	tickets, err := h.store.TicketsForPerson(c, person.ID)
	if err != nil {
		log.Printf("Error loading tickets for person %s: %v", person.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"user":    user,
			"person":  person,
			"tickets": tickets,
		},
	})
}

// GetPerson returns a person record. The owner sees the full record;
// everyone else gets the visibility-filtered contact card.
func (h *UserHandler) GetPerson(c *gin.Context) {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid person token"})
		return
	}

	person, err := h.store.ResolvePerson(c, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "code": "INVALID", "message": "Person not found"})
			return
		}
		log.Printf("Error resolving person %s: %v", token, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}

	user := CurrentUser(c)
	if person.UserID == user.ID || user.HasCapability(models.RoleAdmin) {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": person})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": person.VisibleContact()})
}

// GetContact returns the visibility-filtered contact card. Owners see all
// stored fields; visibility gates read exposure only.
func (h *UserHandler) GetContact(c *gin.Context) {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid person token"})
		return
	}

	person, err := h.store.ResolvePerson(c, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "code": "INVALID", "message": "Person not found"})
			return
		}
		log.Printf("Error resolving person %s: %v", token, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}

	user := CurrentUser(c)
	if person.UserID == user.ID {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": person})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": person.VisibleContact()})
}

// UpdateContact patches contact fields and visibility. Owner only.
func (h *UserHandler) UpdateContact(c *gin.Context) {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid person token"})
		return
	}

	person, err := h.store.ResolvePerson(c, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "code": "INVALID", "message": "Person not found"})
			return
		}
		log.Printf("Error resolving person %s: %v", token, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
		return
	}

	user := CurrentUser(c)
	if person.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"status": "error", "code": "UNAUTHORIZED", "message": "Not authorized"})
		return
	}

	var req models.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	updated, err := h.store.UpdateContact(c, person.ID, &req)
	if err != nil {
		log.Printf("Error updating contact for person %s: %v", person.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to update contact"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": updated})
}
