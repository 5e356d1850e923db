package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"turnstil-backend/models"
	"turnstil-backend/store"
)

const (
	ctxUserKey     = "current_user"
	ctxAPITokenKey = "api_token"
)

// AuthMiddleware resolves the acting identity from a bearer API token.
// Session/JWT mechanics live outside this service; the token is the whole
// collaborator contract.
func AuthMiddleware(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Missing bearer token"})
			return
		}

		token, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Malformed bearer token"})
			return
		}

		user, err := s.UserByToken(c, token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Invalid bearer token"})
				return
			}
			log.Printf("Error resolving bearer token: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database error"})
			return
		}

		c.Set(ctxUserKey, user)
		c.Set(ctxAPITokenKey, token)
		c.Next()
	}
}

// RequireRole guards a route group with the capability lattice:
// admin > organizer > staff > attendee.
func RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.HasCapability(required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"status":  "error",
				"code":    "UNAUTHORIZED",
				"message": required + " role required",
			})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user placed by AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// SessionToken returns the API token the request authenticated with.
func SessionToken(c *gin.Context) uuid.UUID {
	v, ok := c.Get(ctxAPITokenKey)
	if !ok {
		return uuid.Nil
	}
	token, _ := v.(uuid.UUID)
	return token
}
