package models

import (
	"time"

	"github.com/google/uuid"
)

// Role constants, ordered weakest to strongest
const (
	RoleAttendee  = "attendee"
	RoleStaff     = "staff"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// roleRank orders roles into a capability lattice: admin > organizer > staff > attendee.
var roleRank = map[string]int{
	RoleAttendee:  0,
	RoleStaff:     1,
	RoleOrganizer: 2,
	RoleAdmin:     3,
}

// User represents an authenticated account. Auth concerns stay separate
// from the Person identity record.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasCapability reports whether the user's role grants at least the
// required role's capabilities. Unknown roles grant nothing.
func (u *User) HasCapability(required string) bool {
	have, ok := roleRank[u.Role]
	if !ok {
		return false
	}
	want, ok := roleRank[required]
	if !ok {
		return false
	}
	return have >= want
}

// RegisterRequest for creating a new user account with its person identity
type RegisterRequest struct {
	Username     string `json:"username" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	Name         string `json:"name" binding:"required"`
	Organization string `json:"organization"`
}
