package models

import (
	"time"

	"github.com/google/uuid"
)

// Event represents an event people can register for and check into.
// Capacity 0 means unlimited.
type Event struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	Location     string    `json:"location" db:"location"`
	StartTime    time.Time `json:"start_time" db:"start_time"`
	EndTime      time.Time `json:"end_time" db:"end_time"`
	Capacity     uint      `json:"capacity" db:"capacity"`
	AllowWalkins bool      `json:"allow_walkins" db:"allow_walkins"`
	CreatedBy    uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// IsActive reports whether now falls inside the event's time window.
func (e *Event) IsActive(now time.Time) bool {
	return !now.Before(e.StartTime) && !now.After(e.EndTime)
}

// IsUpcoming reports whether the event has not started yet.
func (e *Event) IsUpcoming(now time.Time) bool {
	return now.Before(e.StartTime)
}

// IsFull reports whether the given registration count (non-canceled
// tickets) has reached capacity. Always false for unlimited events.
func (e *Event) IsFull(registrationCount int) bool {
	if e.Capacity == 0 {
		return false
	}
	return registrationCount >= int(e.Capacity)
}

// CreateEventRequest for creating a new event
type CreateEventRequest struct {
	Name         string    `json:"name" binding:"required"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	EndTime      time.Time `json:"end_time" binding:"required"`
	Capacity     uint      `json:"capacity"`
	AllowWalkins bool      `json:"allow_walkins"`
}

// AssignStaffRequest adds a user to an event's staff set
type AssignStaffRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// SetWalkinsRequest toggles walk-in admission for an event
type SetWalkinsRequest struct {
	AllowWalkins bool `json:"allow_walkins"`
}

// EventStats summarizes live registration numbers for a dashboard view
type EventStats struct {
	Registered int  `json:"registered"`
	CheckedIn  int  `json:"checked_in"`
	Capacity   uint `json:"capacity"`
	IsFull     bool `json:"is_full"`
}
