package models

import (
	"time"

	"github.com/google/uuid"
)

// Ticket status constants
const (
	TicketIssued    = "issued"
	TicketCheckedIn = "checked_in"
	TicketCanceled  = "canceled"
	TicketExpired   = "expired"
)

// Ticket links a Person to an Event. At most one ticket exists per
// (person, event) pair; the status tracks registration and check-in.
type Ticket struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	PersonID    uuid.UUID  `json:"person_id" db:"person_id"`
	EventID     uuid.UUID  `json:"event_id" db:"event_id"`
	Status      string     `json:"status" db:"status"`
	IssuedAt    time.Time  `json:"issued_at" db:"issued_at"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty" db:"checked_in_at"`
}
