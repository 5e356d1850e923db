package models

import (
	"time"

	"github.com/google/uuid"
)

// Scan result constants
const (
	ScanSuccess       = "success"
	ScanDuplicate     = "duplicate"
	ScanNotRegistered = "not_registered"
	ScanWrongEvent    = "wrong_event"
	ScanInvalid       = "invalid"
	ScanEventInactive = "event_inactive"
)

// Scan reason constants, stored alongside the result for failure detail
const (
	ReasonEventNotFound      = "event_not_found"
	ReasonWalkinCapacityFull = "walkin_capacity_full"
	ReasonTicketCanceled     = "ticket_canceled"
)

// ScanLog is one append-only audit row per check-in attempt, successful or
// not. Person and event references may be null so invalid scans stay
// traceable; the raw scanned value is kept for debugging those.
type ScanLog struct {
	ID           int64      `json:"id" db:"id"`
	EventID      *uuid.UUID `json:"event_id" db:"event_id"`
	PersonID     *uuid.UUID `json:"person_id" db:"person_id"`
	ActorID      uuid.UUID  `json:"actor_id" db:"actor_id"`
	Result       string     `json:"result" db:"result"`
	ScannedValue string     `json:"scanned_value" db:"scanned_value"`
	Reason       string     `json:"reason,omitempty" db:"reason"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty" db:"checked_in_at"`
	Timestamp    time.Time  `json:"timestamp" db:"timestamp"`
}
