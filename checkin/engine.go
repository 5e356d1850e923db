// Package checkin implements the check-in transaction: it validates a
// scanned token against a person, an event and that person's ticket,
// applies walk-in and capacity policy, transitions ticket state exactly
// once, and writes one scan log row per attempt regardless of outcome.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"turnstil-backend/models"
	"turnstil-backend/store"
)

// Outcome identifies the result of a check-in attempt.
type Outcome int

const (
	Success Outcome = iota
	AlreadyCheckedIn
	NotRegistered
	TicketCanceled
	EventFull
	EventNotFound
	PersonNotFound
	Unauthorized
)

// Code returns the wire-level error code for the outcome. Success has none.
func (o Outcome) Code() string {
	switch o {
	case AlreadyCheckedIn:
		return "DUPLICATE_CHECKIN"
	case NotRegistered:
		return "NOT_REGISTERED"
	case TicketCanceled:
		return "TICKET_CANCELED"
	case EventFull:
		return "EVENT_FULL"
	case EventNotFound, PersonNotFound:
		return "INVALID"
	case Unauthorized:
		return "UNAUTHORIZED"
	default:
		return ""
	}
}

// HTTPStatus maps the outcome to its HTTP status.
func (o Outcome) HTTPStatus() int {
	switch o {
	case Success:
		return http.StatusOK
	case EventNotFound, PersonNotFound, NotRegistered:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusForbidden
	case AlreadyCheckedIn, TicketCanceled, EventFull:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Result carries the outcome of one check-in attempt. PersonName, EventName
// and CheckedInAt are set on Success.
type Result struct {
	Outcome     Outcome
	Message     string
	PersonName  string
	EventName   string
	CheckedInAt time.Time
}

// Store is the persistence surface the engine needs. *store.Store satisfies
// it; tests substitute an in-memory implementation.
type Store interface {
	ResolvePerson(ctx context.Context, token uuid.UUID) (*models.Person, error)
	ResolveEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	IsStaffAuthorized(ctx context.Context, event *models.Event, user *models.User) (bool, error)
	FindTicket(ctx context.Context, personID, eventID uuid.UUID) (*models.Ticket, error)
	CreateWalkin(ctx context.Context, personID, eventID uuid.UUID) (*models.Ticket, error)
	CheckInTicket(ctx context.Context, ticketID uuid.UUID, at time.Time, entry *models.ScanLog) (*models.Ticket, bool, error)
	AppendScan(ctx context.Context, entry *models.ScanLog) error
}

// Engine orchestrates the check-in state machine.
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(s Store) *Engine {
	return &Engine{store: s, now: time.Now}
}

// Process runs one check-in attempt for the scanned person token against the
// event, acting as the given staff identity.
//
// The resolution order person -> event -> authorization -> ticket -> status
// keeps audit entries as specific as possible: the log always records who
// scanned, even when the event or ticket lookup fails. Every branch past the
// authorization check writes exactly one scan log row. Unauthorized attempts
// write none: they are "who may scan" failures, not scan outcomes, and
// logging them would let arbitrary callers append to an event's audit trail.
//
// A returned error means storage failed; nothing has been partially
// committed and the request should surface a 500.
func (e *Engine) Process(ctx context.Context, personToken, eventID uuid.UUID, actor *models.User) (*Result, error) {
	person, err := e.store.ResolvePerson(ctx, personToken)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if err := e.store.AppendScan(ctx, &models.ScanLog{
			ActorID:      actor.ID,
			Result:       models.ScanInvalid,
			ScannedValue: personToken.String(),
		}); err != nil {
			return nil, err
		}
		return &Result{
			Outcome: PersonNotFound,
			Message: "QR code not recognized.",
		}, nil
	}

	event, err := e.store.ResolveEvent(ctx, eventID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if err := e.store.AppendScan(ctx, &models.ScanLog{
			PersonID:     &person.ID,
			ActorID:      actor.ID,
			Result:       models.ScanInvalid,
			ScannedValue: eventID.String(),
			Reason:       models.ReasonEventNotFound,
		}); err != nil {
			return nil, err
		}
		return &Result{
			Outcome: EventNotFound,
			Message: "Event not found.",
		}, nil
	}

	authorized, err := e.store.IsStaffAuthorized(ctx, event, actor)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return &Result{
			Outcome: Unauthorized,
			Message: "You are not staff for this event.",
		}, nil
	}

	ticket, err := e.store.FindTicket(ctx, person.ID, event.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		ticket, err = e.admitWalkin(ctx, person, event, actor)
		if err != nil {
			return nil, err
		}
		if ticket == nil {
			// Denied; admitWalkin already wrote the audit row.
			if event.AllowWalkins {
				return &Result{
					Outcome: EventFull,
					Message: "Walk-in denied, event is at capacity.",
				}, nil
			}
			return &Result{
				Outcome: NotRegistered,
				Message: fmt.Sprintf("%s is not registered for this event.", person.Name),
			}, nil
		}
	}

	if ticket.Status == models.TicketCheckedIn {
		return e.logDuplicate(ctx, person, event, actor, ticket.CheckedInAt)
	}

	if ticket.Status == models.TicketCanceled {
		if err := e.store.AppendScan(ctx, &models.ScanLog{
			EventID:      &event.ID,
			PersonID:     &person.ID,
			ActorID:      actor.ID,
			Result:       models.ScanInvalid,
			ScannedValue: personToken.String(),
			Reason:       models.ReasonTicketCanceled,
		}); err != nil {
			return nil, err
		}
		return &Result{
			Outcome: TicketCanceled,
			Message: fmt.Sprintf("%s's registration was canceled.", person.Name),
		}, nil
	}

	now := e.now()
	checked, won, err := e.store.CheckInTicket(ctx, ticket.ID, now, &models.ScanLog{
		EventID:      &event.ID,
		PersonID:     &person.ID,
		ActorID:      actor.ID,
		Result:       models.ScanSuccess,
		ScannedValue: personToken.String(),
		CheckedInAt:  &now,
	})
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent scan transitioned the ticket first. Re-read it so the
		// duplicate entry carries the winning check-in time.
		current, err := e.store.FindTicket(ctx, person.ID, event.ID)
		if err != nil {
			return nil, err
		}
		return e.logDuplicate(ctx, person, event, actor, current.CheckedInAt)
	}

	return &Result{
		Outcome:     Success,
		PersonName:  person.Name,
		EventName:   event.Name,
		CheckedInAt: *checked.CheckedInAt,
	}, nil
}

// admitWalkin applies walk-in policy for a person with no ticket. It returns
// a new issued ticket on admission, or nil after writing the denial audit
// row. A walk-in create that loses the uniqueness race to a concurrent scan
// falls back to the ticket that won.
func (e *Engine) admitWalkin(ctx context.Context, person *models.Person, event *models.Event, actor *models.User) (*models.Ticket, error) {
	if !event.AllowWalkins {
		return nil, e.store.AppendScan(ctx, &models.ScanLog{
			EventID:      &event.ID,
			PersonID:     &person.ID,
			ActorID:      actor.ID,
			Result:       models.ScanNotRegistered,
			ScannedValue: person.ID.String(),
		})
	}

	ticket, err := e.store.CreateWalkin(ctx, person.ID, event.ID)
	if err == nil {
		return ticket, nil
	}
	if errors.Is(err, store.ErrEventFull) {
		return nil, e.store.AppendScan(ctx, &models.ScanLog{
			EventID:      &event.ID,
			PersonID:     &person.ID,
			ActorID:      actor.ID,
			Result:       models.ScanNotRegistered,
			ScannedValue: person.ID.String(),
			Reason:       models.ReasonWalkinCapacityFull,
		})
	}
	if errors.Is(err, store.ErrDuplicateTicket) {
		return e.store.FindTicket(ctx, person.ID, event.ID)
	}
	return nil, err
}

func (e *Engine) logDuplicate(ctx context.Context, person *models.Person, event *models.Event, actor *models.User, checkedInAt *time.Time) (*Result, error) {
	if err := e.store.AppendScan(ctx, &models.ScanLog{
		EventID:      &event.ID,
		PersonID:     &person.ID,
		ActorID:      actor.ID,
		Result:       models.ScanDuplicate,
		ScannedValue: person.ID.String(),
		CheckedInAt:  checkedInAt,
	}); err != nil {
		return nil, err
	}

	msg := person.Name + " already checked in."
	if checkedInAt != nil {
		msg = fmt.Sprintf("%s already checked in at %s.", person.Name, checkedInAt.Format("3:04 PM"))
	}
	return &Result{
		Outcome: AlreadyCheckedIn,
		Message: msg,
	}, nil
}
