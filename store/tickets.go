package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"turnstil-backend/models"
)

const ticketColumns = `id, person_id, event_id, status, issued_at, checked_in_at`

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.PersonID, &t.EventID, &t.Status, &t.IssuedAt, &t.CheckedInAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindTicket fetches the ticket for a (person, event) pair.
func (s *Store) FindTicket(ctx context.Context, personID, eventID uuid.UUID) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE person_id = $1 AND event_id = $2`
	ticket, err := scanTicket(s.db.QueryRow(ctx, query, personID, eventID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	return ticket, nil
}

// CreateIssued inserts a new issued ticket. The unique (person_id, event_id)
// constraint turns a concurrent double-create into ErrDuplicateTicket.
func (s *Store) CreateIssued(ctx context.Context, personID, eventID uuid.UUID) (*models.Ticket, error) {
	query := `
		INSERT INTO tickets (id, person_id, event_id, status)
		VALUES ($1, $2, $3, 'issued')
		RETURNING ` + ticketColumns

	ticket, err := scanTicket(s.db.QueryRow(ctx, query, uuid.New(), personID, eventID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTicket
		}
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	return ticket, nil
}

// CreateWalkin admits an unregistered person at scan time. The event row is
// locked for the duration of the capacity check so concurrent walk-ins for
// the same event serialize and capacity cannot be oversold.
func (s *Store) CreateWalkin(ctx context.Context, personID, eventID uuid.UUID) (*models.Ticket, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin walkin: %w", err)
	}
	defer tx.Rollback(ctx)

	var capacity uint
	err = tx.QueryRow(ctx,
		`SELECT capacity FROM events WHERE id = $1 FOR UPDATE`, eventID,
	).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}

	if capacity != 0 {
		var count int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM tickets WHERE event_id = $1 AND status <> 'canceled'`,
			eventID,
		).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("count registrations: %w", err)
		}
		if count >= int(capacity) {
			return nil, ErrEventFull
		}
	}

	query := `
		INSERT INTO tickets (id, person_id, event_id, status)
		VALUES ($1, $2, $3, 'issued')
		RETURNING ` + ticketColumns

	ticket, err := scanTicket(tx.QueryRow(ctx, query, uuid.New(), personID, eventID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTicket
		}
		return nil, fmt.Errorf("insert walkin ticket: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit walkin: %w", err)
	}
	return ticket, nil
}

// RegisterTicket handles self-registration: capacity is checked under the
// same event lock as walk-ins, an existing canceled ticket is reactivated,
// and an existing active ticket yields ErrAlreadyRegistered.
func (s *Store) RegisterTicket(ctx context.Context, personID, eventID uuid.UUID) (*models.Ticket, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin register: %w", err)
	}
	defer tx.Rollback(ctx)

	var capacity uint
	err = tx.QueryRow(ctx,
		`SELECT capacity FROM events WHERE id = $1 FOR UPDATE`, eventID,
	).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrNotFound
		}
		return nil, false, fmt.Errorf("lock event: %w", err)
	}

	existing, err := scanTicket(tx.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE person_id = $1 AND event_id = $2`,
		personID, eventID,
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("find existing ticket: %w", err)
	}

	if existing != nil {
		if existing.Status != models.TicketCanceled {
			return nil, false, ErrAlreadyRegistered
		}
		// Reactivation does not consume a slot beyond the one the canceled
		// ticket gave back, but it still respects current capacity.
		if full, err := eventFullLocked(ctx, tx, eventID, capacity); err != nil {
			return nil, false, err
		} else if full {
			return nil, false, ErrEventFull
		}
		ticket, err := scanTicket(tx.QueryRow(ctx, `
			UPDATE tickets SET status = 'issued'
			WHERE id = $1 AND status = 'canceled'
			RETURNING `+ticketColumns, existing.ID,
		))
		if err != nil {
			return nil, false, fmt.Errorf("reactivate ticket: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("commit reactivation: %w", err)
		}
		return ticket, true, nil
	}

	if full, err := eventFullLocked(ctx, tx, eventID, capacity); err != nil {
		return nil, false, err
	} else if full {
		return nil, false, ErrEventFull
	}

	ticket, err := scanTicket(tx.QueryRow(ctx, `
		INSERT INTO tickets (id, person_id, event_id, status)
		VALUES ($1, $2, $3, 'issued')
		RETURNING `+ticketColumns,
		uuid.New(), personID, eventID,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, ErrAlreadyRegistered
		}
		return nil, false, fmt.Errorf("insert registration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit registration: %w", err)
	}
	return ticket, false, nil
}

func eventFullLocked(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, capacity uint) (bool, error) {
	if capacity == 0 {
		return false, nil
	}
	var count int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_id = $1 AND status <> 'canceled'`,
		eventID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count registrations: %w", err)
	}
	return count >= int(capacity), nil
}

// CheckInTicket performs the issued -> checked_in transition and writes the
// success scan log in one transaction, so the audit row and the mutation
// commit together or not at all. The conditional UPDATE is the
// compare-and-swap: a concurrent scan that already transitioned the ticket
// makes it match zero rows, and this call reports won=false with nothing
// committed.
func (s *Store) CheckInTicket(ctx context.Context, ticketID uuid.UUID, at time.Time, entry *models.ScanLog) (*models.Ticket, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin checkin: %w", err)
	}
	defer tx.Rollback(ctx)

	ticket, err := scanTicket(tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = 'checked_in', checked_in_at = $2
		WHERE id = $1 AND status NOT IN ('checked_in', 'canceled')
		RETURNING `+ticketColumns,
		ticketID, at,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("checkin ticket: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO scan_logs (event_id, person_id, actor_id, result, scanned_value, reason, checked_in_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.EventID, entry.PersonID, entry.ActorID,
		entry.Result, entry.ScannedValue, entry.Reason, entry.CheckedInAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("append checkin log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit checkin: %w", err)
	}
	return ticket, true, nil
}

// ReactivateTicket transitions a canceled ticket back to issued.
func (s *Store) ReactivateTicket(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	ticket, err := scanTicket(s.db.QueryRow(ctx, `
		UPDATE tickets SET status = 'issued'
		WHERE id = $1 AND status = 'canceled'
		RETURNING `+ticketColumns, ticketID,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotCanceled
		}
		return nil, fmt.Errorf("reactivate ticket: %w", err)
	}
	return ticket, nil
}

// CancelTicket transitions an issued or checked-in ticket to canceled.
func (s *Store) CancelTicket(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	ticket, err := scanTicket(s.db.QueryRow(ctx, `
		UPDATE tickets SET status = 'canceled'
		WHERE id = $1 AND status IN ('issued', 'checked_in')
		RETURNING `+ticketColumns, ticketID,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cancel ticket: %w", err)
	}
	return ticket, nil
}

// TicketsForEvent lists an event's tickets, newest first.
func (s *Store) TicketsForEvent(ctx context.Context, eventID uuid.UUID) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE event_id = $1 ORDER BY issued_at DESC`
	rows, err := s.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("tickets for event: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket row: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// TicketsForPerson lists a person's tickets, newest first.
func (s *Store) TicketsForPerson(ctx context.Context, personID uuid.UUID) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE person_id = $1 ORDER BY issued_at DESC`
	rows, err := s.db.Query(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("tickets for person: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket row: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}
