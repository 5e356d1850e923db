package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"turnstil-backend/models"
)

const eventColumns = `
	id, name, description, location, start_time, end_time,
	capacity, allow_walkins, created_by, created_at
`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(
		&e.ID,
		&e.Name,
		&e.Description,
		&e.Location,
		&e.StartTime,
		&e.EndTime,
		&e.Capacity,
		&e.AllowWalkins,
		&e.CreatedBy,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// CreateEvent inserts an event and adds the creator to its staff set, the
// way organizers expect to be able to scan their own events.
func (s *Store) CreateEvent(ctx context.Context, createdBy uuid.UUID, req *models.CreateEventRequest) (*models.Event, error) {
	if req.EndTime.Before(req.StartTime) {
		return nil, fmt.Errorf("end_time precedes start_time")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create event: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO events (id, name, description, location, start_time,
		                    end_time, capacity, allow_walkins, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + eventColumns

	event, err := scanEvent(tx.QueryRow(ctx, query,
		uuid.New(), req.Name, req.Description, req.Location,
		req.StartTime, req.EndTime, req.Capacity, req.AllowWalkins, createdBy,
	))
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO event_staff (event_id, user_id) VALUES ($1, $2)`,
		event.ID, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert creator staff: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create event: %w", err)
	}
	return event, nil
}

// ResolveEvent looks an event up by ID.
func (s *Store) ResolveEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	event, err := scanEvent(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("resolve event: %w", err)
	}
	return event, nil
}

// ListEvents returns all events, soonest start first.
func (s *Store) ListEvents(ctx context.Context) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY start_time`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// DeleteEvent removes an event; tickets, staff rows and scan logs cascade.
func (s *Store) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddStaff adds a user to the event's staff set. Adding twice is a no-op.
func (s *Store) AddStaff(ctx context.Context, eventID, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO event_staff (event_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, eventID, userID)
	if err != nil {
		return fmt.Errorf("add staff: %w", err)
	}
	return nil
}

// EventStaff lists the users in the event's staff set.
func (s *Store) EventStaff(ctx context.Context, eventID uuid.UUID) ([]models.User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.role, u.created_at
		FROM event_staff es
		JOIN users u ON u.id = es.user_id
		WHERE es.event_id = $1
		ORDER BY u.username
	`
	rows, err := s.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("event staff: %w", err)
	}
	defer rows.Close()

	var staff []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan staff row: %w", err)
		}
		staff = append(staff, u)
	}
	return staff, rows.Err()
}

// SetWalkins toggles walk-in admission for an event.
func (s *Store) SetWalkins(ctx context.Context, eventID uuid.UUID, allow bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE events SET allow_walkins = $2 WHERE id = $1`, eventID, allow)
	if err != nil {
		return fmt.Errorf("set walkins: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IsStaffAuthorized reports whether the user may scan for the event:
// admin role, event creator, or explicit staff membership. Membership is
// read from storage at call time; staff assignments can change mid-session.
func (s *Store) IsStaffAuthorized(ctx context.Context, event *models.Event, user *models.User) (bool, error) {
	if user.HasCapability(models.RoleAdmin) {
		return true, nil
	}
	if event.CreatedBy == user.ID {
		return true, nil
	}

	var member bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM event_staff WHERE event_id = $1 AND user_id = $2)`,
		event.ID, user.ID,
	).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("staff membership: %w", err)
	}
	return member, nil
}

// RegistrationCount counts non-canceled tickets for an event.
func (s *Store) RegistrationCount(ctx context.Context, eventID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_id = $1 AND status <> 'canceled'`,
		eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("registration count: %w", err)
	}
	return count, nil
}

// CheckinCount counts checked-in tickets for an event.
func (s *Store) CheckinCount(ctx context.Context, eventID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_id = $1 AND status = 'checked_in'`,
		eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("checkin count: %w", err)
	}
	return count, nil
}
