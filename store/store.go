package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors returned by store operations. Handlers and the check-in
// engine branch on these rather than on raw database errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateTicket   = errors.New("ticket already exists for this person and event")
	ErrEventFull         = errors.New("event has reached capacity")
	ErrAlreadyRegistered = errors.New("person already registered for this event")
	ErrNotCanceled       = errors.New("ticket is not canceled")
	ErrUsernameTaken     = errors.New("username already taken")
)

// Store wraps the pgx pool with the persistence operations for users,
// people, events, tickets and scan logs.
type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// CreateSchema sets up the required tables. The UNIQUE (person_id, event_id)
// constraint on tickets is the storage-level backstop for the one-ticket-per-
// pair invariant; application checks alone can race past it.
func (s *Store) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'attendee',
		api_token UUID UNIQUE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS people (
		id UUID PRIMARY KEY,
		user_id UUID UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		organization TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		link_linkedin TEXT NOT NULL DEFAULT '',
		link_github TEXT NOT NULL DEFAULT '',
		link_website TEXT NOT NULL DEFAULT '',
		vis_email BOOLEAN NOT NULL DEFAULT true,
		vis_organization BOOLEAN NOT NULL DEFAULT true,
		vis_phone BOOLEAN NOT NULL DEFAULT false,
		vis_links BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 0,
		allow_walkins BOOLEAN NOT NULL DEFAULT false,
		created_by UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (start_time <= end_time),
		CHECK (capacity >= 0)
	);

	CREATE TABLE IF NOT EXISTS event_staff (
		event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (event_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS tickets (
		id UUID PRIMARY KEY,
		person_id UUID NOT NULL REFERENCES people(id) ON DELETE CASCADE,
		event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'issued'
			CHECK (status IN ('issued', 'checked_in', 'canceled', 'expired')),
		issued_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		checked_in_at TIMESTAMPTZ,
		UNIQUE (person_id, event_id)
	);

	CREATE TABLE IF NOT EXISTS scan_logs (
		id BIGSERIAL PRIMARY KEY,
		event_id UUID REFERENCES events(id) ON DELETE CASCADE,
		person_id UUID REFERENCES people(id) ON DELETE SET NULL,
		actor_id UUID NOT NULL REFERENCES users(id),
		result TEXT NOT NULL
			CHECK (result IN ('success', 'duplicate', 'not_registered',
			                  'wrong_event', 'invalid', 'event_inactive')),
		scanned_value TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		checked_in_at TIMESTAMPTZ,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS scanner_sessions (
		api_token UUID PRIMARY KEY,
		event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	if _, err := s.db.Exec(ctx, schema); err != nil {
		log.Printf("Error creating tables: %v", err)
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
