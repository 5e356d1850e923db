package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SetActiveEvent records the scanner session's selected event, keyed by the
// caller's API token. Replaces any previous selection.
func (s *Store) SetActiveEvent(ctx context.Context, apiToken, eventID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO scanner_sessions (api_token, event_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (api_token)
		DO UPDATE SET event_id = EXCLUDED.event_id, updated_at = now()`,
		apiToken, eventID,
	)
	if err != nil {
		return fmt.Errorf("set active event: %w", err)
	}
	return nil
}

// ActiveEvent returns the session's selected event ID. Callers must
// re-validate staff authorization against the event on every read; the
// selection itself proves nothing.
func (s *Store) ActiveEvent(ctx context.Context, apiToken uuid.UUID) (uuid.UUID, error) {
	var eventID uuid.UUID
	err := s.db.QueryRow(ctx,
		`SELECT event_id FROM scanner_sessions WHERE api_token = $1`, apiToken,
	).Scan(&eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("active event: %w", err)
	}
	return eventID, nil
}

// ClearActiveEvent drops the session's selection.
func (s *Store) ClearActiveEvent(ctx context.Context, apiToken uuid.UUID) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM scanner_sessions WHERE api_token = $1`, apiToken); err != nil {
		return fmt.Errorf("clear active event: %w", err)
	}
	return nil
}
