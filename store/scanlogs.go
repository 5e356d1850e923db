package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"turnstil-backend/models"
)

// ScanFilter narrows a scan log listing.
type ScanFilter struct {
	EventID *uuid.UUID
	Result  string
	Limit   int
}

// AppendScan writes one audit row. Pure insert; rows are never updated or
// deleted afterwards.
func (s *Store) AppendScan(ctx context.Context, entry *models.ScanLog) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO scan_logs (event_id, person_id, actor_id, result, scanned_value, reason, checked_in_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, timestamp`,
		entry.EventID, entry.PersonID, entry.ActorID,
		entry.Result, entry.ScannedValue, entry.Reason, entry.CheckedInAt,
	).Scan(&entry.ID, &entry.Timestamp)
	if err != nil {
		return fmt.Errorf("append scan log: %w", err)
	}
	return nil
}

// ListScans returns audit rows matching the filter, newest first.
func (s *Store) ListScans(ctx context.Context, filter ScanFilter) ([]models.ScanLog, error) {
	query := `
		SELECT id, event_id, person_id, actor_id, result, scanned_value, reason, checked_in_at, timestamp
		FROM scan_logs
		WHERE ($1::uuid IS NULL OR event_id = $1)
		  AND ($2 = '' OR result = $2)
		ORDER BY timestamp DESC
		LIMIT $3
	`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, query, filter.EventID, filter.Result, limit)
	if err != nil {
		return nil, fmt.Errorf("list scan logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ScanLog
	for rows.Next() {
		var l models.ScanLog
		err := rows.Scan(
			&l.ID,
			&l.EventID,
			&l.PersonID,
			&l.ActorID,
			&l.Result,
			&l.ScannedValue,
			&l.Reason,
			&l.CheckedInAt,
			&l.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
