package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"turnstil-backend/models"
)

const personColumns = `
	id, user_id, name, email, organization, phone,
	link_linkedin, link_github, link_website,
	vis_email, vis_organization, vis_phone, vis_links,
	created_at, updated_at
`

func scanPerson(row pgx.Row) (*models.Person, error) {
	var p models.Person
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Email,
		&p.Organization,
		&p.Phone,
		&p.Links.LinkedIn,
		&p.Links.GitHub,
		&p.Links.Website,
		&p.Visibility.Email,
		&p.Visibility.Organization,
		&p.Visibility.Phone,
		&p.Visibility.Links,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreatePerson issues a new person identity for a user account. The
// generated ID is the token that doubles as the QR payload and is immutable
// from here on.
func (s *Store) CreatePerson(ctx context.Context, userID uuid.UUID, name, email, organization string) (*models.Person, error) {
	vis := models.DefaultVisibility()
	query := `
		INSERT INTO people (id, user_id, name, email, organization,
		                    vis_email, vis_organization, vis_phone, vis_links)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + personColumns

	person, err := scanPerson(s.db.QueryRow(ctx, query,
		uuid.New(), userID, name, email, organization,
		vis.Email, vis.Organization, vis.Phone, vis.Links,
	))
	if err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}
	return person, nil
}

// ResolvePerson looks a person up by token (the scanned QR payload).
func (s *Store) ResolvePerson(ctx context.Context, token uuid.UUID) (*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE id = $1`
	person, err := scanPerson(s.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("resolve person: %w", err)
	}
	return person, nil
}

// PersonByUser fetches the person identity belonging to a user account.
func (s *Store) PersonByUser(ctx context.Context, userID uuid.UUID) (*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE user_id = $1`
	person, err := scanPerson(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("person by user: %w", err)
	}
	return person, nil
}

// UpdateContact applies a partial contact update. Ownership is checked at
// the handler boundary; the token itself is never touched here.
func (s *Store) UpdateContact(ctx context.Context, personID uuid.UUID, req *models.UpdateContactRequest) (*models.Person, error) {
	current, err := s.ResolvePerson(ctx, personID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		current.Name = *req.Name
	}
	if req.Email != nil {
		current.Email = *req.Email
	}
	if req.Organization != nil {
		current.Organization = *req.Organization
	}
	if req.Phone != nil {
		current.Phone = *req.Phone
	}
	if req.Links != nil {
		current.Links = *req.Links
	}
	if req.Visibility != nil {
		current.Visibility = *req.Visibility
	}

	query := `
		UPDATE people
		SET name = $2, email = $3, organization = $4, phone = $5,
		    link_linkedin = $6, link_github = $7, link_website = $8,
		    vis_email = $9, vis_organization = $10, vis_phone = $11, vis_links = $12,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + personColumns

	person, err := scanPerson(s.db.QueryRow(ctx, query,
		personID,
		current.Name, current.Email, current.Organization, current.Phone,
		current.Links.LinkedIn, current.Links.GitHub, current.Links.Website,
		current.Visibility.Email, current.Visibility.Organization,
		current.Visibility.Phone, current.Visibility.Links,
	))
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return person, nil
}
