package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"turnstil-backend/models"
)

// hashPassword is deliberately simple; session/JWT mechanics live outside
// this service and the stored hash is only checked by the login collaborator.
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// CreateUser inserts a user account and returns it together with its API
// token. Username uniqueness is enforced by the database.
func (s *Store) CreateUser(ctx context.Context, username, email, password, role string) (*models.User, uuid.UUID, error) {
	token := uuid.New()
	query := `
		INSERT INTO users (id, username, email, password_hash, role, api_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, username, email, role, created_at
	`

	var user models.User
	err := s.db.QueryRow(ctx, query, uuid.New(), username, email, hashPassword(password), role, token).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, uuid.Nil, ErrUsernameTaken
		}
		return nil, uuid.Nil, fmt.Errorf("insert user: %w", err)
	}
	return &user, token, nil
}

// UserByToken resolves the user owning an API token. This is the auth
// collaborator contract: every request's acting identity comes from here.
func (s *Store) UserByToken(ctx context.Context, token uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, username, email, role, created_at
		FROM users
		WHERE api_token = $1
	`

	var user models.User
	err := s.db.QueryRow(ctx, query, token).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user by token: %w", err)
	}
	return &user, nil
}

// UserByID fetches a user account by its ID.
func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, username, email, role, created_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := s.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user by id: %w", err)
	}
	return &user, nil
}
