// Package service contains the business logic layer.
//
// This file implements the user service: session token resolution for
// the auth middleware and user lookups for outbound email.
package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jobvert/jobvert/internal/domain"
	"github.com/jobvert/jobvert/internal/repository"
)

// UserService defines the interface for user-related operations.
type UserService interface {
	// GetBySessionToken resolves a user from a raw session token.
	// Returns EUNAUTHORIZED for unknown or expired tokens.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// userService implements UserService.
type userService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(queries *repository.Queries, logger *slog.Logger) UserService {
	return &userService{
		queries: queries,
		logger:  logger,
	}
}

// GetBySessionToken resolves a user from a raw session token.
// Only the SHA-256 hash of the token is ever compared against storage.
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "UserService.GetBySessionToken"

	if token == "" {
		return nil, domain.Errorf(domain.EUNAUTHORIZED, op, "Authentication required")
	}

	hash := sha256.Sum256([]byte(token))
	repoUser, err := s.queries.GetUserBySessionTokenHash(ctx, hex.EncodeToString(hash[:]))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.EUNAUTHORIZED, op, "Session expired or invalid")
		}
		s.logger.Error("failed to resolve session", "error", err, "op", op)
		return nil, domain.Internal(err, op, "Failed to resolve session")
	}

	user := repoUserToDomain(repoUser)
	return &user, nil
}

// GetByID retrieves a user by ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "UserService.GetByID"

	repoUser, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		s.logger.Error("failed to get user", "error", err, "op", op, "user_id", id)
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user := repoUserToDomain(repoUser)
	return &user, nil
}

// repoUserToDomain converts a repository User to a domain User.
func repoUserToDomain(ru repository.User) domain.User {
	return domain.User{
		ID:        ru.ID,
		Email:     ru.Email,
		Name:      ru.Name,
		CreatedAt: ru.CreatedAt,
	}
}
