// Package users provides database operations for user lookup.
//
// Users are referenced by tracking records but not managed by the catalog;
// the HTTP layer uses GetOrCreateUser to provision its single default user.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetOrCreateUser(ctx, "reader")
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/shelf/internal/database/store"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/repoerr"
)

// Repository handles all user database operations.
type Repository struct {
	users *store.Store[entities.User]
	now   func() time.Time
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		users: store.New[entities.User](db, "user"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser creates a new user. Usernames are unique.
func (r *Repository) CreateUser(ctx context.Context, username string) (*entities.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, repoerr.Validation("username", "is required")
	}

	now := r.now()
	user := &entities.User{Username: username, CreatedAt: now, UpdatedAt: now}
	if err := r.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetOrCreateUser returns the user with username, creating it when missing.
func (r *Repository) GetOrCreateUser(ctx context.Context, username string) (*entities.User, error) {
	user, err := r.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repoerr.ErrNotFound) {
		return nil, err
	}

	user, err = r.CreateUser(ctx, username)
	if errors.Is(err, repoerr.ErrConflict) {
		// created concurrently
		return r.GetUserByUsername(ctx, strings.TrimSpace(username))
	}
	return user, err
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return r.users.GetByID(ctx, id)
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	return r.users.FindOneBy(ctx, "username", username)
}
