package repository

import (
	"context"
	"errors"

	"userStoreService/models"
)

var (
	// ErrNotFound is returned when no user has the requested id.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidUser wraps the validation error of a rejected create.
	ErrInvalidUser = errors.New("invalid user")
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

var (
	_ UserRepositoryI = (*UserRepository)(nil)
	_ UserRepositoryI = (*SQLUserRepository)(nil)
)
