package repository

import (
	"context"
	"fmt"
	"sync"

	"userStoreService/models"
)

// UserRepository keeps users in memory in insertion order.
// A single RWMutex guards both the slice and the id counter, so id
// assignment and the append happen atomically.
type UserRepository struct {
	mu     sync.RWMutex
	users  []*models.User
	nextID int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{nextID: 1}
}

// Create validates u, assigns the next id and stores a copy.
// Any id already set on u is ignored.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: nil user", ErrInvalidUser)
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}
	stored := u.Clone()

	r.mu.Lock()
	stored.ID = r.nextID
	r.nextID++
	r.users = append(r.users, &stored)
	r.mu.Unlock()

	out := stored.Clone()
	return &out, nil
}

// List returns a snapshot of all users in insertion order.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Clone())
	}
	return out, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	out := r.users[i].Clone()
	return &out, nil
}

// Update applies patch to the user with the given id and returns the result.
func (r *UserRepository) Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	patch.Apply(r.users[i])
	out := r.users[i].Clone()
	return &out, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	copy(r.users[i:], r.users[i+1:])
	r.users[len(r.users)-1] = nil
	r.users = r.users[:len(r.users)-1]
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

// indexOf is a linear scan; callers must hold the lock.
func (r *UserRepository) indexOf(id int64) int {
	for i, u := range r.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}
