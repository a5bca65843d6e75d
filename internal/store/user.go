package store

import (
	"context"

	"github.com/trailpaw-ai/companion-platform/internal/model"
)

// CreateUser inserts a new account. A duplicate email surfaces as
// errs.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

// UserByEmail returns the account for an email, or errs.ErrNotFound.
func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UserByID returns the account for an id, or errs.ErrNotFound.
func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}
