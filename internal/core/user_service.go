package core

import (
	"context"
	"fmt"
)

type userService struct {
	store Store
}

// NewUserService constructs a UserService backed by the given Store.
func NewUserService(store Store) UserService {
	return &userService{store: store}
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	if !u.IsActive {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return u, nil
}

func (s *userService) GetByID(ctx context.Context, userID int64) (*User, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user id=%d: %w", userID, err)
	}
	return u, nil
}
