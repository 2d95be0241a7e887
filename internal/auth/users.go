package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// User administration. These operations sit behind the admin gate in the
// HTTP layer; the service itself only enforces data integrity.

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.store.Users(ctx).List(ctx)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.store.Users(ctx).Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateUserInput carries the mutable user fields. Nil means "leave as is".
type UpdateUserInput struct {
	Email  *string `json:"email"`
	Name   *string `json:"name"`
	RoleID *string `json:"roleId"`
}

func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*User, error) {
	users := s.store.Users(ctx)
	user, err := users.Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email == "" {
			return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
		}
		if email != user.Email {
			if _, err := users.FindByEmail(ctx, email); err == nil {
				return nil, ErrDuplicateEmail
			} else if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			user.Email = email
		}
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		user.Name = name
	}
	if in.RoleID != nil {
		role, err := s.store.Roles(ctx).Find(ctx, *in.RoleID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrInvalidRole
			}
			return nil, err
		}
		user.RoleID = role.ID
	}
	if err := users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	err := s.store.Users(ctx).Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
