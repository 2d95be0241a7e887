package auth

import (
	"context"
	"errors"
)

// Authorize checks that the authenticated user's role is one of the required
// role names. It is a pure gate: no side effects on success. The identity is
// expected to have been attached to the context by the authentication gate.
func (s *Service) Authorize(ctx context.Context, required ...RoleName) error {
	user, ok := CurrentUser(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	role, err := s.store.Roles(ctx).Find(ctx, user.RoleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrRoleNotFound
		}
		return err
	}

	for _, name := range required {
		if role.Name == name {
			return nil
		}
	}
	return ErrForbidden
}
