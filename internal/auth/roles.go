package auth

import (
	"context"
	"errors"
	"strings"
)

// Role catalog administration. Role names are constrained to the known set;
// the catalog only varies descriptions and permission lists.

// RoleInput carries the writable role fields.
type RoleInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func (s *Service) CreateRole(ctx context.Context, in RoleInput) (*Role, error) {
	name, ok := ParseRoleName(in.Name)
	if !ok {
		return nil, ErrInvalidRole
	}
	roles := s.store.Roles(ctx)
	if _, err := roles.FindByName(ctx, name); err == nil {
		return nil, ErrDuplicateRole
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	role := &Role{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Permissions: in.Permissions,
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	if err := roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *Service) GetRole(ctx context.Context, id string) (*Role, error) {
	role, err := s.store.Roles(ctx).Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownRole
		}
		return nil, err
	}
	return role, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	return s.store.Roles(ctx).List(ctx)
}

// UpdateRoleInput carries the mutable role fields. Nil means "leave as is".
// Names are immutable once created.
type UpdateRoleInput struct {
	Description *string   `json:"description"`
	Permissions *[]string `json:"permissions"`
}

func (s *Service) UpdateRole(ctx context.Context, id string, in UpdateRoleInput) (*Role, error) {
	roles := s.store.Roles(ctx)
	role, err := roles.Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownRole
		}
		return nil, err
	}
	if in.Description != nil {
		role.Description = strings.TrimSpace(*in.Description)
	}
	if in.Permissions != nil {
		role.Permissions = *in.Permissions
		if role.Permissions == nil {
			role.Permissions = []string{}
		}
	}
	if err := roles.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *Service) DeleteRole(ctx context.Context, id string) error {
	err := s.store.Roles(ctx).Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return ErrUnknownRole
	}
	return err
}
