package auth

import (
	"context"
	"errors"
	"strings"
)

// Seed roles. The admin entry mirrors the production bootstrap data; the
// remaining roles carry progressively narrower permission lists.
var roleSeed = []Role{
	{
		Name:        RoleAdmin,
		Description: "Administrator with full access.",
		Permissions: []string{
			"course:create,read,update,delete",
			"module:create,read,update,delete",
			"lecture:create,read,update,delete",
			"user:create,read,update,delete",
			"role:create,read,update,delete",
			"self:read,update",
		},
	},
	{
		Name:        RoleModerator,
		Description: "Moderator with course and module management access.",
		Permissions: []string{
			"course:create,read,update,delete",
			"module:create,read,update,delete",
			"lecture:create,read,update,delete",
			"self:read,update",
		},
	},
	{
		Name:        RoleInstructor,
		Description: "Instructor who owns and manages their courses.",
		Permissions: []string{
			"course:create,read,update,delete",
			"module:create,read,update,delete",
			"lecture:create,read,update,delete",
			"self:read,update",
		},
	},
	{
		Name:        RoleStudent,
		Description: "Student with read and subscribe access.",
		Permissions: []string{
			"course:read",
			"module:read",
			"lecture:read",
			"self:read,update",
		},
	},
}

// SeedRoles inserts the closed role set if the catalog is empty. Idempotent.
func (s *Service) SeedRoles(ctx context.Context) error {
	existing, err := s.store.Roles(ctx).List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for i := range roleSeed {
		role := roleSeed[i]
		if err := s.store.Roles(ctx).Create(ctx, &role); err != nil {
			return err
		}
	}
	return nil
}

// AdminSeed is the bootstrap admin account configuration.
type AdminSeed struct {
	Email    string
	Name     string
	Password string
}

// SeedAdmin creates the bootstrap admin user if it does not exist. The admin
// role must already be seeded. Idempotent.
func (s *Service) SeedAdmin(ctx context.Context, seed AdminSeed) error {
	email := strings.TrimSpace(strings.ToLower(seed.Email))
	if email == "" || seed.Password == "" {
		return errors.New("auth: admin seed email and password are required")
	}

	adminRole, err := s.store.Roles(ctx).FindByName(ctx, RoleAdmin)
	if err != nil {
		return err
	}

	if _, err := s.store.Users(ctx).FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	hash, err := HashPassword(seed.Password, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.store.Users(ctx).Create(ctx, &User{
		Email:         email,
		Name:          strings.TrimSpace(seed.Name),
		PasswordHash:  hash,
		RoleID:        adminRole.ID,
		EmailVerified: true,
	})
}
