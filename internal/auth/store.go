package auth

import (
	"context"
	"time"
)

// Store describes the persistence operations the auth subsystem requires.
// Implementations must be safe for concurrent use.
type Store interface {
	Users(ctx context.Context) UserStore
	Roles(ctx context.Context) RoleStore
	Blacklist(ctx context.Context) BlacklistStore
}

// UserStore manages user accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	SetEmailVerified(ctx context.Context, userID string, verified bool) error
	Delete(ctx context.Context, id string) error
}

// RoleStore manages the role catalog.
type RoleStore interface {
	Create(ctx context.Context, role *Role) error
	Find(ctx context.Context, id string) (*Role, error)
	FindByName(ctx context.Context, name RoleName) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id string) error
}

// BlacklistStore is the revocation ledger for invalidated tokens. Entries are
// dead weight once expires_at has passed: an expired token can never pass
// verification again, so pruned lookups returning "not revoked" are harmless.
type BlacklistStore interface {
	// Revoke records a token as invalidated. Revoking an already-revoked
	// token is a no-op success.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}
