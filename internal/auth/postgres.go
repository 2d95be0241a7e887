package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"coremd.cloud/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(context.Context) UserStore          { return &userStore{db: s.db} }
func (s *PGStore) Roles(context.Context) RoleStore          { return &roleStore{db: s.db} }
func (s *PGStore) Blacklist(context.Context) BlacklistStore { return &blacklistStore{db: s.db} }

// User store ---------------------------------------------------------------
type userStore struct{ db *sql.DB }

const userColumns = `id, email, name, password_hash, role_id, email_verified, created_at, updated_at`

func (s *userStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, name, password_hash, role_id, email_verified) values($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.RoleID, u.EmailVerified,
	)
	return err
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.RoleID, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, strings.TrimSpace(strings.ToLower(email))))
}

func (s *userStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *userStore) Update(ctx context.Context, u *User) error {
	res, err := s.db.ExecContext(ctx,
		`update users set email=$2, name=$3, role_id=$4, updated_at=now() where id=$1`,
		u.ID, strings.TrimSpace(strings.ToLower(u.Email)), u.Name, u.RoleID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2, updated_at=now() where id=$1`, userID, passwordHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) SetEmailVerified(ctx context.Context, userID string, verified bool) error {
	res, err := s.db.ExecContext(ctx,
		`update users set email_verified=$2, updated_at=now() where id=$1`, userID, verified)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Role store ---------------------------------------------------------------
type roleStore struct{ db *sql.DB }

const roleColumns = `id, name, description, permissions, created_at, updated_at`

func (s *roleStore) Create(ctx context.Context, role *Role) error {
	if role.ID == "" {
		role.ID = ids.New()
	}
	perms, _ := json.Marshal(role.Permissions)
	_, err := s.db.ExecContext(ctx,
		`insert into roles(id, name, description, permissions) values($1,$2,$3,$4)`,
		role.ID, string(role.Name), role.Description, perms,
	)
	return err
}

func scanRole(row interface{ Scan(...any) error }) (*Role, error) {
	var (
		role  Role
		perms []byte
	)
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &perms, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(perms, &role.Permissions)
	return &role, nil
}

func (s *roleStore) Find(ctx context.Context, id string) (*Role, error) {
	return scanRole(s.db.QueryRowContext(ctx,
		`select `+roleColumns+` from roles where id=$1`, id))
}

func (s *roleStore) FindByName(ctx context.Context, name RoleName) (*Role, error) {
	return scanRole(s.db.QueryRowContext(ctx,
		`select `+roleColumns+` from roles where name=$1`, string(name)))
}

func (s *roleStore) List(ctx context.Context) ([]*Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+roleColumns+` from roles order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (s *roleStore) Update(ctx context.Context, role *Role) error {
	perms, _ := json.Marshal(role.Permissions)
	res, err := s.db.ExecContext(ctx,
		`update roles set name=$2, description=$3, permissions=$4, updated_at=now() where id=$1`,
		role.ID, string(role.Name), role.Description, perms,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *roleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from roles where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Blacklist store -----------------------------------------------------------
type blacklistStore struct{ db *sql.DB }

func (s *blacklistStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	// on conflict do nothing makes double revocation a no-op success.
	_, err := s.db.ExecContext(ctx,
		`insert into token_blacklist(token, expires_at) values($1,$2) on conflict (token) do nothing`,
		token, expiresAt,
	)
	return err
}

func (s *blacklistStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from token_blacklist where token=$1)`, token).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *blacklistStore) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from token_blacklist where expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
