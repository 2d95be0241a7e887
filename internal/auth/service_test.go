package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store for workflow tests.
type memStore struct {
	mu        sync.Mutex
	seq       int
	users     map[string]*User
	roles     map[string]*Role
	blacklist map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[string]*User),
		roles:     make(map[string]*Role),
		blacklist: make(map[string]time.Time),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) Users(context.Context) UserStore          { return memUsers{s} }
func (s *memStore) Roles(context.Context) RoleStore          { return memRoles{s} }
func (s *memStore) Blacklist(context.Context) BlacklistStore { return memBlacklist{s} }

type memUsers struct{ s *memStore }

func (m memUsers) Create(_ context.Context, u *User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.users {
		if existing.Email == u.Email {
			return ErrAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = m.s.nextID("user")
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.s.users[u.ID] = &cp
	return nil
}

func (m memUsers) Find(_ context.Context, id string) (*User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m memUsers) List(_ context.Context) ([]*User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*User
	for _, u := range m.s.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m memUsers) Update(_ context.Context, u *User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	cp.UpdatedAt = time.Now().UTC()
	m.s.users[u.ID] = &cp
	return nil
}

func (m memUsers) UpdatePassword(_ context.Context, userID, hash string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m memUsers) SetEmailVerified(_ context.Context, userID string, verified bool) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.EmailVerified = verified
	return nil
}

func (m memUsers) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.users, id)
	return nil
}

type memRoles struct{ s *memStore }

func (m memRoles) Create(_ context.Context, role *Role) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if role.ID == "" {
		role.ID = m.s.nextID("role")
	}
	cp := *role
	m.s.roles[role.ID] = &cp
	return nil
}

func (m memRoles) Find(_ context.Context, id string) (*Role, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m memRoles) FindByName(_ context.Context, name RoleName) (*Role, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.roles {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m memRoles) List(_ context.Context) ([]*Role, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*Role
	for _, r := range m.s.roles {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m memRoles) Update(_ context.Context, role *Role) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.roles[role.ID]; !ok {
		return ErrNotFound
	}
	cp := *role
	m.s.roles[role.ID] = &cp
	return nil
}

func (m memRoles) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.roles[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.roles, id)
	return nil
}

type memBlacklist struct{ s *memStore }

func (m memBlacklist) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.blacklist[token]; !ok {
		m.s.blacklist[token] = expiresAt
	}
	return nil
}

func (m memBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	_, ok := m.s.blacklist[token]
	return ok, nil
}

func (m memBlacklist) PruneExpired(_ context.Context, now time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for token, exp := range m.s.blacklist {
		if !exp.After(now) {
			delete(m.s.blacklist, token)
			n++
		}
	}
	return n, nil
}

// deferredRevokeStore buffers blacklist writes until flush is called, holding
// the rotation window open so overlapping refreshes can be observed.
type deferredRevokeStore struct {
	*memStore
	pmu     sync.Mutex
	pending []pendingRevoke
}

type pendingRevoke struct {
	token     string
	expiresAt time.Time
}

func (s *deferredRevokeStore) Blacklist(context.Context) BlacklistStore {
	return deferredBlacklist{s}
}

func (s *deferredRevokeStore) flush(ctx context.Context) {
	s.pmu.Lock()
	pending := s.pending
	s.pending = nil
	s.pmu.Unlock()
	for _, p := range pending {
		_ = memBlacklist{s.memStore}.Revoke(ctx, p.token, p.expiresAt)
	}
}

type deferredBlacklist struct{ s *deferredRevokeStore }

func (b deferredBlacklist) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	b.s.pmu.Lock()
	defer b.s.pmu.Unlock()
	b.s.pending = append(b.s.pending, pendingRevoke{token: token, expiresAt: expiresAt})
	return nil
}

func (b deferredBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	return memBlacklist{b.s.memStore}.IsRevoked(ctx, token)
}

func (b deferredBlacklist) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	return memBlacklist{b.s.memStore}.PruneExpired(ctx, now)
}

// memMailer records every send and can be told to fail.
type memMailer struct {
	mu    sync.Mutex
	sends []sentMail
	fail  error
}

type sentMail struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

func (m *memMailer) Send(_ context.Context, to, subject, template string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sends = append(m.sends, sentMail{To: to, Subject: subject, Template: template, Data: data})
	return nil
}

func (m *memMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sends) == 0 {
		t.Fatal("no mail was sent")
	}
	return m.sends[len(m.sends)-1]
}

// tokenFromLink extracts the token query parameter from an emailed link.
func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link %q: %v", link, err)
	}
	token := u.Query().Get("token")
	if token == "" {
		t.Fatalf("no token in link %q", link)
	}
	return token
}

func newTestService(t *testing.T, store *memStore, mailer *memMailer) *Service {
	t.Helper()
	tokens, err := NewTokenService(testSecrets())
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	svc, err := NewService(store, tokens, mailer, WithBcryptCost(4))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.SeedRoles(context.Background()); err != nil {
		t.Fatalf("SeedRoles: %v", err)
	}
	return svc
}

func roleID(t *testing.T, svc *Service, name RoleName) string {
	t.Helper()
	role, err := svc.store.Roles(context.Background()).FindByName(context.Background(), name)
	if err != nil {
		t.Fatalf("FindByName(%s): %v", name, err)
	}
	return role.ID
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	mailer := &memMailer{}
	svc := newTestService(t, newMemStore(), mailer)

	user, err := svc.Signup(ctx, SignupInput{
		Email:    "Student@Example.COM",
		Name:     "Student One",
		Password: "password123",
		RoleID:   roleID(t, svc, RoleStudent),
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.Email != "student@example.com" {
		t.Fatalf("email was not lowercased: %s", user.Email)
	}
	if user.EmailVerified {
		t.Fatal("new user must start unverified")
	}
	if mail := mailer.last(t); mail.Template != "email_verification" {
		t.Fatalf("unexpected template: %s", mail.Template)
	}

	res, err := svc.Login(ctx, "student@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}
	if res.AccessToken == res.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}

	if _, err := svc.Login(ctx, "student@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	// Unknown account is indistinguishable from a wrong password.
	if _, err := svc.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignupRejections(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMemStore(), &memMailer{})
	studentRole := roleID(t, svc, RoleStudent)

	if _, err := svc.Signup(ctx, SignupInput{
		Email: "a@b.c", Name: "A", Password: "password123", RoleID: roleID(t, svc, RoleAdmin),
	}); !errors.Is(err, ErrForbiddenRole) {
		t.Fatalf("admin signup: expected ErrForbiddenRole, got %v", err)
	}

	if _, err := svc.Signup(ctx, SignupInput{
		Email: "a@b.c", Name: "A", Password: "password123", RoleID: "no-such-role",
	}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("unknown role: expected ErrInvalidRole, got %v", err)
	}

	if _, err := svc.Signup(ctx, SignupInput{
		Email: "a@b.c", Name: "A", Password: "password123", RoleID: studentRole,
	}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{
		Email: "A@B.C", Name: "B", Password: "password123", RoleID: studentRole,
	}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("duplicate email: expected ErrDuplicateEmail, got %v", err)
	}

	if _, err := svc.Signup(ctx, SignupInput{
		Email: "short@b.c", Name: "S", Password: "short", RoleID: studentRole,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("short password: expected ErrInvalidInput, got %v", err)
	}
}

func TestSignupMailFailurePropagates(t *testing.T) {
	ctx := context.Background()
	mailer := &memMailer{fail: errors.New("mailgun down")}
	svc := newTestService(t, newMemStore(), mailer)

	_, err := svc.Signup(ctx, SignupInput{
		Email: "a@b.c", Name: "A", Password: "password123", RoleID: roleID(t, svc, RoleStudent),
	})
	if err == nil {
		t.Fatal("expected mail failure to surface")
	}
}

// Logging out revokes only what was presented: the access token always, the
// refresh token only when supplied. A refresh token issued before logout and
// not presented stays usable.
func TestLogoutLeavesUnpresentedRefreshTokenUsable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMemStore(), &memMailer{})
	if _, err := svc.Signup(ctx, SignupInput{
		Email: "a@b.c", Name: "A", Password: "password123", RoleID: roleID(t, svc, RoleStudent),
	}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	res, err := svc.Login(ctx, "a@b.c", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, res.AccessToken, ""); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, res.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("revoked access token: expected ErrInvalidToken, got %v", err)
	}

	if _, err := svc.Refresh(ctx, res.RefreshToken); err != nil {
		t.Fatalf("refresh with unrevoked token: %v", err)
	}
}

func TestLogoutWithRefreshTokenRevokesBoth(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMemStore(), &memMailer{})
	if _, err := svc.Signup(ctx, SignupInput{
		Email: "a@b.c", Name: "A", Password: "password123", RoleID: roleID(t, svc, RoleStudent),
	}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	res, err := svc.Login(ctx, "a@b.c", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, res.AccessToken, res.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}

	// Revoking again is a no-op, not an error.
	if err := svc.Logout(ctx, res.AccessToken, res.RefreshToken); err != nil {
		t.Fatalf("repeat Logout: %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMemStore(), &memMailer{})
	if _, err := svc.Signup(ctx, SignupInput{
		Email: "a@b.c", Name: "A", Password: "password123", RoleID: roleID(t, svc, RoleStudent),
	}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	res, err := svc.Login(ctx, "a@b.c", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	pair, err := svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.RefreshToken == res.RefreshToken {
		t.Fatal("rotation must issue a new refresh token")
	}

	// The presented token is burned.
	if _, err := svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("replayed token: expected ErrTokenRevoked, got %v", err)
	}
	// The new one works.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("rotated token: %v", err)
	}
}

// Rotation revokes the presented token only after the new pair is issued.
// Until that write lands, a second rotation of the same token also passes the
// blacklist gate, so both callers walk away with valid pairs. That window is
// an accepted property of the protocol, not a bug.
func TestRefreshWindowBeforeRevocationLands(t *testing.T) {
	ctx := context.Background()
	store := &deferredRevokeStore{memStore: newMemStore()}
	tokens, err := NewTokenService(testSecrets())
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	svc, err := NewService(store, tokens, &memMailer{}, WithBcryptCost(4))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.SeedRoles(ctx); err != nil {
		t.Fatalf("SeedRoles: %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{
		Email: "a@b.c", Name: "A", Password: "password123", RoleID: roleID(t, svc, RoleStudent),
	}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	res, err := svc.Login(ctx, "a@b.c", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	first, err := svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	second, err := svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("overlapping Refresh: %v", err)
	}
	if first.RefreshToken == second.RefreshToken {
		t.Fatal("overlapping rotations must issue distinct tokens")
	}

	// Once the buffered revocations land, the presented token is burned but
	// both issued pairs stay honored.
	store.flush(ctx)
	if _, err := svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("after revocation: expected ErrTokenRevoked, got %v", err)
	}
	if _, err := svc.Refresh(ctx, first.RefreshToken); err != nil {
		t.Fatalf("first rotated token: %v", err)
	}
	if _, err := svc.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("second rotated token: %v", err)
	}
}

func TestRefreshRejections(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(t, store, &memMailer{})

	if _, err := svc.Refresh(ctx, ""); !errors.Is(err, ErrMissingRefreshToken) {
		t.Fatalf("expected ErrMissingRefreshToken, got %v", err)
	}
	if _, err := svc.Refresh(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	// Access tokens do not rotate.
	if _, err := svc.Signup(ctx, SignupInput{
		Email: "a@b.c", Name: "A", Password: "password123", RoleID: roleID(t, svc, RoleStudent),
	}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	res, err := svc.Login(ctx, "a@b.c", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.Refresh(ctx, res.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token as refresh: expected ErrInvalidToken, got %v", err)
	}

	// Deleting the subject user invalidates the token at the user gate.
	user, err := svc.store.Users(ctx).FindByEmail(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if err := svc.store.Users(ctx).Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrRefreshUserNotFound) {
		t.Fatalf("deleted user: expected ErrRefreshUserNotFound, got %v", err)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()
	mailer := &memMailer{}
	svc := newTestService(t, newMemStore(), mailer)

	// Unlike login, this surfaces unknown accounts.
	if err := svc.ForgotPassword(ctx, "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if _, err := svc.Signup(ctx, SignupInput{
		Email: "a@b.c", Name: "A", Password: "password123", RoleID: roleID(t, svc, RoleStudent),
	}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	res, err := svc.Login(ctx, "a@b.c", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.ForgotPassword(ctx, "a@b.c"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	mail := mailer.last(t)
	if mail.Template != "password_reset" {
		t.Fatalf("unexpected template: %s", mail.Template)
	}
	token := tokenFromLink(t, mail.Data["ResetLink"].(string))

	if err := svc.ResetPassword(ctx, token, "newpassword1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := svc.Login(ctx, "a@b.c", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "a@b.c", "newpassword1"); err != nil {
		t.Fatalf("new password: %v", err)
	}

	// Outstanding tokens stay valid after a reset.
	if _, err := svc.Authenticate(ctx, res.AccessToken); err != nil {
		t.Fatalf("pre-reset access token: %v", err)
	}
	// Reset tokens are bounded by expiry only; replay within the window
	// succeeds.
	if err := svc.ResetPassword(ctx, token, "anotherpass1"); err != nil {
		t.Fatalf("replayed reset token: %v", err)
	}

	if err := svc.ResetPassword(ctx, "garbage", "newpassword2"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

// A reset link older than its one hour lifetime is rejected and the password
// stays untouched.
func TestResetPasswordExpiredToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tokens, err := NewTokenService(testSecrets(), WithTokenClock(clock))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	mailer := &memMailer{}
	svc, err := NewService(newMemStore(), tokens, mailer, WithBcryptCost(4), WithClock(clock))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.SeedRoles(ctx); err != nil {
		t.Fatalf("SeedRoles: %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{
		Email: "a@b.c", Name: "A", Password: "password123", RoleID: roleID(t, svc, RoleStudent),
	}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if err := svc.ForgotPassword(ctx, "a@b.c"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	token := tokenFromLink(t, mailer.last(t).Data["ResetLink"].(string))

	now = now.Add(tokens.TTL(PurposePasswordReset)).Add(time.Second)
	if err := svc.ResetPassword(ctx, token, "newpassword1"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expired reset token: expected ErrInvalidOrExpiredToken, got %v", err)
	}
	if _, err := svc.Login(ctx, "a@b.c", "password123"); err != nil {
		t.Fatalf("original password must still work: %v", err)
	}
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()
	mailer := &memMailer{}
	svc := newTestService(t, newMemStore(), mailer)

	user, err := svc.Signup(ctx, SignupInput{
		Email: "a@b.c", Name: "A", Password: "password123", RoleID: roleID(t, svc, RoleStudent),
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	token := tokenFromLink(t, mailer.last(t).Data["VerificationLink"].(string))

	if err := svc.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	got, err := svc.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !got.EmailVerified {
		t.Fatal("expected user to be verified")
	}

	// Re-verification is harmless.
	if err := svc.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("repeat VerifyEmail: %v", err)
	}

	if err := svc.VerifyEmail(ctx, "garbage"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestSeedRolesAndAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMemStore(), &memMailer{})

	roles, err := svc.ListRoles(ctx)
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(roles) != len(AllRoleNames()) {
		t.Fatalf("expected %d seeded roles, got %d", len(AllRoleNames()), len(roles))
	}
	// Seeding again must not duplicate.
	if err := svc.SeedRoles(ctx); err != nil {
		t.Fatalf("repeat SeedRoles: %v", err)
	}
	again, _ := svc.ListRoles(ctx)
	if len(again) != len(roles) {
		t.Fatalf("re-seed changed role count: %d -> %d", len(roles), len(again))
	}

	seed := AdminSeed{Email: "admin@example.com", Name: "Admin", Password: "password123"}
	if err := svc.SeedAdmin(ctx, seed); err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	if err := svc.SeedAdmin(ctx, seed); err != nil {
		t.Fatalf("repeat SeedAdmin: %v", err)
	}
	admin, err := svc.store.Users(ctx).FindByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if !admin.EmailVerified {
		t.Fatal("seeded admin must be pre-verified")
	}
	if admin.RoleID != roleID(t, svc, RoleAdmin) {
		t.Fatalf("seeded admin has role %s", admin.RoleID)
	}
}
