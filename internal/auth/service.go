package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Mailer dispatches a transactional email. Failure propagates as a workflow
// failure: a signup whose verification mail was never sent has not fully
// succeeded.
type Mailer interface {
	Send(ctx context.Context, to, subject, template string, data map[string]any) error
}

// Service orchestrates the authentication workflows: signup, login, logout,
// refresh-token rotation, password reset and email verification.
//
// Known, deliberate gaps inherited from the protocol design:
//   - refresh rotation revokes the old token only after the new pair is
//     issued, so a narrow window exists where both are valid;
//   - a successful password reset does not revoke outstanding access or
//     refresh tokens for the user;
//   - reset and verification tokens are single-use only by expiry, not by
//     explicit consumption.
type Service struct {
	store       Store
	tokens      *TokenService
	mailer      Mailer
	frontendURL string
	bcryptCost  int
	now         func() time.Time
}

// Option configures Service behavior.
type Option func(*Service) error

// WithFrontendURL sets the base URL used in reset and verification links.
func WithFrontendURL(raw string) Option {
	return func(s *Service) error {
		raw = strings.TrimRight(strings.TrimSpace(raw), "/")
		if raw == "" {
			return nil
		}
		if _, err := url.Parse(raw); err != nil {
			return fmt.Errorf("auth: invalid frontend url: %w", err)
		}
		s.frontendURL = raw
		return nil
	}
}

// WithBcryptCost overrides the bcrypt work factor.
func WithBcryptCost(cost int) Option {
	return func(s *Service) error {
		if cost > 0 {
			s.bcryptCost = cost
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the auth service. Store, token service and mailer are
// all required; there is no silent degraded mode.
func NewService(store Store, tokens *TokenService, mailer Mailer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	if mailer == nil {
		return nil, errors.New("auth: mailer is required")
	}
	s := &Service{
		store:       store,
		tokens:      tokens,
		mailer:      mailer,
		frontendURL: "http://localhost:3000",
		now:         time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Tokens exposes the token service for the authentication gate.
func (s *Service) Tokens() *TokenService { return s.tokens }

// SignupInput is the input to Signup.
type SignupInput struct {
	Email    string
	Name     string
	Password string
	RoleID   string
}

// TokenPair is an access/refresh token pair with expirations.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// LoginResult is the successful login payload.
type LoginResult struct {
	User *User `json:"user"`
	TokenPair
}

// Signup registers a new, unverified user and dispatches a verification
// email. Self-assigning the admin role is rejected.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || strings.TrimSpace(in.Name) == "" || in.Password == "" || strings.TrimSpace(in.RoleID) == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.store.Users(ctx).FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	role, err := s.store.Roles(ctx).Find(ctx, in.RoleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidRole
		}
		return nil, err
	}
	if role.Name == RoleAdmin {
		return nil, ErrForbiddenRole
	}

	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, ErrInvalidInput
	}

	user := &User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		RoleID:       role.ID,
	}
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.sendVerificationEmail(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates credentials and issues an independent access/refresh
// pair. Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, TokenPair: *pair}, nil
}

// Logout blacklists the presented access token, and the refresh token too if
// one was supplied. A missing refresh token is a valid partial logout.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return ErrMissingToken
	}

	claims, err := s.tokens.Decode(accessToken)
	if err != nil {
		return ErrInvalidToken
	}
	if err := s.store.Blacklist(ctx).Revoke(ctx, accessToken, claims.ExpiresAt.Time); err != nil {
		return err
	}

	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	refreshClaims, err := s.tokens.Decode(refreshToken)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	return s.store.Blacklist(ctx).Revoke(ctx, refreshToken, refreshClaims.ExpiresAt.Time)
}

// Refresh rotates a refresh token: each gate below is checked in order, then
// a new pair is issued and the presented token is revoked. The revocation
// lands after issuance; see the Service doc comment.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrMissingRefreshToken
	}

	revoked, err := s.store.Blacklist(ctx).IsRevoked(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	claims, err := s.tokens.Verify(PurposeRefresh, refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if _, err := s.store.Users(ctx).Find(ctx, claims.UserID()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrRefreshUserNotFound
		}
		return nil, err
	}

	pair, err := s.issuePair(claims.UserID())
	if err != nil {
		return nil, err
	}
	if err := s.store.Blacklist(ctx).Revoke(ctx, refreshToken, claims.ExpiresAt.Time); err != nil {
		return nil, err
	}
	return pair, nil
}

// ForgotPassword mails a one-hour reset token to a known account. Unlike
// login this surfaces unknown emails as 404.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return ErrInvalidInput
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	token, _, err := s.tokens.Issue(PurposePasswordReset, user.ID)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, user.Email, "Password Reset", "password_reset", map[string]any{
		"Name":      user.Name,
		"ResetLink": fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, url.QueryEscape(token)),
	})
}

// ResetPassword consumes a reset token and overwrites the password hash.
// Outstanding access and refresh tokens for the user stay valid.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" || newPassword == "" {
		return ErrInvalidInput
	}
	claims, err := s.tokens.Verify(PurposePasswordReset, token)
	if err != nil {
		return ErrInvalidOrExpiredToken
	}
	if _, err := s.store.Users(ctx).Find(ctx, claims.UserID()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	hash, err := HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return ErrInvalidInput
	}
	return s.store.Users(ctx).UpdatePassword(ctx, claims.UserID(), hash)
}

// VerifyEmail consumes an email-verification token and marks the account
// verified. Re-verifying an already verified account is harmless.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidInput
	}
	claims, err := s.tokens.Verify(PurposeEmailVerification, token)
	if err != nil {
		return ErrInvalidOrExpiredToken
	}
	if _, err := s.store.Users(ctx).Find(ctx, claims.UserID()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return s.store.Users(ctx).SetEmailVerified(ctx, claims.UserID(), true)
}

// Authenticate is the primitive behind the authentication gate: verify the
// access token, reject blacklisted tokens and resolve the subject user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*User, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, ErrMissingToken
	}
	revoked, err := s.store.Blacklist(ctx).IsRevoked(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	claims, err := s.tokens.Verify(PurposeAccess, accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.store.Users(ctx).Find(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) issuePair(userID string) (*TokenPair, error) {
	access, accessExp, err := s.tokens.Issue(PurposeAccess, userID)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.tokens.Issue(PurposeRefresh, userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *Service) sendVerificationEmail(ctx context.Context, user *User) error {
	token, _, err := s.tokens.Issue(PurposeEmailVerification, user.ID)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, user.Email, "Email Verification", "email_verification", map[string]any{
		"Name":             user.Name,
		"VerificationLink": fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, url.QueryEscape(token)),
	})
}
