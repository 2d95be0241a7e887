package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "coremd"

// TokenPurpose identifies what a token may be used for. Each purpose is
// signed with its own secret, so a token minted for one purpose can never be
// accepted where another purpose is expected.
type TokenPurpose string

const (
	PurposeAccess            TokenPurpose = "access"
	PurposeRefresh           TokenPurpose = "refresh"
	PurposePasswordReset     TokenPurpose = "password_reset"
	PurposeEmailVerification TokenPurpose = "email_verification"
)

// Default token lifetimes, overridable per purpose via WithTTL.
const (
	defaultAccessTTL            = 24 * time.Hour
	defaultRefreshTTL           = 24 * time.Hour
	defaultPasswordResetTTL     = time.Hour
	defaultEmailVerificationTTL = 24 * time.Hour
)

// Secrets holds the per-purpose signing secrets. All four are required.
type Secrets struct {
	Access            string
	Refresh           string
	PasswordReset     string
	EmailVerification string
}

// Claims are the signed contents of a platform token.
type Claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *Claims) UserID() string { return c.Subject }

// TokenService issues and verifies signed, expiring tokens. Verification is
// stateless; revocation is the blacklist store's concern.
type TokenService struct {
	secrets map[TokenPurpose][]byte
	ttls    map[TokenPurpose]time.Duration
	issuer  string
	now     func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService) error

// WithTTL overrides the lifetime of one token purpose.
func WithTTL(purpose TokenPurpose, ttl time.Duration) TokenOption {
	return func(ts *TokenService) error {
		if ttl <= 0 {
			return fmt.Errorf("auth: ttl for %s must be greater than zero", purpose)
		}
		if _, ok := ts.ttls[purpose]; !ok {
			return fmt.Errorf("auth: unknown token purpose %q", purpose)
		}
		ts.ttls[purpose] = ttl
		return nil
	}
}

// WithTokenIssuer overrides the issuer claim.
func WithTokenIssuer(issuer string) TokenOption {
	return func(ts *TokenService) error {
		if s := strings.TrimSpace(issuer); s != "" {
			ts.issuer = s
		}
		return nil
	}
}

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(ts *TokenService) error {
		if fn != nil {
			ts.now = fn
		}
		return nil
	}
}

// NewTokenService constructs a TokenService. Every purpose must have a
// non-empty secret; reusing one secret across purposes is rejected since it
// would defeat purpose separation.
func NewTokenService(secrets Secrets, opts ...TokenOption) (*TokenService, error) {
	byPurpose := map[TokenPurpose]string{
		PurposeAccess:            secrets.Access,
		PurposeRefresh:           secrets.Refresh,
		PurposePasswordReset:     secrets.PasswordReset,
		PurposeEmailVerification: secrets.EmailVerification,
	}
	seen := make(map[string]TokenPurpose, len(byPurpose))
	keys := make(map[TokenPurpose][]byte, len(byPurpose))
	for purpose, secret := range byPurpose {
		if strings.TrimSpace(secret) == "" {
			return nil, fmt.Errorf("auth: signing secret for %s is not configured", purpose)
		}
		if other, dup := seen[secret]; dup {
			return nil, fmt.Errorf("auth: purposes %s and %s share a signing secret", other, purpose)
		}
		seen[secret] = purpose
		keys[purpose] = []byte(secret)
	}

	ts := &TokenService{
		secrets: keys,
		ttls: map[TokenPurpose]time.Duration{
			PurposeAccess:            defaultAccessTTL,
			PurposeRefresh:           defaultRefreshTTL,
			PurposePasswordReset:     defaultPasswordResetTTL,
			PurposeEmailVerification: defaultEmailVerificationTTL,
		},
		issuer: defaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(ts); err != nil {
			return nil, err
		}
	}
	return ts, nil
}

// TTL returns the configured lifetime for a purpose.
func (ts *TokenService) TTL(purpose TokenPurpose) time.Duration {
	return ts.ttls[purpose]
}

// Issue signs a token for the given purpose and subject user. The returned
// expiry is always strictly in the future.
func (ts *TokenService) Issue(purpose TokenPurpose, userID string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, errors.New("auth: user id is required")
	}
	key, ok := ts.secrets[purpose]
	if !ok {
		return "", time.Time{}, fmt.Errorf("auth: unknown token purpose %q", purpose)
	}

	now := ts.now().UTC()
	// NumericDate carries whole seconds, so report the same resolution.
	expiresAt := now.Add(ts.ttls[purpose]).Truncate(time.Second)
	claims := Claims{
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, expiry and purpose. A token exactly at its expiry
// boundary is treated as expired.
func (ts *TokenService) Verify(purpose TokenPurpose, token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMalformed
	}
	key, ok := ts.secrets[purpose]
	if !ok {
		return nil, fmt.Errorf("auth: unknown token purpose %q", purpose)
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenMalformed
		}
		return key, nil
	},
		jwt.WithTimeFunc(func() time.Time { return ts.now().UTC() }),
		jwt.WithIssuer(ts.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.Purpose != string(purpose) {
		return nil, ErrWrongPurpose
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// Decode reads claims without verifying the signature or expiry. It exists
// for bookkeeping on tokens the caller already trusts (e.g. blacklisting the
// access token presented at logout) and must never gate an action.
func (ts *TokenService) Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMalformed
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrTokenMalformed
	}
	if claims.ExpiresAt == nil || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
