package auth

import "errors"

// Store-level sentinels. Workflows translate these into typed Errors before
// they reach the HTTP layer.
var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")
)

// Token verification sentinels returned by TokenService.
var (
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenMalformed = errors.New("auth: token malformed")
	ErrWrongPurpose   = errors.New("auth: token purpose mismatch")
)

// Error is a workflow failure carrying the HTTP status it should surface as.
// Every auth workflow returns one of the predeclared values below on expected
// failures; anything else propagating out of a workflow is an internal error
// and must surface as a generic 500.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrMissingToken          = &Error{Status: 401, Code: "missing_token", Message: "No token provided."}
	ErrMissingRefreshToken   = &Error{Status: 401, Code: "missing_refresh_token", Message: "No refresh token provided."}
	ErrTokenRevoked          = &Error{Status: 401, Code: "token_revoked", Message: "Refresh token is blacklisted."}
	ErrInvalidToken          = &Error{Status: 401, Code: "invalid_token", Message: "Invalid token."}
	ErrInvalidRefreshToken   = &Error{Status: 400, Code: "invalid_refresh_token", Message: "Invalid refresh token."}
	ErrInvalidCredentials    = &Error{Status: 401, Code: "invalid_credentials", Message: "Invalid email or password."}
	ErrDuplicateEmail        = &Error{Status: 400, Code: "duplicate_email", Message: "Email already in use."}
	ErrInvalidRole           = &Error{Status: 400, Code: "invalid_role", Message: "Invalid role."}
	ErrForbiddenRole         = &Error{Status: 400, Code: "forbidden_role", Message: "Cannot create an admin user."}
	ErrUserNotFound          = &Error{Status: 404, Code: "user_not_found", Message: "User not found."}
	ErrRefreshUserNotFound   = &Error{Status: 401, Code: "user_not_found", Message: "User not found."}
	ErrUnauthenticated       = &Error{Status: 401, Code: "unauthorized", Message: "Unauthorized"}
	ErrRoleNotFound          = &Error{Status: 403, Code: "role_not_found", Message: "Role not found"}
	ErrUnknownRole           = &Error{Status: 404, Code: "role_not_found", Message: "Role not found."}
	ErrDuplicateRole         = &Error{Status: 400, Code: "duplicate_role", Message: "Role already exists."}
	ErrForbidden             = &Error{Status: 403, Code: "forbidden", Message: "Forbidden"}
	ErrInvalidOrExpiredToken = &Error{Status: 400, Code: "invalid_or_expired_token", Message: "Invalid or expired token."}
)

// AsError unwraps err into a typed workflow Error if it is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
