package session

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes attached to structured errors so callers can branch on kind
// without parsing message text.
const (
	TextCodeIdentityNotFound  = "IDENTITY_NOT_FOUND"
	TextCodeInvalidCredential = "INVALID_CREDENTIALS"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeStaleRefresh      = "STALE_REFRESH_TOKEN"
	TextCodeHashingFailure    = "HASHING_FAILURE"
	TextCodePersistence       = "PERSISTENCE_FAILURE"
	TextCodeUnauthorized      = "UNAUTHORIZED"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryAuth).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is returned when a credential does not match
// the stored hash. Wrong passwords yield this error, never a hashing failure.
var ErrMismatchedHashAndPassword = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredential).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a token signature verifies but the expiry
// claim is in the past.
var ErrTokenExpired = errors.New("authentication token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers structurally invalid tokens, bad signatures, and
// unexpected signing algorithms. Callers on security-sensitive paths need
// not distinguish these; the wrapped cause stays available for logging.
var ErrTokenMalformed = errors.New("invalid authentication token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrStaleRefreshToken is returned when a refresh token verifies but is not
// bit-for-bit equal to the stored session token, e.g. replay after rotation
// or after logout.
var ErrStaleRefreshToken = errors.New("refresh token no longer valid", errors.CategoryAuth).
	WithTextCode(TextCodeStaleRefresh).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthorized is the guard-level catch-all handed to transports once the
// specific cause has been logged.
var ErrUnauthorized = errors.New("unauthorized", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty inputs to the hashing primitives
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation)

// ErrUnableToFindSession is the error when our request has no token
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode claims from the token
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// WrapHashingError marks an underlying bcrypt failure, e.g. a malformed
// stored hash.
func WrapHashingError(err error) *errors.Error {
	return errors.Wrap(err, errors.CategoryInternal, "password hashing primitive failed").
		WithTextCode(TextCodeHashingFailure)
}

// WrapPersistenceError marks a storage failure so it is never mistaken for
// an authentication failure.
func WrapPersistenceError(err error, operation string) *errors.Error {
	return errors.Wrap(err, errors.CategoryInternal, "session persistence failed").
		WithTextCode(TextCodePersistence).
		WithMetadata(map[string]any{"operation": operation})
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for structurally invalid tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsStaleRefreshError will check for replayed or rotated-out refresh tokens
func IsStaleRefreshError(err error) bool {
	return errors.Is(err, ErrStaleRefreshToken)
}

// IsAuthError reports whether the error belongs to the authentication
// taxonomy, i.e. should surface as an unauthorized outcome at the boundary.
func IsAuthError(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryAuth
}
