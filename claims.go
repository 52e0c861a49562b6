package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenUse discriminates the two token kinds. A refresh token presented on a
// protected route (or the inverse) fails validation even when the signature
// happens to verify.
type TokenUse string

const (
	// TokenUseAccess marks short-lived tokens presented on every protected request.
	TokenUseAccess TokenUse = "access"
	// TokenUseRefresh marks long-lived tokens used solely to mint a new pair.
	TokenUseRefresh TokenUse = "refresh"
)

// AuthClaims is the verified view of a token. Profile fields are only
// populated on access tokens; refresh tokens carry the subject alone.
type AuthClaims interface {
	Subject() string
	UserID() string
	Use() TokenUse
	Email() string
	Username() string
	FullName() string
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID          string   `json:"uid,omitempty"`
	TokenUse     TokenUse `json:"token_use,omitempty"`
	UserEmail    string   `json:"email,omitempty"`
	UserName     string   `json:"username,omitempty"`
	UserFullName string   `json:"full_name,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Use returns the token kind this claim set was minted for
func (c *JWTClaims) Use() TokenUse {
	return c.TokenUse
}

// Email returns the email claim; empty on refresh tokens
func (c *JWTClaims) Email() string {
	return c.UserEmail
}

// Username returns the username claim; empty on refresh tokens
func (c *JWTClaims) Username() string {
	return c.UserName
}

// FullName returns the display name claim; empty on refresh tokens
func (c *JWTClaims) FullName() string {
	return c.UserFullName
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ensureTokenID assigns a random jti when none is set. Refresh tokens rely
// on this: consecutive rotations inside the same second must still produce
// distinct token strings for the stored-value equality check.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
