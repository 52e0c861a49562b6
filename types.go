package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenPair is the result of a successful login or refresh. Both values are
// sensitive; transports must store them as HTTP-only, secure cookies or an
// equivalent non-script-readable mechanism.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionManager drives the session state machine for a principal:
// logged out -> active on login, rotated on refresh, back to logged out on
// logout or refresh mismatch.
type SessionManager interface {
	Login(ctx context.Context, identifier, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, principalID uuid.UUID) error
	ChangePassword(ctx context.Context, principalID uuid.UUID, oldPassword, newPassword string) error
}

// SessionStore owns the single persisted refresh token per principal.
// Get returns the empty string when no session is active. Set is a plain
// last-writer-wins overwrite: two concurrent refreshes presenting the same
// stale token can both pass the equality check before either write lands.
// Clear is idempotent.
type SessionStore interface {
	Get(ctx context.Context, principalID uuid.UUID) (string, error)
	Set(ctx context.Context, principalID uuid.UUID, token string) error
	Clear(ctx context.Context, principalID uuid.UUID) error
}

// Identity holds the attributes of an authenticated principal. It never
// exposes the credential hash or the stored refresh token.
type Identity interface {
	ID() string
	Username() string
	Email() string
	FullName() string
}

// IdentityProvider resolves principals from the backing account store.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// TokenService signs and verifies the two token kinds. Validation pins the
// signing algorithm; an algorithm field from untrusted input is never
// honored.
type TokenService interface {
	SignAccessToken(identity Identity) (string, error)
	SignRefreshToken(subject string) (string, error)
	ValidateAccess(token string) (AuthClaims, error)
	ValidateRefresh(token string) (AuthClaims, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

type HTTPAuthenticator interface {
	Middleware
	Login(c router.Context, payload LoginPayload) (*TokenPair, error)
	Refresh(c router.Context) (*TokenPair, error)
	Logout(c router.Context, principalID uuid.UUID) error
}

// Config holds the immutable startup configuration for the token life cycle.
// Secrets and TTLs are loaded once and passed in explicitly; signing logic
// performs no ambient lookups.
type Config interface {
	GetAccessSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshSigningKey() string
	GetRefreshTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetAccessCookieName() string
	GetRefreshCookieName() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	d.print("[ERR]", format, args...)
}

func (d defLogger) Warn(format string, args ...any) {
	d.print("[WRN]", format, args...)
}

func (d defLogger) Info(format string, args ...any) {
	d.print("[INF]", format, args...)
}

func (d defLogger) Debug(format string, args ...any) {
	d.print("[DBG]", format, args...)
}

// print handles both printf-style calls and structured key-value pairs. A
// message with no verbs but trailing args is treated as structured.
func (d defLogger) print(level, format string, args ...any) {
	if len(args) > 0 && !strings.Contains(format, "%") {
		var sb strings.Builder
		sb.WriteString(format)
		for i := 0; i < len(args); i += 2 {
			if i+1 < len(args) {
				fmt.Fprintf(&sb, " %v=%v", args[i], args[i+1])
			} else {
				fmt.Fprintf(&sb, " %v", args[i])
			}
		}
		fmt.Print(level + " SESSION " + newline(sb.String()))
		return
	}
	fmt.Printf(level+" SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
