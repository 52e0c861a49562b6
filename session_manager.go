package session

import (
	"context"
	"crypto/subtle"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Manager orchestrates login, refresh, logout, and password change by
// composing the credential vault, the token service, and the session store.
type Manager struct {
	provider IdentityProvider
	users    Users
	tokens   TokenService
	store    SessionStore
	logger   Logger
}

// NewSessionManager returns a Manager wired against the given repositories
// and the startup token configuration.
func NewSessionManager(repo RepositoryManager, cfg Config) *Manager {
	logger := defLogger{}

	return &Manager{
		provider: NewUserProvider(repo.Users()),
		users:    repo.Users(),
		tokens:   NewTokenService(cfg, logger),
		store:    NewSessionStore(repo.Users()),
		logger:   logger,
	}
}

// NewManager returns an unwired Manager meant to be assembled through the
// With builders.
func NewManager() *Manager {
	return &Manager{logger: defLogger{}}
}

func (m *Manager) WithLogger(logger Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithTokenService overrides the token service, e.g. to inject fake secrets
// in tests.
func (m *Manager) WithTokenService(ts TokenService) *Manager {
	if ts != nil {
		m.tokens = ts
	}
	return m
}

// WithSessionStore overrides the refresh-token store.
func (m *Manager) WithSessionStore(store SessionStore) *Manager {
	if store != nil {
		m.store = store
	}
	return m
}

// WithIdentityProvider overrides the identity provider.
func (m *Manager) WithIdentityProvider(provider IdentityProvider) *Manager {
	if provider != nil {
		m.provider = provider
	}
	return m
}

// WithUsers overrides the user repository used for credential changes.
func (m *Manager) WithUsers(users Users) *Manager {
	if users != nil {
		m.users = users
	}
	return m
}

// TokenService returns the TokenService instance used by this Manager
func (m *Manager) TokenService() TokenService {
	return m.tokens
}

// Login verifies the credential, mints a token pair, and persists the
// refresh token as the principal's only valid session marker. The store
// write happens only after both tokens were produced: a minting failure
// leaves no session state behind.
func (m *Manager) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	identity, err := m.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		m.logger.Error("Login verify identity error", "identifier", identifier, "error", err)
		return nil, err
	}

	pair, err := m.mintPair(identity)
	if err != nil {
		m.logger.Error("Login token minting error", "error", err)
		return nil, err
	}

	principalID, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "identity has a non-uuid id")
	}

	if err := m.store.Set(ctx, principalID, pair.RefreshToken); err != nil {
		m.logger.Error("Login session persist error", "error", err)
		return nil, err
	}

	return pair, nil
}

// Refresh rotates the session: it verifies the presented refresh token,
// requires bit-for-bit equality with the stored value, then mints and
// persists a new pair. The previous refresh token becomes unusable even if
// it has not yet expired.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrUnableToFindSession
	}

	claims, err := m.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		m.logger.Error("Refresh token validation error", "error", err)
		return nil, err
	}

	identity, err := m.provider.FindIdentityByIdentifier(ctx, claims.UserID())
	if err != nil {
		m.logger.Error("Refresh identity lookup error", "subject", claims.UserID(), "error", err)
		return nil, err
	}

	principalID, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "identity has a non-uuid id")
	}

	stored, err := m.store.Get(ctx, principalID)
	if err != nil {
		m.logger.Error("Refresh session lookup error", "error", err)
		return nil, err
	}

	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		m.logger.Warn("Refresh token does not match stored session", "subject", claims.UserID())
		return nil, ErrStaleRefreshToken
	}

	pair, err := m.mintPair(identity)
	if err != nil {
		m.logger.Error("Refresh token minting error", "error", err)
		return nil, err
	}

	if err := m.store.Set(ctx, principalID, pair.RefreshToken); err != nil {
		m.logger.Error("Refresh session persist error", "error", err)
		return nil, err
	}

	return pair, nil
}

// Logout clears the stored refresh token. Logging out an already logged-out
// principal succeeds; the caller is responsible for discarding any tokens it
// still holds.
func (m *Manager) Logout(ctx context.Context, principalID uuid.UUID) error {
	return m.store.Clear(ctx, principalID)
}

// ChangePassword verifies the old credential, rehashes, and stores the new
// one. The current session stays valid; callers wanting a forced re-login
// call Logout separately.
func (m *Manager) ChangePassword(ctx context.Context, principalID uuid.UUID, oldPassword, newPassword string) error {
	user, err := m.users.GetByIdentifier(ctx, principalID.String())
	if err != nil {
		if errors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user for password change")
	}

	if err := ComparePasswordAndHash(oldPassword, user.PasswordHash); err != nil {
		m.logger.Error("ChangePassword old password mismatch", "id", principalID)
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := m.users.UpdatePasswordHash(ctx, principalID, hash); err != nil {
		return WrapPersistenceError(err, "password.update")
	}

	return nil
}

func (m *Manager) mintPair(identity Identity) (*TokenPair, error) {
	accessToken, err := m.tokens.SignAccessToken(identity)
	if err != nil {
		return nil, err
	}

	refreshToken, err := m.tokens.SignRefreshToken(identity.ID())
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

var _ SessionManager = (*Manager)(nil)
