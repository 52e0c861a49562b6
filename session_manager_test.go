package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-repository-bun"
	session "github.com/goliatone/go-session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// TestClaims is a simple implementation of the AuthClaims interface
type TestClaims struct {
	subject string
	use     session.TokenUse
}

func (c TestClaims) Subject() string       { return c.subject }
func (c TestClaims) UserID() string        { return c.subject }
func (c TestClaims) Use() session.TokenUse { return c.use }
func (c TestClaims) Email() string         { return "" }
func (c TestClaims) Username() string      { return "" }
func (c TestClaims) FullName() string      { return "" }
func (c TestClaims) Expires() time.Time    { return time.Now().Add(time.Hour) }
func (c TestClaims) IssuedAt() time.Time   { return time.Now() }

// MockUsers implements session.Users by overriding the methods the manager
// touches. The embedded interface covers the rest.
type MockUsers struct {
	session.Users
	mock.Mock
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*session.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.User), args.Error(1)
}

func (m *MockUsers) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func newManager(t *testing.T) (*session.Manager, *MockIdentityProvider, *MockTokenService, *MockSessionStore) {
	t.Helper()

	provider := new(MockIdentityProvider)
	tokens := new(MockTokenService)
	store := new(MockSessionStore)

	manager := session.NewManager().
		WithIdentityProvider(provider).
		WithTokenService(tokens).
		WithSessionStore(store)

	return manager, provider, tokens, store
}

func TestManagerLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login mints pair and stores refresh token", func(t *testing.T) {
		manager, provider, tokens, store := newManager(t)

		principalID := uuid.New()
		identity := TestIdentity{
			id:       principalID.String(),
			username: "testuser",
			email:    "test@example.com",
			fullName: "Test User",
		}

		provider.On("VerifyIdentity", ctx, "test@example.com", "password123").
			Return(identity, nil).Once()
		tokens.On("SignAccessToken", identity).Return("access.jwt", nil).Once()
		tokens.On("SignRefreshToken", principalID.String()).Return("refresh.jwt", nil).Once()
		store.On("Set", ctx, principalID, "refresh.jwt").Return(nil).Once()

		pair, err := manager.Login(ctx, "test@example.com", "password123")

		require.NoError(t, err)
		assert.Equal(t, "access.jwt", pair.AccessToken)
		assert.Equal(t, "refresh.jwt", pair.RefreshToken)
		store.AssertExpectations(t)
	})

	t.Run("invalid credentials never touch the store", func(t *testing.T) {
		manager, provider, _, store := newManager(t)

		provider.On("VerifyIdentity", ctx, "test@example.com", "wrong").
			Return(nil, session.ErrMismatchedHashAndPassword).Once()

		pair, err := manager.Login(ctx, "test@example.com", "wrong")

		assert.Nil(t, pair)
		assert.ErrorIs(t, err, session.ErrMismatchedHashAndPassword)
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown identity never touches the store", func(t *testing.T) {
		manager, provider, _, store := newManager(t)

		provider.On("VerifyIdentity", ctx, "ghost@example.com", "password123").
			Return(nil, session.ErrIdentityNotFound).Once()

		pair, err := manager.Login(ctx, "ghost@example.com", "password123")

		assert.Nil(t, pair)
		assert.ErrorIs(t, err, session.ErrIdentityNotFound)
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("minting failure leaves no session state", func(t *testing.T) {
		manager, provider, tokens, store := newManager(t)

		principalID := uuid.New()
		identity := TestIdentity{id: principalID.String(), email: "test@example.com"}

		provider.On("VerifyIdentity", ctx, "test@example.com", "password123").
			Return(identity, nil).Once()
		tokens.On("SignAccessToken", identity).Return("", assert.AnError).Once()

		pair, err := manager.Login(ctx, "test@example.com", "password123")

		assert.Nil(t, pair)
		assert.Error(t, err)
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure fails the login", func(t *testing.T) {
		manager, provider, tokens, store := newManager(t)

		principalID := uuid.New()
		identity := TestIdentity{id: principalID.String(), email: "test@example.com"}

		provider.On("VerifyIdentity", ctx, "test@example.com", "password123").
			Return(identity, nil).Once()
		tokens.On("SignAccessToken", identity).Return("access.jwt", nil).Once()
		tokens.On("SignRefreshToken", principalID.String()).Return("refresh.jwt", nil).Once()
		store.On("Set", ctx, principalID, "refresh.jwt").Return(assert.AnError).Once()

		pair, err := manager.Login(ctx, "test@example.com", "password123")

		assert.Nil(t, pair)
		assert.Error(t, err)
	})
}

func TestManagerRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates the stored refresh token", func(t *testing.T) {
		manager, provider, tokens, store := newManager(t)

		principalID := uuid.New()
		identity := TestIdentity{id: principalID.String(), email: "test@example.com"}
		claims := TestClaims{subject: principalID.String(), use: session.TokenUseRefresh}

		tokens.On("ValidateRefresh", "refresh.one").Return(claims, nil).Once()
		provider.On("FindIdentityByIdentifier", ctx, principalID.String()).
			Return(identity, nil).Once()
		store.On("Get", ctx, principalID).Return("refresh.one", nil).Once()
		tokens.On("SignAccessToken", identity).Return("access.two", nil).Once()
		tokens.On("SignRefreshToken", principalID.String()).Return("refresh.two", nil).Once()
		store.On("Set", ctx, principalID, "refresh.two").Return(nil).Once()

		pair, err := manager.Refresh(ctx, "refresh.one")

		require.NoError(t, err)
		assert.Equal(t, "access.two", pair.AccessToken)
		assert.Equal(t, "refresh.two", pair.RefreshToken)
		store.AssertExpectations(t)
	})

	t.Run("empty token is rejected before validation", func(t *testing.T) {
		manager, _, tokens, _ := newManager(t)

		pair, err := manager.Refresh(ctx, "")

		assert.Nil(t, pair)
		assert.ErrorIs(t, err, session.ErrUnableToFindSession)
		tokens.AssertNotCalled(t, "ValidateRefresh", mock.Anything)
	})

	t.Run("replayed token is stale after rotation", func(t *testing.T) {
		manager, provider, tokens, store := newManager(t)

		principalID := uuid.New()
		identity := TestIdentity{id: principalID.String(), email: "test@example.com"}
		claims := TestClaims{subject: principalID.String(), use: session.TokenUseRefresh}

		tokens.On("ValidateRefresh", "refresh.one").Return(claims, nil).Once()
		provider.On("FindIdentityByIdentifier", ctx, principalID.String()).
			Return(identity, nil).Once()
		// the store already holds the rotated token
		store.On("Get", ctx, principalID).Return("refresh.two", nil).Once()

		pair, err := manager.Refresh(ctx, "refresh.one")

		assert.Nil(t, pair)
		assert.ErrorIs(t, err, session.ErrStaleRefreshToken)
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("token presented after logout is stale", func(t *testing.T) {
		manager, provider, tokens, store := newManager(t)

		principalID := uuid.New()
		identity := TestIdentity{id: principalID.String(), email: "test@example.com"}
		claims := TestClaims{subject: principalID.String(), use: session.TokenUseRefresh}

		tokens.On("ValidateRefresh", "refresh.one").Return(claims, nil).Once()
		provider.On("FindIdentityByIdentifier", ctx, principalID.String()).
			Return(identity, nil).Once()
		store.On("Get", ctx, principalID).Return("", nil).Once()

		pair, err := manager.Refresh(ctx, "refresh.one")

		assert.Nil(t, pair)
		assert.ErrorIs(t, err, session.ErrStaleRefreshToken)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		manager, _, tokens, store := newManager(t)

		tokens.On("ValidateRefresh", "refresh.expired").
			Return(nil, session.ErrTokenExpired).Once()

		pair, err := manager.Refresh(ctx, "refresh.expired")

		assert.Nil(t, pair)
		assert.True(t, session.IsTokenExpiredError(err))
		store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("deleted principal cannot refresh", func(t *testing.T) {
		manager, provider, tokens, store := newManager(t)

		principalID := uuid.New()
		claims := TestClaims{subject: principalID.String(), use: session.TokenUseRefresh}

		tokens.On("ValidateRefresh", "refresh.one").Return(claims, nil).Once()
		provider.On("FindIdentityByIdentifier", ctx, principalID.String()).
			Return(nil, session.ErrIdentityNotFound).Once()

		pair, err := manager.Refresh(ctx, "refresh.one")

		assert.Nil(t, pair)
		assert.ErrorIs(t, err, session.ErrIdentityNotFound)
		store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestManagerLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears the stored session", func(t *testing.T) {
		manager, _, _, store := newManager(t)

		principalID := uuid.New()
		store.On("Clear", ctx, principalID).Return(nil).Once()

		require.NoError(t, manager.Logout(ctx, principalID))
		store.AssertExpectations(t)
	})

	t.Run("logging out twice is not an error", func(t *testing.T) {
		manager, _, _, store := newManager(t)

		principalID := uuid.New()
		store.On("Clear", ctx, principalID).Return(nil).Twice()

		require.NoError(t, manager.Logout(ctx, principalID))
		require.NoError(t, manager.Logout(ctx, principalID))
	})
}

func TestManagerChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("rehashes the credential and keeps the session", func(t *testing.T) {
		manager, _, _, store := newManager(t)
		users := new(MockUsers)
		manager.WithUsers(users)

		principalID := uuid.New()
		user := &session.User{
			ID:           principalID,
			Email:        "test@example.com",
			PasswordHash: hashForTest(t, "old-password"),
		}

		users.On("GetByIdentifier", ctx, principalID.String()).Return(user, nil).Once()
		users.On("UpdatePasswordHash", ctx, principalID, mock.AnythingOfType("string")).
			Return(nil).Once()

		err := manager.ChangePassword(ctx, principalID, "old-password", "brand-new-password")

		require.NoError(t, err)
		users.AssertExpectations(t)
		store.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	})

	t.Run("wrong old password is rejected", func(t *testing.T) {
		manager, _, _, _ := newManager(t)
		users := new(MockUsers)
		manager.WithUsers(users)

		principalID := uuid.New()
		user := &session.User{
			ID:           principalID,
			Email:        "test@example.com",
			PasswordHash: hashForTest(t, "old-password"),
		}

		users.On("GetByIdentifier", ctx, principalID.String()).Return(user, nil).Once()

		err := manager.ChangePassword(ctx, principalID, "not-the-password", "brand-new-password")

		assert.ErrorIs(t, err, session.ErrMismatchedHashAndPassword)
		users.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty new password is rejected", func(t *testing.T) {
		manager, _, _, _ := newManager(t)
		users := new(MockUsers)
		manager.WithUsers(users)

		principalID := uuid.New()
		user := &session.User{
			ID:           principalID,
			Email:        "test@example.com",
			PasswordHash: hashForTest(t, "old-password"),
		}

		users.On("GetByIdentifier", ctx, principalID.String()).Return(user, nil).Once()

		err := manager.ChangePassword(ctx, principalID, "old-password", "")

		assert.ErrorIs(t, err, session.ErrNoEmptyString)
		users.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
	})
}

func hashForTest(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}
