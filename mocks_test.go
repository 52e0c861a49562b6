package session_test

import (
	"context"

	session "github.com/goliatone/go-session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// TestIdentity is a simple implementation of the Identity interface
type TestIdentity struct {
	id       string
	username string
	email    string
	fullName string
}

func (t TestIdentity) ID() string       { return t.id }
func (t TestIdentity) Username() string { return t.username }
func (t TestIdentity) Email() string    { return t.email }
func (t TestIdentity) FullName() string { return t.fullName }

// MockIdentityProvider implements session.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (session.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(session.Identity), args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (session.Identity, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(session.Identity), args.Error(1)
}

// MockSessionStore implements session.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Get(ctx context.Context, principalID uuid.UUID) (string, error) {
	args := m.Called(ctx, principalID)
	return args.String(0), args.Error(1)
}

func (m *MockSessionStore) Set(ctx context.Context, principalID uuid.UUID, token string) error {
	args := m.Called(ctx, principalID, token)
	return args.Error(0)
}

func (m *MockSessionStore) Clear(ctx context.Context, principalID uuid.UUID) error {
	args := m.Called(ctx, principalID)
	return args.Error(0)
}

// MockTokenService implements session.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) SignAccessToken(identity session.Identity) (string, error) {
	args := m.Called(identity)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) SignRefreshToken(subject string) (string, error) {
	args := m.Called(subject)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) ValidateAccess(token string) (session.AuthClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(session.AuthClaims), args.Error(1)
}

func (m *MockTokenService) ValidateRefresh(token string) (session.AuthClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(session.AuthClaims), args.Error(1)
}

// MockSessionManager implements session.SessionManager
type MockSessionManager struct {
	mock.Mock
}

func (m *MockSessionManager) Login(ctx context.Context, identifier, password string) (*session.TokenPair, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.TokenPair), args.Error(1)
}

func (m *MockSessionManager) Refresh(ctx context.Context, refreshToken string) (*session.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.TokenPair), args.Error(1)
}

func (m *MockSessionManager) Logout(ctx context.Context, principalID uuid.UUID) error {
	args := m.Called(ctx, principalID)
	return args.Error(0)
}

func (m *MockSessionManager) ChangePassword(ctx context.Context, principalID uuid.UUID, oldPassword, newPassword string) error {
	args := m.Called(ctx, principalID, oldPassword, newPassword)
	return args.Error(0)
}

// MockLoginPayload implements session.LoginPayload
type MockLoginPayload struct {
	Identifier string
	Password   string
}

func (m MockLoginPayload) GetIdentifier() string {
	return m.Identifier
}

func (m MockLoginPayload) GetPassword() string {
	return m.Password
}

type testConfigValues struct {
	accessSecret  string
	refreshSecret string
	accessTTL     string
	refreshTTL    string
}

func testConfig(overrides ...testConfigValues) *session.BaseConfig {
	values := testConfigValues{
		accessSecret:  "access-secret-0123456789",
		refreshSecret: "refresh-secret-0123456789",
		accessTTL:     "1h",
		refreshTTL:    "240h",
	}
	if len(overrides) > 0 {
		values = overrides[0]
	}

	env := map[string]string{
		session.EnvAccessTokenSecret:  values.accessSecret,
		session.EnvRefreshTokenSecret: values.refreshSecret,
		session.EnvAccessTokenExpiry:  values.accessTTL,
		session.EnvRefreshTokenExpiry: values.refreshTTL,
	}

	cfg, err := session.LoadConfig(func(key string) string {
		return env[key]
	})
	if err != nil {
		panic(err)
	}
	return cfg
}
