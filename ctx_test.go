package session_test

import (
	"context"
	"testing"

	session "github.com/goliatone/go-session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContext(t *testing.T) {
	user := &session.User{
		ID:       uuid.New(),
		Username: "testuser",
	}

	ctx := session.WithContext(context.Background(), user)

	got, ok := session.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, user, got)
}

func TestUserContextMissing(t *testing.T) {
	got, ok := session.FromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestClaimsContext(t *testing.T) {
	claims := TestClaims{subject: uuid.NewString(), use: session.TokenUseAccess}

	ctx := session.WithClaimsContext(context.Background(), claims)

	got, ok := session.GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, claims.subject, got.Subject())
	assert.Equal(t, session.TokenUseAccess, got.Use())
}

func TestClaimsContextMissing(t *testing.T) {
	got, ok := session.GetClaims(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
}
