package session

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// repoSessionStore keeps the refresh token on the account row itself; there
// is no separate session table. Writes are single-statement updates with
// last-writer-wins semantics per principal.
type repoSessionStore struct {
	users Users
}

// NewSessionStore returns a SessionStore backed by the users repository.
func NewSessionStore(users Users) SessionStore {
	return &repoSessionStore{users: users}
}

func (s *repoSessionStore) Get(ctx context.Context, principalID uuid.UUID) (string, error) {
	token, err := s.users.CurrentRefreshToken(ctx, principalID)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", ErrIdentityNotFound
		}
		return "", WrapPersistenceError(err, "session.get")
	}
	return token, nil
}

func (s *repoSessionStore) Set(ctx context.Context, principalID uuid.UUID, token string) error {
	if token == "" {
		return errors.New("refresh token must not be empty", errors.CategoryValidation)
	}

	if err := s.users.StoreRefreshToken(ctx, principalID, token); err != nil {
		if errors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return WrapPersistenceError(err, "session.set")
	}
	return nil
}

func (s *repoSessionStore) Clear(ctx context.Context, principalID uuid.UUID) error {
	// Clearing an already absent token is not an error; clearing for a
	// principal that no longer exists is.
	if err := s.users.ClearRefreshToken(ctx, principalID); err != nil {
		if errors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return WrapPersistenceError(err, "session.clear")
	}
	return nil
}

var _ SessionStore = (*repoSessionStore)(nil)
