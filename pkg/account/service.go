package account

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Service implements registration and login on top of a Store.
type Service struct {
	store Store
	cost  int
}

// NewService creates a credential service backed by the given store.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		cost:  bcrypt.DefaultCost,
	}
}

// Register creates a new account with a hashed password.
// Returns ErrMissingFields for empty inputs and ErrDuplicateEmail when the
// email is already taken. Uniqueness is enforced by the store, never by a
// prior lookup, so concurrent registrations of the same email cannot both
// succeed.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, error) {
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}

	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

// Authenticate verifies the email/password pair and returns the matching
// user. An unknown email and a wrong password both return
// ErrInvalidCredentials with no observable difference.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
