// Package memory provides an in-memory implementation of the account.Store
// interface. This implementation is primarily intended for testing and
// development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mihaimyh/paygate/pkg/account"
)

// Store implements account.Store using in-memory maps guarded by a single
// mutex. The email index lives under the same lock as the user map, which
// gives the same all-or-nothing uniqueness guarantee as a database
// constraint.
type Store struct {
	mu      sync.RWMutex
	users   map[int64]*account.User
	byEmail map[string]int64
	nextID  int64
}

// New creates a new in-memory store adapter.
func New() *Store {
	return &Store{
		users:   make(map[int64]*account.User),
		byEmail: make(map[string]int64),
	}
}

// CreateUser implements account.Store.
func (s *Store) CreateUser(ctx context.Context, user *account.User) (*account.User, error) {
	if user == nil || user.Email == "" {
		return nil, fmt.Errorf("invalid user")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return nil, account.ErrDuplicateEmail
	}

	s.nextID++

	// Store a copy to prevent external mutations
	stored := *user
	stored.ID = s.nextID
	stored.Paid = false
	stored.CreatedAt = time.Now().UTC()

	s.users[stored.ID] = &stored
	s.byEmail[stored.Email] = stored.ID

	created := stored
	return &created, nil
}

// GetUserByEmail implements account.Store.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, account.ErrUserNotFound
	}

	userCopy := *s.users[id]
	return &userCopy, nil
}

// GetUserByID implements account.Store.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, account.ErrUserNotFound
	}

	userCopy := *user
	return &userCopy, nil
}

// SetPaidByID implements account.Store. The write is an unconditional set,
// not a read-modify-write, so concurrent callers for the same user all
// succeed and converge on paid=true.
func (s *Store) SetPaidByID(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return account.ErrUserNotFound
	}

	user.Paid = true
	return nil
}

// SetPaidByEmail implements account.Store.
func (s *Store) SetPaidByEmail(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return account.ErrUserNotFound
	}

	s.users[id].Paid = true
	return nil
}

// Clear removes all data (useful for testing).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[int64]*account.User)
	s.byEmail = make(map[string]int64)
	s.nextID = 0
}
