package account

import "context"

// Store defines the persistence contract for user accounts.
//
// Implementations must enforce email uniqueness at the storage layer
// (constraint-level, not check-then-insert) and must implement the paid
// transition as a direct single-row update so that concurrent writers for
// the same user converge without a lost update.
type Store interface {
	// CreateUser persists a new user and returns it with ID and CreatedAt
	// assigned. Returns ErrDuplicateEmail if the email is already taken.
	CreateUser(ctx context.Context, user *User) (*User, error)

	// GetUserByEmail retrieves a user by email.
	// Returns ErrUserNotFound if no such user exists.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByID retrieves a user by id.
	// Returns ErrUserNotFound if no such user exists.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// SetPaidByID marks the user as paid. The update is idempotent: marking
	// an already-paid user succeeds and changes nothing.
	// Returns ErrUserNotFound if no such user exists.
	SetPaidByID(ctx context.Context, id int64) error

	// SetPaidByEmail marks the user with the given email as paid, with the
	// same idempotency contract as SetPaidByID.
	// Returns ErrUserNotFound if no such user exists.
	SetPaidByEmail(ctx context.Context, email string) error
}
