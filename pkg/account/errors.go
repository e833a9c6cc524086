package account

import "errors"

var (
	// ErrDuplicateEmail is returned when a registration collides with an
	// existing account's email.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrUserNotFound is returned when no account matches the given id or email.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned for a failed login. It deliberately
	// covers both an unknown email and a wrong password so responses cannot
	// be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMissingFields is returned when a required registration or login
	// field is empty.
	ErrMissingFields = errors.New("missing required fields")
)
