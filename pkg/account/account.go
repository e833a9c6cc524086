// Package account defines the user account domain: the User record, the
// Store persistence contract, and the credential service used for
// registration and login.
package account

import "time"

// User represents a registered account.
//
// Paid is a monotonic flag: once true it is never reset to false by any
// code path in this system. It is a flattened projection of "has at least
// one approved payment ever".
type User struct {
	// ID is the surrogate key assigned by the store at creation.
	ID int64

	// Name is the display name supplied at registration.
	Name string

	// Email is unique across users and stored case-sensitively.
	Email string

	// PasswordHash is the bcrypt verifier for the password. The plaintext
	// is never stored.
	PasswordHash string

	// Paid reports whether an approved payment has ever been recorded.
	Paid bool

	// CreatedAt is set by the store at creation and never updated.
	CreatedAt time.Time
}
