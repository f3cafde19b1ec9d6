package models

import "time"

// User is a known player, keyed by their external (Telegram) identity.
// Users are created lazily the first time they are seen in a payment or
// info request; there is no registration flow.
type User struct {
	// ID is the external user identity.
	ID int64

	// Username is the user's handle, may be empty.
	Username string

	// FirstName is the user's display name.
	FirstName string

	// LastName may be empty.
	LastName string

	// CreatedAt is when the user was first seen.
	CreatedAt time.Time
}
