package persistence

import "time"

// User represents a member account together with its credential hash.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	Role         string
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PasswordRecord tracks the age of a user's password.
type PasswordRecord struct {
	UserID       string
	LastChanged  time.Time
	ExpiryDate   time.Time
	WindowDays   int
	ReminderSent bool
	SuspendedAt  *time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID            string
	UserID        string
	Token         string
	Fingerprint   string
	ResetRequired bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	RevokedAt     *time.Time
}

// Event represents a scheduled class or session on a calendar day.
type Event struct {
	ID              string
	Day             string
	TimeLabel       string
	Location        string
	Capacity        int
	RegisteredUsers int
	Type            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
