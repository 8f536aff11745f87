package persistence

import (
	"context"
	"time"
)

// UserRepository exposes account and credential storage.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

// PasswordRecordRepository stores password tracking rows keyed by user id.
type PasswordRecordRepository interface {
	InsertPasswordRecord(ctx context.Context, record PasswordRecord) error
	GetPasswordRecord(ctx context.Context, userID string) (PasswordRecord, error)
	SavePasswordRecord(ctx context.Context, record PasswordRecord) error
	// ListReminderCandidates returns unsuspended, unreminded records whose
	// expiry falls within [from, to].
	ListReminderCandidates(ctx context.Context, from, to time.Time) ([]PasswordRecord, error)
	// ListSuspensionCandidates returns unsuspended records that expired before reference.
	ListSuspensionCandidates(ctx context.Context, reference time.Time) ([]PasswordRecord, error)
	// MarkReminderSent flags the reminder for the cycle ending at expiry. It
	// reports false when the row was already reminded or has since rotated.
	MarkReminderSent(ctx context.Context, userID string, expiry, at time.Time) (bool, error)
	// Suspend locks the record if it is still unsuspended and expired before at.
	Suspend(ctx context.Context, userID string, at time.Time) (bool, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// EventFilter narrows event queries by day range (inclusive YYYY-MM-DD keys).
type EventFilter struct {
	FromDay string
	ToDay   string
}

// EventRepository stores scheduled events and their registration counters.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
	// IncrementRegistrations adds one registration while the count stays
	// below ceiling, returning ErrCapacityExceeded otherwise.
	IncrementRegistrations(ctx context.Context, id string, ceiling int, updatedAt time.Time) (Event, error)
}
