package application

import (
	"time"

	"github.com/example/dojo-portal/internal/booking"
	"github.com/example/dojo-portal/internal/passwordpolicy"
	"github.com/example/dojo-portal/internal/recurrence"
)

// Role is the account class of a portal user.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// ResetDestination is where a restricted session is sent until the password is replaced.
const ResetDestination = "/password/reset"

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// Destination returns the landing page for the role after a completed sign-in.
func (r Role) Destination() string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleInstructor:
		return "/instructor/dashboard"
	default:
		return "/student/dashboard"
	}
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID        string
	Role          Role
	ResetRequired bool
}

// IsAdmin reports whether the principal administers the portal.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanManageEvents reports whether the principal may create or remove events.
func (p Principal) CanManageEvents() bool {
	return p.Role == RoleAdmin || p.Role == RoleInstructor
}

// User represents a portal account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        Role
	Disabled    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// AccountInput captures caller provided account attributes.
type AccountInput struct {
	Email       string
	DisplayName string
	Role        Role
	Password    string
}

// ProvisionAccountParams wraps the data required to create an account.
type ProvisionAccountParams struct {
	Principal Principal
	Input     AccountInput
}

// Session represents an authenticated session issued to a user.
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

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User        User
	Session     Session
	State       passwordpolicy.LoginState
	Status      passwordpolicy.Status
	Destination string
}

// RefreshSessionParams captures the data required to refresh an existing session.
type RefreshSessionParams struct {
	Token       string
	Fingerprint string
}

// RefreshSessionResult captures the outcome of rotating a session token.
type RefreshSessionResult struct {
	Session Session
}

// ChangePasswordParams captures a password change requested through a session.
type ChangePasswordParams struct {
	Token     string
	Principal Principal
	Password  string
}

// ChangePasswordResult reports where the session goes after a password change.
type ChangePasswordResult struct {
	Session     Session
	Destination string
}

// ExpiryReminder is the notice sent ahead of a password expiry.
type ExpiryReminder struct {
	UserID      string
	Email       string
	DisplayName string
	ExpiryDate  time.Time
	DaysLeft    int
}

// SweepReport summarises one run of the password sweep.
type SweepReport struct {
	Reminded  int
	Suspended int
	Failed    int
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Day      booking.Day
	Time     string
	Location string
	Capacity int
	Type     booking.SessionType
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// CreateSeriesParams wraps the data required to create a recurring class series.
type CreateSeriesParams struct {
	Principal Principal
	Input     EventInput
	Rule      recurrence.Rule
}

// SeriesResult lists the events created for a series and the days skipped
// because their slot was already taken.
type SeriesResult struct {
	Created []booking.Event
	Skipped []booking.Day
}
