package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/dojo-portal/internal/application"
	"github.com/example/dojo-portal/internal/booking"
	"github.com/example/dojo-portal/internal/passwordpolicy"
	"github.com/example/dojo-portal/internal/persistence"
)

var (
	userCounter  uint64
	eventCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	Role         application.Role
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic student fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("Member %03d", idx),
		Role:         application.RoleStudent,
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserRole sets the account class.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserDisabled marks the account disabled.
func WithUserDisabled() UserOption {
	return func(f *UserFixture) {
		f.Disabled = true
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		Role:        f.Role,
		Disabled:    f.Disabled,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{
		User:         f.Application(),
		PasswordHash: f.PasswordHash,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		Role:         string(f.Role),
		PasswordHash: f.PasswordHash,
		Disabled:     f.Disabled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ------------------------ Password record fixtures ------------------------

// PasswordRecordFixture describes a password tracking row relative to a
// reference instant, which keeps expiry scenarios readable.
type PasswordRecordFixture struct {
	UserID       string
	LastChanged  time.Time
	WindowDays   int
	ReminderSent bool
	SuspendedAt  *time.Time
}

// PasswordRecordOption configures the generated password record fixture.
type PasswordRecordOption func(*PasswordRecordFixture)

// NewPasswordRecordFixture returns a record for userID changed at ReferenceTime
// with the default window.
func NewPasswordRecordFixture(userID string, opts ...PasswordRecordOption) PasswordRecordFixture {
	fixture := PasswordRecordFixture{
		UserID:      userID,
		LastChanged: referenceTime,
		WindowDays:  passwordpolicy.DefaultWindowDays,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// ExpiringIn places the expiry d after now, keeping the configured window.
func ExpiringIn(now time.Time, d time.Duration) PasswordRecordOption {
	return func(f *PasswordRecordFixture) {
		f.LastChanged = now.Add(d).Add(-time.Duration(f.WindowDays) * passwordpolicy.Day)
	}
}

// WithWindowDays overrides the password window.
func WithWindowDays(days int) PasswordRecordOption {
	return func(f *PasswordRecordFixture) {
		f.WindowDays = days
	}
}

// WithReminderSent flags the reminder for the current cycle.
func WithReminderSent() PasswordRecordOption {
	return func(f *PasswordRecordFixture) {
		f.ReminderSent = true
	}
}

// WithSuspendedAt locks the record at t.
func WithSuspendedAt(t time.Time) PasswordRecordOption {
	return func(f *PasswordRecordFixture) {
		at := t
		f.SuspendedAt = &at
	}
}

// ExpiryDate returns the instant the fixture's password expires.
func (f PasswordRecordFixture) ExpiryDate() time.Time {
	return f.LastChanged.Add(time.Duration(f.WindowDays) * passwordpolicy.Day)
}

// Domain returns the fixture as a passwordpolicy.Record.
func (f PasswordRecordFixture) Domain() passwordpolicy.Record {
	record := passwordpolicy.Record{
		UserID:       f.UserID,
		LastChanged:  f.LastChanged,
		ExpiryDate:   f.ExpiryDate(),
		WindowDays:   f.WindowDays,
		ReminderSent: f.ReminderSent,
		Lock:         passwordpolicy.Unlocked(),
	}
	if f.SuspendedAt != nil {
		record.Lock = passwordpolicy.LockedSince(*f.SuspendedAt)
	}
	return record
}

// Persistence returns the fixture as a persistence.PasswordRecord.
func (f PasswordRecordFixture) Persistence() persistence.PasswordRecord {
	var suspended *time.Time
	if f.SuspendedAt != nil {
		at := *f.SuspendedAt
		suspended = &at
	}
	return persistence.PasswordRecord{
		UserID:       f.UserID,
		LastChanged:  f.LastChanged,
		ExpiryDate:   f.ExpiryDate(),
		WindowDays:   f.WindowDays,
		ReminderSent: f.ReminderSent,
		SuspendedAt:  suspended,
		UpdatedAt:    f.LastChanged,
	}
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture represents a deterministic calendar event.
type EventFixture struct {
	ID              string
	Day             booking.Day
	Hour            int
	Location        string
	Capacity        int
	RegisteredUsers int
	Type            booking.SessionType
	CreatedAt       time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a special session at 7 PM on the reference day.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	fixture := EventFixture{
		ID:        fmt.Sprintf("event-%03d", idx),
		Day:       booking.DayIn(referenceTime, time.UTC),
		Hour:      19,
		Location:  "Main dojo",
		Capacity:  10,
		Type:      booking.SessionSpecial,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// OnDay schedules the event on day at hour.
func OnDay(day booking.Day, hour int) EventOption {
	return func(f *EventFixture) {
		f.Day = day
		f.Hour = hour
	}
}

// WithSessionType overrides the session type.
func WithSessionType(t booking.SessionType) EventOption {
	return func(f *EventFixture) {
		f.Type = t
	}
}

// WithRegistrations sets capacity and the current registration count.
func WithRegistrations(capacity, registered int) EventOption {
	return func(f *EventFixture) {
		f.Capacity = capacity
		f.RegisteredUsers = registered
	}
}

// Domain returns the fixture as a booking.Event.
func (f EventFixture) Domain() booking.Event {
	return booking.Event{
		ID:              f.ID,
		Day:             f.Day,
		Time:            booking.SlotLabel(f.Hour),
		Location:        f.Location,
		Capacity:        f.Capacity,
		RegisteredUsers: f.RegisteredUsers,
		Type:            f.Type,
	}
}

// Persistence returns the fixture as a persistence.Event.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		ID:              f.ID,
		Day:             f.Day.String(),
		TimeLabel:       booking.SlotLabel(f.Hour),
		Location:        f.Location,
		Capacity:        f.Capacity,
		RegisteredUsers: f.RegisteredUsers,
		Type:            string(f.Type),
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.CreatedAt,
	}
}
