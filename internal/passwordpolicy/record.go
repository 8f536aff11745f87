// Package passwordpolicy models password age tracking: expiry windows, the
// one-time expiry reminder, sticky suspension, and the login gate derived from them.
package passwordpolicy

import (
	"errors"
	"math"
	"time"
)

const (
	// Day is the unit used for policy windows and day counts.
	Day = 24 * time.Hour
	// DefaultWindowDays is the password lifetime of a standard account.
	DefaultWindowDays = 30
	// ReminderLeadDays is how far ahead of expiry the reminder is sent and the
	// login warning is shown.
	ReminderLeadDays = 7
)

// ErrInvalidWindow indicates a non-positive policy window.
var ErrInvalidWindow = errors.New("passwordpolicy: window must be positive")

// Lock is the suspension sub-state of a record: either unlocked, or locked
// since a point in time. Only Record.Rotate unlocks a locked record.
type Lock struct {
	since  time.Time
	locked bool
}

// Unlocked returns the unlocked state.
func Unlocked() Lock { return Lock{} }

// LockedSince returns a lock that took effect at t.
func LockedSince(t time.Time) Lock { return Lock{since: t, locked: true} }

// IsLocked reports whether the account is suspended.
func (l Lock) IsLocked() bool { return l.locked }

// Since returns when the lock took effect.
func (l Lock) Since() (time.Time, bool) { return l.since, l.locked }

// Record is the per-account password tracking row.
type Record struct {
	UserID       string
	LastChanged  time.Time
	ExpiryDate   time.Time
	WindowDays   int
	ReminderSent bool
	Lock         Lock
}

// NewRecord starts tracking a password set at now. A non-positive windowDays
// selects DefaultWindowDays.
func NewRecord(userID string, now time.Time, windowDays int) Record {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return Record{
		UserID:      userID,
		LastChanged: now,
		ExpiryDate:  now.Add(time.Duration(windowDays) * Day),
		WindowDays:  windowDays,
		Lock:        Unlocked(),
	}
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	if r.WindowDays <= 0 || !r.ExpiryDate.After(r.LastChanged) {
		return ErrInvalidWindow
	}
	return nil
}

// Rotate returns the record after a successful password change at now: a
// fresh expiry cycle, no reminder, and no suspension.
func (r Record) Rotate(now time.Time) Record {
	return NewRecord(r.UserID, now, r.WindowDays)
}

// Expired reports whether now is past the expiry date.
func (r Record) Expired(now time.Time) bool {
	return now.After(r.ExpiryDate)
}

// ReminderDue reports whether the sweep should send the expiry reminder:
// not yet reminded, not suspended, and now <= expiry <= now+lead.
func (r Record) ReminderDue(now time.Time, lead time.Duration) bool {
	if r.ReminderSent || r.Lock.IsLocked() {
		return false
	}
	return !r.ExpiryDate.Before(now) && !r.ExpiryDate.After(now.Add(lead))
}

// MarkReminded records that the reminder for the current cycle was sent.
func (r Record) MarkReminded() Record {
	r.ReminderSent = true
	return r
}

// SuspensionDue reports whether the sweep should suspend the account.
func (r Record) SuspensionDue(now time.Time) bool {
	return !r.Lock.IsLocked() && r.ExpiryDate.Before(now)
}

// Suspend locks an expired record. It reports false and returns the record
// unchanged when the record is already locked or not yet expired.
func (r Record) Suspend(now time.Time) (Record, bool) {
	if r.Lock.IsLocked() || !r.Expired(now) {
		return r, false
	}
	r.Lock = LockedSince(now)
	return r, true
}

// DaysUntil returns ceil((expiry - now) / 1 day); negative once expired.
func DaysUntil(expiry, now time.Time) int {
	return int(math.Ceil(float64(expiry.Sub(now)) / float64(Day)))
}
