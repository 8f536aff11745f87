package passwordpolicy

import "time"

// Status answers whether an account can log in unimpeded.
type Status struct {
	Tracked         bool
	IsExpired       bool
	IsSuspended     bool
	DaysUntilExpiry *int
	LastChanged     *time.Time
	ExpiryDate      *time.Time
}

// NeutralStatus is the unrestricted status of an account without a record.
func NeutralStatus() Status {
	return Status{}
}

// Status computes the status of r at now. Suspension is read from the record,
// never recomputed.
func (r Record) Status(now time.Time) Status {
	days := DaysUntil(r.ExpiryDate, now)
	lastChanged := r.LastChanged
	expiry := r.ExpiryDate
	return Status{
		Tracked:         true,
		IsExpired:       r.Expired(now),
		IsSuspended:     r.Lock.IsLocked(),
		DaysUntilExpiry: &days,
		LastChanged:     &lastChanged,
		ExpiryDate:      &expiry,
	}
}
