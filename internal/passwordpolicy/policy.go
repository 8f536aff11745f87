package passwordpolicy

import "time"

// Policy selects the password window for an account class and how far ahead
// of expiry members are warned.
type Policy struct {
	DefaultWindowDays int
	WindowDaysByClass map[string]int
	ReminderLeadDays  int
}

// WindowDays returns the window for class, falling back to the policy default
// and then to DefaultWindowDays.
func (p Policy) WindowDays(class string) int {
	if days, ok := p.WindowDaysByClass[class]; ok && days > 0 {
		return days
	}
	if p.DefaultWindowDays > 0 {
		return p.DefaultWindowDays
	}
	return DefaultWindowDays
}

// LeadDays returns the reminder lead in days, ReminderLeadDays when unset.
// The login warning and the sweep reminder both use it.
func (p Policy) LeadDays() int {
	if p.ReminderLeadDays > 0 {
		return p.ReminderLeadDays
	}
	return ReminderLeadDays
}

// ReminderLead returns LeadDays as a duration.
func (p Policy) ReminderLead() time.Duration {
	return time.Duration(p.LeadDays()) * Day
}
