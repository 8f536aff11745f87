package passwordpolicy

// LoginState is a state of the login gating flow.
type LoginState string

const (
	StateUnauthenticated         LoginState = "unauthenticated"
	StateAuthenticating          LoginState = "authenticating"
	StateActive                  LoginState = "active"
	StatePasswordExpiringWarning LoginState = "password_expiring_warning"
	StateForcedReset             LoginState = "forced_reset"
	StateRejected                LoginState = "rejected"
)

// Decide maps the status of an account whose credentials were accepted to
// the state the login flow enters next. Expired accounts are sent to a
// forced reset even before the sweep has suspended them. Passwords expiring
// within leadDays (ReminderLeadDays when not positive) raise the warning.
func Decide(status Status, leadDays int) LoginState {
	if leadDays <= 0 {
		leadDays = ReminderLeadDays
	}
	switch {
	case status.IsSuspended, status.IsExpired:
		return StateForcedReset
	case status.DaysUntilExpiry != nil && *status.DaysUntilExpiry <= leadDays:
		return StatePasswordExpiringWarning
	default:
		return StateActive
	}
}

// RequiresReset reports whether the state blocks every action except a
// password reset or sign-out.
func (s LoginState) RequiresReset() bool {
	return s == StateForcedReset
}

// Completed reports whether the state ends in a usable session.
func (s LoginState) Completed() bool {
	return s == StateActive || s == StatePasswordExpiringWarning
}
