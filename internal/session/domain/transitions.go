package domain

// The lifecycle forms SCHEDULED -> CONFIRMED -> IN_PROGRESS -> COMPLETED with
// CANCELLED and NO_SHOW reachable from any live state. CANCELLED and NO_SHOW
// are terminal; COMPLETED may still move to another state as a correction,
// which reverses its hour commitment.

var validStatuses = map[SessionStatus]bool{
	SessionStatusScheduled:  true,
	SessionStatusConfirmed:  true,
	SessionStatusInProgress: true,
	SessionStatusCompleted:  true,
	SessionStatusCancelled:  true,
	SessionStatusNoShow:     true,
}

var terminalStatuses = map[SessionStatus]bool{
	SessionStatusCancelled: true,
	SessionStatusNoShow:    true,
}

// ValidStatus reports whether the value names a known lifecycle state.
func ValidStatus(status SessionStatus) bool {
	return validStatuses[status]
}

// CanTransition reports whether old -> new is a legal lifecycle move.
// Same-state transitions are rejected so a repeated COMPLETED cannot commit
// hours twice.
func CanTransition(old, new SessionStatus) bool {
	if !validStatuses[old] || !validStatuses[new] {
		return false
	}
	if old == new {
		return false
	}
	if terminalStatuses[old] {
		return false
	}
	return true
}

// HourDelta is the signed effect a transition has on the owning enrollment's
// consumed hours: entering COMPLETED commits the session's duration, leaving
// COMPLETED reverses it, everything else is neutral.
func HourDelta(old, new SessionStatus, durationHours int) int {
	switch {
	case new == SessionStatusCompleted && old != SessionStatusCompleted:
		return durationHours
	case old == SessionStatusCompleted && new != SessionStatusCompleted:
		return -durationHours
	default:
		return 0
	}
}
