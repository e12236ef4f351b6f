package enums

import "fmt"

// SessionStatus tracks where a terminal transaction sits in its lifecycle.
type SessionStatus string

const (
	SessionStatusEmpty         SessionStatus = "empty"
	SessionStatusBuilding      SessionStatus = "building"
	SessionStatusCheckingOut   SessionStatus = "checking_out"
	SessionStatusCompleted     SessionStatus = "completed"
	SessionStatusQueuedOffline SessionStatus = "queued_offline"
	SessionStatusHeld          SessionStatus = "held"
)

var validSessionStatuses = []SessionStatus{
	SessionStatusEmpty,
	SessionStatusBuilding,
	SessionStatusCheckingOut,
	SessionStatusCompleted,
	SessionStatusQueuedOffline,
	SessionStatusHeld,
}

// String implements fmt.Stringer.
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SessionStatus.
func (s SessionStatus) IsValid() bool {
	for _, candidate := range validSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSessionStatus converts raw input into a SessionStatus.
func ParseSessionStatus(value string) (SessionStatus, error) {
	for _, candidate := range validSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session status %q", value)
}
