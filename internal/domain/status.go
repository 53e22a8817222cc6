package domain

// Status is the lifecycle status shared by users and organizations
type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusTerminated Status = "terminated"
	// StatusUnknown is only ever produced by failed lookups, never stored
	StatusUnknown Status = "unknown"
)

// Valid reports whether s is a storable status value
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusTerminated:
		return true
	}
	return false
}

// IsActive reports whether s is the active status
func (s Status) IsActive() bool {
	return s == StatusActive
}
