package core

import (
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// BatteryID identifies a planned battery
type BatteryID ID

func (id BatteryID) String() string { return ID(id).String() }

// NewBatteryID creates a fresh battery identifier
func NewBatteryID() BatteryID {
	return BatteryID(NewID())
}

// ParseBatteryID parses a string into BatteryID
func ParseBatteryID(s string) (BatteryID, error) {
	if strings.TrimSpace(s) == "" {
		return "", NewArgumentError("battery_id", "cannot be empty")
	}
	return BatteryID(s), nil
}
