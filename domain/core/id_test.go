package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseBatteryID tests battery ID parsing
func TestParseBatteryID(t *testing.T) {
	tests := []struct {
		input    string
		expected BatteryID
		hasError bool
	}{
		{"battery-1", BatteryID("battery-1"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseBatteryID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

func TestComputeSpaceHashIsOrderSensitive(t *testing.T) {
	a := ComputeSpaceHash([]string{"wage", "flexibility"})
	b := ComputeSpaceHash([]string{"flexibility", "wage"})
	if a == b {
		t.Error("Expected different hashes for different declaration orders")
	}
	if a != ComputeSpaceHash([]string{"wage", "flexibility"}) {
		t.Error("Expected identical hashes for identical input")
	}
	if len(a.Short()) != 12 {
		t.Errorf("Expected 12-char short hash, got %q", a.Short())
	}
}

func TestErrorHelpers(t *testing.T) {
	if !IsNotFoundError(ErrConfigNotFound) {
		t.Error("config-not-found should be a not-found error")
	}
	if !IsConfigError(NewConfigError("attributes[0]", "empty name")) {
		t.Error("expected config error")
	}
	if !IsDimensionError(NewDimensionError("prior mean", 3, 7)) {
		t.Error("expected dimension error")
	}
	if !errors.Is(NewArgumentError("top_k", "must be positive"), ErrInvalidArgument) {
		t.Error("expected invalid argument")
	}
	if !IsInputError(NewPosteriorError("asymmetric covariance")) {
		t.Error("expected input error")
	}
}
