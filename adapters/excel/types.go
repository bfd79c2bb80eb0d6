package excel

import (
	"goelicit/domain/design"
	"goelicit/domain/profile"
	"goelicit/ports"
)

const (
	BatterySheet = "Battery"
	SummarySheet = "Summary"
)

// Fixed leading columns of the battery sheet; one "d:<dimension>" column per
// ontology dimension follows
var batteryHeaders = []string{"round", "phase", "profile_a", "profile_b", "key_a", "key_b", "determinant", "log_det_gain"}

// RawRowData represents a row of raw sheet data as header -> cell
type RawRowData map[string]string

// SheetData is a sheet read as headers plus string rows
type SheetData struct {
	Headers []string
	Rows    []RawRowData
}

// BatteryRow is one vignette read back from an exported battery
type BatteryRow struct {
	Round int
	Phase design.Phase
	KeyA  string
	KeyB  string
}

// ProfileSpace is what the writer needs to render a battery
type ProfileSpace interface {
	ports.ProfileEncoder
	DescribeProfile(p profile.Profile) (string, error)
	Dimensions() []string
}

// ProfileResolver turns exported profile keys back into profiles
type ProfileResolver interface {
	ProfileFromKey(key string) (profile.Profile, error)
}
