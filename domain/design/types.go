package design

import (
	"fmt"
	"time"

	"goelicit/domain/core"
	"goelicit/domain/profile"
)

// Phase places a static vignette in the conversation
type Phase string

const (
	PhaseBeginning Phase = "beginning"
	PhaseEnd       Phase = "end"
)

// Choice is the respondent's answer to a vignette
type Choice string

const (
	ChoiceA Choice = "a"
	ChoiceB Choice = "b"
)

// ParseChoice validates a raw choice string
func ParseChoice(s string) (Choice, error) {
	switch Choice(s) {
	case ChoiceA, ChoiceB:
		return Choice(s), nil
	}
	return "", core.NewArgumentError("choice", fmt.Sprintf("expected %q or %q, got %q", ChoiceA, ChoiceB, s))
}

// Vignette is a forced-choice comparison between two job profiles
type Vignette struct {
	A profile.Profile
	B profile.Profile
}

// Key is an order-independent identity for the pair
func (v Vignette) Key() string {
	a, b := v.A.Key(), v.B.Key()
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// Selected is a vignette chosen by the greedy optimizer together with the
// determinant of the running information matrix right after it was added
type Selected struct {
	Vignette
	Round       int     `json:"round"`
	Determinant float64 `json:"determinant"`
	LogDetGain  float64 `json:"log_det_gain"`
}

// Stats summarizes the information accumulated by a vignette battery
// INVARIANTS:
// - DEfficiency == FIMDeterminant^(1/k)
// - ConditionNumber == MaxEigenvalue / MinEigenvalue
// - every eigenvalue > 0 (prior precision keeps the matrix positive definite)
type Stats struct {
	NumVignettes    int       `json:"num_vignettes"`
	FIMDeterminant  float64   `json:"fim_determinant"`
	DEfficiency     float64   `json:"d_efficiency"`
	Eigenvalues     []float64 `json:"eigenvalues"`
	MinEigenvalue   float64   `json:"min_eigenvalue"`
	MaxEigenvalue   float64   `json:"max_eigenvalue"`
	ConditionNumber float64   `json:"condition_number"`
}

// Battery is a fully planned static question set
type Battery struct {
	ID          core.BatteryID `json:"id"`
	Fingerprint core.SpaceHash `json:"fingerprint"`
	Beginning   []Selected     `json:"beginning"`
	End         []Selected     `json:"end"`
	Stats       *Stats         `json:"stats,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	// Degenerate is set when a round could only add a zero-information pair,
	// so the determinant trace is non-decreasing rather than strictly increasing
	Degenerate bool `json:"degenerate"`
}

// All returns the battery's vignettes in presentation order
func (b *Battery) All() []Vignette {
	out := make([]Vignette, 0, len(b.Beginning)+len(b.End))
	for _, s := range b.Beginning {
		out = append(out, s.Vignette)
	}
	for _, s := range b.End {
		out = append(out, s.Vignette)
	}
	return out
}

// Len returns the number of vignettes in the battery
func (b *Battery) Len() int {
	return len(b.Beginning) + len(b.End)
}
