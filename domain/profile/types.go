package profile

import (
	"fmt"
	"strconv"
	"strings"

	"goelicit/domain/core"
)

// AttributeType describes how the levels of an attribute relate to each other
type AttributeType string

const (
	TypeOrdered     AttributeType = "ordered"
	TypeCategorical AttributeType = "categorical"
)

// Coding describes how an attribute is projected into feature space
type Coding string

const (
	CodingLinear Coding = "linear"
	CodingDummy  Coding = "dummy"
)

// Direction is reporting metadata only; it never affects encoding
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
)

// Canonical preference dimensions observed in deployed configurations
const (
	DimensionFinancial         = "financial"
	DimensionWorkEnvironment   = "work_environment"
	DimensionWorkLifeBalance   = "work_life_balance"
	DimensionJobSecurity       = "job_security"
	DimensionCareerAdvancement = "career_advancement"
	DimensionTaskPreferences   = "task_preferences"
	DimensionValuesCulture     = "values_culture"
)

// CanonicalDimensions returns the seven-dimension ontology in canonical order
func CanonicalDimensions() []string {
	return []string{
		DimensionFinancial,
		DimensionWorkEnvironment,
		DimensionWorkLifeBalance,
		DimensionJobSecurity,
		DimensionCareerAdvancement,
		DimensionTaskPreferences,
		DimensionValuesCulture,
	}
}

// Level is one selectable value of an attribute
type Level struct {
	ID    string   `json:"id" yaml:"id"`
	Label string   `json:"label" yaml:"label"`
	Value *float64 `json:"value,omitempty" yaml:"value,omitempty"` // required for linear coding
}

// AttributeSpec defines one job-profile attribute and its levels
type AttributeSpec struct {
	Name        string        `json:"name" yaml:"name"`
	Label       string        `json:"label" yaml:"label"`
	Type        AttributeType `json:"type" yaml:"type"`
	Coding      Coding        `json:"coding" yaml:"coding"`
	Levels      []Level       `json:"levels" yaml:"levels"`
	BaseLevelID string        `json:"base_level_id,omitempty" yaml:"base_level_id,omitempty"`
}

// LevelIndex returns the position of the level with the given id, or -1
func (a AttributeSpec) LevelIndex(id string) int {
	for i, level := range a.Levels {
		if level.ID == id {
			return i
		}
	}
	return -1
}

// Prior is the prior belief about a single preference weight
type Prior struct {
	Distribution string  `json:"distribution" yaml:"distribution"`
	Mean         float64 `json:"mean" yaml:"mean"`
	SD           float64 `json:"sd" yaml:"sd"`
}

// ModelParameter is one preference dimension of the choice model.
// The ordered list of parameters is the dimension ontology.
type ModelParameter struct {
	Name      string `json:"name" yaml:"name"`
	Attribute string `json:"attribute" yaml:"attribute"`
	Coding    Coding `json:"coding" yaml:"coding"`
	LevelID   string `json:"level_id,omitempty" yaml:"level_id,omitempty"`
	Prior     Prior  `json:"prior" yaml:"prior"`
}

// ModelConfig groups the model parameter list
type ModelConfig struct {
	Parameters []ModelParameter `json:"parameters" yaml:"parameters"`
}

// SpaceConfig is the attribute configuration document
type SpaceConfig struct {
	Attributes          []AttributeSpec      `json:"attributes" yaml:"attributes"`
	Model               ModelConfig          `json:"model" yaml:"model"`
	AttributeDirections map[string]Direction `json:"attribute_directions" yaml:"attribute_directions"`
}

// FeatureVector is a profile encoded against the parameter ontology (length k)
type FeatureVector []float64

// Sub returns the element-wise difference v - other
func (v FeatureVector) Sub(other FeatureVector) FeatureVector {
	out := make(FeatureVector, len(v))
	for i := range v {
		out[i] = v[i] - other[i]
	}
	return out
}

// IsZero reports whether every component is exactly zero
func (v FeatureVector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Profile is one combination of attribute levels. Profiles are immutable value
// objects created by the generator; levels holds one level index per attribute
// in declaration order.
type Profile struct {
	space  core.SpaceHash
	levels []int
}

// NewProfile builds a profile for the given space from per-attribute level indices
func NewProfile(space core.SpaceHash, levels []int) Profile {
	cp := make([]int, len(levels))
	copy(cp, levels)
	return Profile{space: space, levels: cp}
}

// Space returns the fingerprint of the profile space this profile belongs to
func (p Profile) Space() core.SpaceHash {
	return p.space
}

// NumAttributes returns the number of attributes set on the profile
func (p Profile) NumAttributes() int {
	return len(p.levels)
}

// LevelIndex returns the level index for the attribute at position i
func (p Profile) LevelIndex(i int) int {
	return p.levels[i]
}

// Levels returns a copy of the per-attribute level indices
func (p Profile) Levels() []int {
	cp := make([]int, len(p.levels))
	copy(cp, p.levels)
	return cp
}

// Key is a stable textual identity for the profile within its space
func (p Profile) Key() string {
	parts := make([]string, len(p.levels))
	for i, l := range p.levels {
		parts[i] = strconv.Itoa(l)
	}
	return strings.Join(parts, "-")
}

// Equal reports whether two profiles share a space and every level
func (p Profile) Equal(other Profile) bool {
	if p.space != other.space || len(p.levels) != len(other.levels) {
		return false
	}
	for i := range p.levels {
		if p.levels[i] != other.levels[i] {
			return false
		}
	}
	return true
}

// ParseKey reverses Key for a profile of the given space
func ParseKey(space core.SpaceHash, key string) (Profile, error) {
	if strings.TrimSpace(key) == "" {
		return Profile{}, fmt.Errorf("profile key cannot be empty")
	}
	parts := strings.Split(key, "-")
	levels := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Profile{}, fmt.Errorf("invalid profile key %q", key)
		}
		levels[i] = n
	}
	return Profile{space: space, levels: levels}, nil
}
