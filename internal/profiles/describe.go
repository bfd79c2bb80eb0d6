package profiles

import (
	"strings"

	"goelicit/domain/profile"
)

// ProfileSeparator joins attribute descriptions in ProfileToString
const ProfileSeparator = " | "

// AttributeSummary is the per-attribute part of AttributeInfo
type AttributeSummary struct {
	Name      string                `json:"name"`
	Type      profile.AttributeType `json:"type"`
	NumLevels int                   `json:"num_levels"`
	Direction profile.Direction     `json:"direction,omitempty"`
}

// SpaceInfo summarizes the profile space for reporting
type SpaceInfo struct {
	NumAttributes     int                `json:"num_attributes"`
	TotalCombinations int                `json:"total_combinations"`
	NumDimensions     int                `json:"num_dimensions"`
	Dimensions        []string           `json:"dimensions"`
	Attributes        []AttributeSummary `json:"attributes"`
}

// AttributeInfo returns counts and per-attribute summaries
func (g *Generator) AttributeInfo() SpaceInfo {
	info := SpaceInfo{
		NumAttributes:     len(g.attributes),
		TotalCombinations: g.TotalCombinations(),
		NumDimensions:     len(g.dimensions),
		Dimensions:        g.Dimensions(),
		Attributes:        make([]AttributeSummary, len(g.attributes)),
	}
	for i, a := range g.attributes {
		info.Attributes[i] = AttributeSummary{
			Name:      a.Name,
			Type:      a.Type,
			NumLevels: len(a.Levels),
			Direction: g.directions[a.Name],
		}
	}
	return info
}

// DescribeProfile renders "Label: Level | Label: Level" in declaration order
func (g *Generator) DescribeProfile(p profile.Profile) (string, error) {
	if err := g.checkProfile(p); err != nil {
		return "", err
	}
	parts := make([]string, len(g.attributes))
	for i, a := range g.attributes {
		parts[i] = a.Label + ": " + a.Levels[p.LevelIndex(i)].Label
	}
	return strings.Join(parts, ProfileSeparator), nil
}

// ProfileToString is DescribeProfile for display paths. A profile from
// another space is logged at warn level and renders as an empty string.
func (g *Generator) ProfileToString(p profile.Profile) string {
	s, err := g.DescribeProfile(p)
	if err != nil {
		g.logger.Warn("describing profile %s: %v", p.Key(), err)
		return ""
	}
	return s
}

// RawValues maps attribute name to the profile's raw value: the level value
// for attributes whose levels carry one, the level index otherwise
func (g *Generator) RawValues(p profile.Profile) (map[string]float64, error) {
	if err := g.checkProfile(p); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(g.attributes))
	for i, a := range g.attributes {
		l := p.LevelIndex(i)
		if a.Type == profile.TypeOrdered && a.Levels[l].Value != nil {
			out[a.Name] = *a.Levels[l].Value
		} else {
			out[a.Name] = float64(l)
		}
	}
	return out, nil
}

// LevelIDs maps attribute name to the profile's level id
func (g *Generator) LevelIDs(p profile.Profile) (map[string]string, error) {
	if err := g.checkProfile(p); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(g.attributes))
	for i, a := range g.attributes {
		out[a.Name] = a.Levels[p.LevelIndex(i)].ID
	}
	return out, nil
}
