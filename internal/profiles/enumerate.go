package profiles

import (
	"fmt"
	"math"

	"goelicit/domain/core"
	"goelicit/domain/profile"
)

// MaxEnumeration caps an uncapped enumeration so a misconfigured space cannot
// exhaust memory; pass maxProfiles to enumerate a prefix of a larger space
const MaxEnumeration = 1 << 20

// TotalCombinations is the product of level counts, saturating at math.MaxInt
func (g *Generator) TotalCombinations() int {
	total := 1
	for _, a := range g.attributes {
		n := len(a.Levels)
		if total > math.MaxInt/n {
			return math.MaxInt
		}
		total *= n
	}
	return total
}

// GenerateAllProfiles enumerates the Cartesian product of attribute levels
// with an index odometer: the first attribute varies slowest and the last
// fastest, so the order is attribute-declaration then level-declaration.
// maxProfiles > 0 returns that deterministic prefix.
func (g *Generator) GenerateAllProfiles(maxProfiles int) ([]profile.Profile, error) {
	total := g.TotalCombinations()
	n := total
	if maxProfiles > 0 && maxProfiles < n {
		n = maxProfiles
	}
	if n > MaxEnumeration {
		return nil, core.NewArgumentError("max_profiles",
			fmt.Sprintf("space has %d combinations; pass a cap of at most %d", total, MaxEnumeration))
	}

	digits := make([]int, len(g.attributes))
	out := make([]profile.Profile, 0, n)
	for len(out) < n {
		out = append(out, profile.NewProfile(g.space, digits))
		if !g.advance(digits) {
			break
		}
	}

	g.logger.Debug("generated %d of %d profiles", len(out), total)
	return out, nil
}

// advance increments the odometer in place; false once it wraps around
func (g *Generator) advance(digits []int) bool {
	for i := len(digits) - 1; i >= 0; i-- {
		digits[i]++
		if digits[i] < len(g.attributes[i].Levels) {
			return true
		}
		digits[i] = 0
	}
	return false
}

// ProfileFromLevelIDs builds a profile from attribute name -> level id
func (g *Generator) ProfileFromLevelIDs(levels map[string]string) (profile.Profile, error) {
	if len(levels) != len(g.attributes) {
		return profile.Profile{}, core.NewArgumentError("levels",
			fmt.Sprintf("expected %d attributes, got %d", len(g.attributes), len(levels)))
	}
	idx := make([]int, len(g.attributes))
	for i, a := range g.attributes {
		id, ok := levels[a.Name]
		if !ok {
			return profile.Profile{}, core.NewArgumentError("levels", fmt.Sprintf("attribute %q missing", a.Name))
		}
		idx[i] = a.LevelIndex(id)
		if idx[i] < 0 {
			return profile.Profile{}, core.NewArgumentError("levels", fmt.Sprintf("unknown level %q for attribute %q", id, a.Name))
		}
	}
	return profile.NewProfile(g.space, idx), nil
}

// ProfileFromKey parses a Profile.Key produced by this generator
func (g *Generator) ProfileFromKey(key string) (profile.Profile, error) {
	p, err := profile.ParseKey(g.space, key)
	if err != nil {
		return profile.Profile{}, core.NewArgumentError("profile", err.Error())
	}
	if err := g.checkProfile(p); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}
