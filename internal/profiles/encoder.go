package profiles

import (
	"fmt"
	"math"

	"goelicit/domain/core"
	"goelicit/domain/profile"
)

// coding is the closed set of per-parameter encoders: linearCoding or dummyCoding
type coding interface {
	contribution(level int) float64
}

// linearCoding contributes value/scale
type linearCoding struct {
	values []float64
	scale  float64
}

func (c linearCoding) contribution(level int) float64 {
	return c.values[level] / c.scale
}

// dummyCoding contributes 1 when the level differs from base, or, when level
// is set (>= 0), 1 only for that exact level
type dummyCoding struct {
	base  int
	level int
}

func (c dummyCoding) contribution(level int) float64 {
	if c.level >= 0 {
		if level == c.level {
			return 1
		}
		return 0
	}
	if level != c.base {
		return 1
	}
	return 0
}

// term binds one model parameter to its attribute and dimension
type term struct {
	attr   int
	dim    int
	coding coding
}

// referenceScale is the lowest level value whatever the declaration order; a
// zero or missing reference falls back to 1 so that 0-based scales encode
// unchanged
func referenceScale(a profile.AttributeSpec) float64 {
	lowest, found := 0.0, false
	for _, l := range a.Levels {
		if l.Value != nil && (!found || *l.Value < lowest) {
			lowest, found = *l.Value, true
		}
	}
	if !found || lowest == 0 {
		return 1
	}
	return math.Abs(lowest)
}

func (g *Generator) compile() error {
	if len(g.parameters) == 0 {
		return core.NewConfigError("model.parameters", "at least one parameter is required")
	}

	dimIndex := make(map[string]int)
	seen := make(map[string]struct{}, len(g.parameters))
	g.terms = make([]term, 0, len(g.parameters))
	g.dimensions = g.dimensions[:0]

	for i, p := range g.parameters {
		field := fmt.Sprintf("model.parameters[%d]", i)
		if p.Name == "" {
			return core.NewConfigError(field, "name is required")
		}
		field = fmt.Sprintf("parameter %q", p.Name)

		ai := g.attributeIndex(p.Attribute)
		if ai < 0 {
			return fmt.Errorf("%w: %q referenced by %s", core.ErrUnknownAttribute, p.Attribute, field)
		}
		attr := g.attributes[ai]

		key := p.Name + "\x00" + p.Attribute + "\x00" + p.LevelID
		if _, dup := seen[key]; dup {
			return core.NewConfigError(field, fmt.Sprintf("duplicate parameter for attribute %q", p.Attribute))
		}
		seen[key] = struct{}{}

		if math.IsNaN(p.Prior.Mean) || math.IsInf(p.Prior.Mean, 0) {
			return core.NewConfigError(field, "prior mean must be finite")
		}
		if !(p.Prior.SD > 0) || math.IsInf(p.Prior.SD, 0) {
			return core.NewConfigError(field, fmt.Sprintf("prior sd must be a positive finite number, got %g", p.Prior.SD))
		}

		c := p.Coding
		if c == "" {
			c = attr.Coding
		}
		var enc coding
		switch c {
		case profile.CodingLinear:
			if err := requireValues(attr); err != nil {
				return core.NewConfigError(field, err.Error())
			}
			values := make([]float64, len(attr.Levels))
			for j, l := range attr.Levels {
				values[j] = *l.Value
			}
			enc = linearCoding{values: values, scale: referenceScale(attr)}
		case profile.CodingDummy:
			d := dummyCoding{base: -1, level: -1}
			if p.LevelID != "" {
				d.level = attr.LevelIndex(p.LevelID)
				if d.level < 0 {
					return fmt.Errorf("%w: level_id %q of %s", core.ErrUnknownLevel, p.LevelID, field)
				}
				if p.LevelID == attr.BaseLevelID {
					return core.NewConfigError(field, fmt.Sprintf("level_id %q is the base level and would always encode to 0", p.LevelID))
				}
			} else {
				if attr.BaseLevelID == "" {
					return core.NewConfigError(field, fmt.Sprintf("dummy parameter on attribute %q needs level_id or an attribute base_level_id", attr.Name))
				}
				d.base = attr.LevelIndex(attr.BaseLevelID)
			}
			enc = d
		default:
			return core.NewConfigError(field, fmt.Sprintf("unknown coding %q", c))
		}

		dim, ok := dimIndex[p.Name]
		if !ok {
			dim = len(g.dimensions)
			dimIndex[p.Name] = dim
			g.dimensions = append(g.dimensions, p.Name)
		}
		g.terms = append(g.terms, term{attr: ai, dim: dim, coding: enc})
	}
	return nil
}

func (g *Generator) checkProfile(p profile.Profile) error {
	if p.Space() != g.space {
		return fmt.Errorf("%w: space %s, expected %s", core.ErrForeignProfile, p.Space().Short(), g.space.Short())
	}
	if p.NumAttributes() != len(g.attributes) {
		return fmt.Errorf("%w: %d attributes, expected %d", core.ErrForeignProfile, p.NumAttributes(), len(g.attributes))
	}
	for i, a := range g.attributes {
		if l := p.LevelIndex(i); l < 0 || l >= len(a.Levels) {
			return fmt.Errorf("%w: level %d out of range for attribute %q", core.ErrForeignProfile, l, a.Name)
		}
	}
	return nil
}

// EncodeProfile encodes a profile into a length-k feature vector. Parameters
// that share a dimension name add into the same component.
func (g *Generator) EncodeProfile(p profile.Profile) (profile.FeatureVector, error) {
	if err := g.checkProfile(p); err != nil {
		return nil, err
	}
	x := make(profile.FeatureVector, len(g.dimensions))
	for _, t := range g.terms {
		x[t.dim] += t.coding.contribution(p.LevelIndex(t.attr))
	}
	return x, nil
}
