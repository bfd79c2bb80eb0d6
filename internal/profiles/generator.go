package profiles

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"goelicit/domain/core"
	"goelicit/domain/posterior"
	"goelicit/domain/profile"
	"goelicit/internal"
)

// Generator owns a validated profile space: the attributes, the parameter
// ontology and the compiled encoder. It is immutable after construction and
// safe for concurrent use.
type Generator struct {
	attributes []profile.AttributeSpec
	parameters []profile.ModelParameter
	directions map[string]profile.Direction

	dimensions []string // unique parameter names, first-appearance order
	terms      []term   // one per parameter, resolved at load time
	space      core.SpaceHash
	logger     *internal.Logger
}

// Load reads and validates an attribute configuration file (YAML or JSON)
func Load(path string, logger *internal.Logger) (*Generator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading attribute configuration %s: %w", path, err)
	}
	g, err := Parse(data, logger)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return g, nil
}

// Parse validates an in-memory attribute configuration document
func Parse(data []byte, logger *internal.Logger) (*Generator, error) {
	var cfg profile.SpaceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfigParse, err)
	}
	return New(cfg, logger)
}

// New validates a decoded configuration and compiles its encoder
func New(cfg profile.SpaceConfig, logger *internal.Logger) (*Generator, error) {
	logger = internal.OrDefault(logger).Named("profiles")

	if err := validateAttributes(cfg.Attributes); err != nil {
		return nil, err
	}
	directions, err := validateDirections(cfg.Attributes, cfg.AttributeDirections)
	if err != nil {
		return nil, err
	}

	g := &Generator{
		attributes: cloneAttributes(cfg.Attributes),
		parameters: append([]profile.ModelParameter(nil), cfg.Model.Parameters...),
		directions: directions,
		logger:     logger,
	}
	if err := g.compile(); err != nil {
		return nil, err
	}
	g.space = g.fingerprint()

	logger.Info("profile space loaded: %d attributes, %d parameters, %d dimensions, %d combinations (space %s)",
		len(g.attributes), len(g.parameters), len(g.dimensions), g.TotalCombinations(), g.space.Short())
	return g, nil
}

func validateAttributes(attrs []profile.AttributeSpec) error {
	if len(attrs) == 0 {
		return core.NewConfigError("attributes", "at least one attribute is required")
	}
	seen := make(map[string]struct{}, len(attrs))
	for i, a := range attrs {
		field := fmt.Sprintf("attributes[%d]", i)
		if strings.TrimSpace(a.Name) == "" {
			return core.NewConfigError(field, "name is required")
		}
		field = fmt.Sprintf("attribute %q", a.Name)
		if _, dup := seen[a.Name]; dup {
			return core.NewConfigError(field, "duplicate attribute name")
		}
		seen[a.Name] = struct{}{}

		switch a.Type {
		case profile.TypeOrdered, profile.TypeCategorical:
		default:
			return core.NewConfigError(field, fmt.Sprintf("unknown type %q", a.Type))
		}
		if len(a.Levels) == 0 {
			return core.NewConfigError(field, "at least one level is required")
		}
		levelIDs := make(map[string]struct{}, len(a.Levels))
		for _, l := range a.Levels {
			if l.ID == "" {
				return core.NewConfigError(field, "level id is required")
			}
			if _, dup := levelIDs[l.ID]; dup {
				return core.NewConfigError(field, fmt.Sprintf("duplicate level id %q", l.ID))
			}
			levelIDs[l.ID] = struct{}{}
			if l.Value != nil && (math.IsNaN(*l.Value) || math.IsInf(*l.Value, 0)) {
				return core.NewConfigError(field, fmt.Sprintf("level %q has a non-finite value", l.ID))
			}
		}

		switch a.Coding {
		case profile.CodingLinear:
			if err := requireValues(a); err != nil {
				return core.NewConfigError(field, err.Error())
			}
		case profile.CodingDummy:
			if a.BaseLevelID == "" {
				return core.NewConfigError(field, "dummy coding requires base_level_id")
			}
			if a.LevelIndex(a.BaseLevelID) < 0 {
				return fmt.Errorf("%w: base_level_id %q of %s", core.ErrUnknownLevel, a.BaseLevelID, field)
			}
		default:
			return core.NewConfigError(field, fmt.Sprintf("unknown coding %q", a.Coding))
		}
		if a.BaseLevelID != "" && a.LevelIndex(a.BaseLevelID) < 0 {
			return fmt.Errorf("%w: base_level_id %q of %s", core.ErrUnknownLevel, a.BaseLevelID, field)
		}
	}
	return nil
}

func requireValues(a profile.AttributeSpec) error {
	for _, l := range a.Levels {
		if l.Value == nil {
			return fmt.Errorf("linear coding requires a value for level %q", l.ID)
		}
	}
	return nil
}

func validateDirections(attrs []profile.AttributeSpec, raw map[string]profile.Direction) (map[string]profile.Direction, error) {
	known := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		known[a.Name] = struct{}{}
	}
	out := make(map[string]profile.Direction, len(raw))
	for name, dir := range raw {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("%w: attribute_directions references %q", core.ErrUnknownAttribute, name)
		}
		switch dir {
		case profile.DirectionPositive, profile.DirectionNegative:
			out[name] = dir
		default:
			return nil, core.NewConfigError("attribute_directions", fmt.Sprintf("%q has unknown direction %q", name, dir))
		}
	}
	return out, nil
}

func cloneAttributes(attrs []profile.AttributeSpec) []profile.AttributeSpec {
	out := make([]profile.AttributeSpec, len(attrs))
	for i, a := range attrs {
		out[i] = a
		out[i].Levels = make([]profile.Level, len(a.Levels))
		for j, l := range a.Levels {
			out[i].Levels[j] = l
			if l.Value != nil {
				v := *l.Value
				out[i].Levels[j].Value = &v
			}
		}
	}
	return out
}

func (g *Generator) attributeIndex(name string) int {
	for i, a := range g.attributes {
		if a.Name == name {
			return i
		}
	}
	return -1
}

func (g *Generator) fingerprint() core.SpaceHash {
	parts := make([]string, 0, len(g.attributes)+len(g.parameters))
	for _, a := range g.attributes {
		var b strings.Builder
		fmt.Fprintf(&b, "attr=%s/%s/%s/%s:", a.Name, a.Type, a.Coding, a.BaseLevelID)
		for _, l := range a.Levels {
			if l.Value != nil {
				fmt.Fprintf(&b, "%s=%g,", l.ID, *l.Value)
			} else {
				fmt.Fprintf(&b, "%s,", l.ID)
			}
		}
		parts = append(parts, b.String())
	}
	for _, p := range g.parameters {
		parts = append(parts, fmt.Sprintf("param=%s/%s/%s/%s", p.Name, p.Attribute, p.Coding, p.LevelID))
	}
	return core.ComputeSpaceHash(parts)
}

// Fingerprint identifies the profile space; batteries carry it so that a
// stored battery can be matched to the configuration that produced it
func (g *Generator) Fingerprint() core.SpaceHash {
	return g.space
}

// Attributes returns a copy of the attribute specifications
func (g *Generator) Attributes() []profile.AttributeSpec {
	return cloneAttributes(g.attributes)
}

// Parameters returns a copy of the model parameters
func (g *Generator) Parameters() []profile.ModelParameter {
	return append([]profile.ModelParameter(nil), g.parameters...)
}

// Dimensions returns the ontology dimension names in index order
func (g *Generator) Dimensions() []string {
	return append([]string(nil), g.dimensions...)
}

// NumDimensions is the ontology size k
func (g *Generator) NumDimensions() int {
	return len(g.dimensions)
}

// PriorMean returns the prior mean per dimension. When several parameters
// share a dimension the first declared prior wins.
func (g *Generator) PriorMean() []float64 {
	mean := make([]float64, len(g.dimensions))
	seen := make([]bool, len(g.dimensions))
	for i, p := range g.parameters {
		d := g.terms[i].dim
		if !seen[d] {
			mean[d] = p.Prior.Mean
			seen[d] = true
		}
	}
	return mean
}

// PriorVariances returns sd^2 per dimension, first declared prior wins
func (g *Generator) PriorVariances() []float64 {
	vars := make([]float64, len(g.dimensions))
	seen := make([]bool, len(g.dimensions))
	for i, p := range g.parameters {
		d := g.terms[i].dim
		if !seen[d] {
			vars[d] = p.Prior.SD * p.Prior.SD
			seen[d] = true
		}
	}
	return vars
}

// PriorPosterior is the belief before any vignette has been answered
func (g *Generator) PriorPosterior() posterior.Distribution {
	return posterior.NewDiagonal(g.dimensions, g.PriorMean(), g.PriorVariances())
}

// Direction returns the reporting direction of an attribute, if declared
func (g *Generator) Direction(attribute string) profile.Direction {
	return g.directions[attribute]
}
