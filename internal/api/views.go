package api

import (
	"fmt"
	"time"

	"goelicit/app"
	"goelicit/domain/core"
	"goelicit/domain/design"
	"goelicit/domain/posterior"
	"goelicit/domain/profile"
	"goelicit/internal/adaptive"
	"goelicit/internal/profiles"
)

// ProfileView is the wire form of a profile
type ProfileView struct {
	Key         string            `json:"key"`
	Levels      map[string]string `json:"levels"`
	Description string            `json:"description"`
}

// VignetteView is the wire form of a vignette
type VignetteView struct {
	Key string      `json:"key"`
	A   ProfileView `json:"a"`
	B   ProfileView `json:"b"`
}

// SelectedView is a battery vignette with its selection diagnostics
type SelectedView struct {
	VignetteView
	Round       int     `json:"round"`
	Determinant float64 `json:"determinant"`
	LogDetGain  float64 `json:"log_det_gain"`
}

// BatteryView is the wire form of a planned battery
type BatteryView struct {
	ID          core.BatteryID `json:"id"`
	Fingerprint core.SpaceHash `json:"fingerprint"`
	Degenerate  bool           `json:"degenerate"`
	CreatedAt   time.Time      `json:"created_at"`
	Stats       *design.Stats  `json:"stats,omitempty"`
	Beginning   []SelectedView `json:"beginning"`
	End         []SelectedView `json:"end"`
}

// RecommendationView is the wire form of an adaptive recommendation
type RecommendationView struct {
	Vignette   VignetteView `json:"vignette"`
	Targets    []string     `json:"targets"`
	Gain       float64      `json:"gain"`
	Projection float64      `json:"projection"`
	Candidates int          `json:"candidates"`
}

// VignetteRef names a pair by profile keys
type VignetteRef struct {
	A string `json:"a" binding:"required"`
	B string `json:"b" binding:"required"`
}

// StatisticsRequest scores an arbitrary list of vignettes
type StatisticsRequest struct {
	Vignettes     []VignetteRef `json:"vignettes"`
	PriorMean     []float64     `json:"prior_mean,omitempty"`
	PriorVariance float64       `json:"prior_variance,omitempty"`
}

// ReportRequest asks for an uncertainty report; Threshold overrides the
// configured one
type ReportRequest struct {
	Posterior posterior.Distribution `json:"posterior"`
	Threshold *float64               `json:"threshold,omitempty"`
}

// NextRequest asks for the next adaptive vignette
type NextRequest struct {
	Posterior posterior.Distribution `json:"posterior"`
	Asked     []VignetteRef          `json:"asked,omitempty"`
}

// ChoiceRequest records one answer
type ChoiceRequest struct {
	Posterior posterior.Distribution `json:"posterior"`
	Vignette  VignetteRef            `json:"vignette"`
	Choice    string                 `json:"choice" binding:"required"`
	Asked     []VignetteRef          `json:"asked,omitempty"`
}

// ChoiceResponse is the outcome of a recorded answer
type ChoiceResponse struct {
	Posterior posterior.Distribution `json:"posterior"`
	Analysis  *app.Analysis          `json:"analysis"`
	Next      *RecommendationView    `json:"next,omitempty"`
	Exhausted bool                   `json:"exhausted"`
}

// presenter converts between domain values and wire views for one space
type presenter struct {
	space *profiles.Generator
}

func (p presenter) profile(pr profile.Profile) ProfileView {
	levels, err := p.space.LevelIDs(pr)
	if err != nil {
		levels = map[string]string{}
	}
	return ProfileView{
		Key:         pr.Key(),
		Levels:      levels,
		Description: p.space.ProfileToString(pr),
	}
}

func (p presenter) vignette(v design.Vignette) VignetteView {
	return VignetteView{Key: v.Key(), A: p.profile(v.A), B: p.profile(v.B)}
}

func (p presenter) selected(list []design.Selected) []SelectedView {
	out := make([]SelectedView, len(list))
	for i, s := range list {
		out[i] = SelectedView{
			VignetteView: p.vignette(s.Vignette),
			Round:        s.Round,
			Determinant:  s.Determinant,
			LogDetGain:   s.LogDetGain,
		}
	}
	return out
}

func (p presenter) battery(b *design.Battery) BatteryView {
	return BatteryView{
		ID:          b.ID,
		Fingerprint: b.Fingerprint,
		Degenerate:  b.Degenerate,
		CreatedAt:   b.CreatedAt,
		Stats:       b.Stats,
		Beginning:   p.selected(b.Beginning),
		End:         p.selected(b.End),
	}
}

func (p presenter) recommendation(r *adaptive.Recommendation) *RecommendationView {
	if r == nil {
		return nil
	}
	return &RecommendationView{
		Vignette:   p.vignette(r.Vignette),
		Targets:    r.Targets,
		Gain:       r.Gain,
		Projection: r.Projection,
		Candidates: r.Candidates,
	}
}

func (p presenter) resolve(ref VignetteRef) (design.Vignette, error) {
	a, err := p.space.ProfileFromKey(ref.A)
	if err != nil {
		return design.Vignette{}, fmt.Errorf("profile a: %w", err)
	}
	b, err := p.space.ProfileFromKey(ref.B)
	if err != nil {
		return design.Vignette{}, fmt.Errorf("profile b: %w", err)
	}
	return design.Vignette{A: a, B: b}, nil
}

func (p presenter) resolveAll(refs []VignetteRef) ([]design.Vignette, error) {
	out := make([]design.Vignette, len(refs))
	for i, ref := range refs {
		v, err := p.resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("vignette %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
