package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"time"

	"goelicit/domain/core"
	"goelicit/domain/design"
	"goelicit/domain/posterior"
	"goelicit/domain/profile"
	"goelicit/internal"
	"goelicit/internal/adaptive"
	"goelicit/internal/config"
	"goelicit/internal/errors"
	"goelicit/internal/metrics"
	"goelicit/internal/optimizer"
	"goelicit/internal/profiles"
	"goelicit/internal/uncertainty"
	"goelicit/ports"
)

// ElicitationService plans static batteries, analyzes posteriors and drives
// the adaptive phase over one loaded profile space
type ElicitationService struct {
	cfg       config.EngineConfig
	generator *profiles.Generator
	pool      []profile.Profile
	optimizer *optimizer.Optimizer
	analyzer  *uncertainty.Analyzer
	selector  *adaptive.Selector
	updater   ports.BeliefUpdaterPort
	batteries ports.BatteryStore
	metrics   *metrics.Recorder
	logger    *internal.Logger
}

// PlanRequest overrides engine defaults for one battery. Zero values fall
// back to configuration; a nil PriorMean uses the configured priors.
type PlanRequest struct {
	NumStatic     int       `json:"num_static,omitempty"`
	NumBeginning  *int      `json:"num_beginning,omitempty"`
	PriorMean     []float64 `json:"prior_mean,omitempty"`
	PriorVariance float64   `json:"prior_variance,omitempty"`
}

// Analysis bundles the analyzer views of one posterior
type Analysis struct {
	Report       *uncertainty.Report       `json:"report"`
	Correlations []uncertainty.Correlation `json:"correlations"`
}

// ChoiceOutcome is the result of recording one answered vignette
type ChoiceOutcome struct {
	Posterior posterior.Distribution   `json:"posterior"`
	Analysis  *Analysis                `json:"analysis"`
	Next      *adaptive.Recommendation `json:"-"`
	// Exhausted is set when no unasked pair can move the targeted dimensions
	Exhausted bool `json:"exhausted"`
}

// NewElicitationService enumerates the candidate pool and builds the engine
// components. updater and batteries may be nil.
func NewElicitationService(
	cfg config.EngineConfig,
	generator *profiles.Generator,
	updater ports.BeliefUpdaterPort,
	batteries ports.BatteryStore,
	recorder *metrics.Recorder,
	logger *internal.Logger,
) (*ElicitationService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = internal.OrDefault(logger)

	pool, err := generator.GenerateAllProfiles(cfg.MaxProfiles)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate candidate profiles")
	}

	analyzer := uncertainty.NewAnalyzer(cfg.UncertaintyThreshold)
	s := &ElicitationService{
		cfg:       cfg,
		generator: generator,
		pool:      pool,
		optimizer: optimizer.NewOptimizer(generator,
			optimizer.WithTemperature(cfg.Temperature),
			optimizer.WithWorkers(cfg.Workers),
			optimizer.WithLogger(logger),
			optimizer.WithMetrics(recorder)),
		analyzer: analyzer,
		selector: adaptive.NewSelector(generator, analyzer,
			adaptive.WithTemperature(cfg.Temperature),
			adaptive.WithTopK(cfg.TopK),
			adaptive.WithLogger(logger),
			adaptive.WithMetrics(recorder)),
		updater:   updater,
		batteries: batteries,
		metrics:   recorder,
		logger:    logger.Named("elicitation"),
	}
	s.logger.Info("elicitation service ready: %d candidate profiles, k=%d", len(pool), generator.NumDimensions())
	return s, nil
}

// Generator exposes the loaded profile space
func (s *ElicitationService) Generator() *profiles.Generator {
	return s.generator
}

// Pool returns the candidate profiles used for selection
func (s *ElicitationService) Pool() []profile.Profile {
	return s.pool
}

// SpaceInfo summarizes the profile space
func (s *ElicitationService) SpaceInfo() profiles.SpaceInfo {
	return s.generator.AttributeInfo()
}

// PriorPosterior is the belief before any answer, from configured priors
func (s *ElicitationService) PriorPosterior() posterior.Distribution {
	return s.generator.PriorPosterior()
}

func (s *ElicitationService) resolve(req PlanRequest) (numStatic, numBeginning int, mean []float64, variance float64) {
	numStatic = req.NumStatic
	if numStatic == 0 {
		numStatic = s.cfg.NumStatic
	}
	numBeginning = s.cfg.NumBeginning
	if req.NumBeginning != nil {
		numBeginning = *req.NumBeginning
	} else if numBeginning > numStatic {
		numBeginning = numStatic
	}
	mean = req.PriorMean
	if mean == nil {
		mean = s.generator.PriorMean()
	}
	variance = req.PriorVariance
	if variance == 0 {
		variance = s.cfg.PriorVariance
	}
	return numStatic, numBeginning, mean, variance
}

// PlanStaticBattery selects, scores and stores a new static battery
func (s *ElicitationService) PlanStaticBattery(ctx context.Context, req PlanRequest) (*design.Battery, error) {
	start := time.Now()
	numStatic, numBeginning, mean, variance := s.resolve(req)

	beginning, end, trace, err := s.optimizer.SelectStaticVignettesTraced(ctx, s.pool, numStatic, numBeginning, mean, variance)
	if err != nil {
		return nil, errors.Wrap(err, "failed to select static vignettes")
	}

	battery := &design.Battery{
		ID:          core.NewBatteryID(),
		Fingerprint: s.generator.Fingerprint(),
		Beginning:   beginning,
		End:         end,
		Degenerate:  trace.Degenerate,
		CreatedAt:   start.UTC(),
	}
	battery.Stats, err = s.optimizer.OptimizationStatistics(battery.All(), mean, variance)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute battery statistics")
	}
	s.metrics.SetDEfficiency(battery.Stats.DEfficiency)

	if s.batteries != nil {
		if err := s.batteries.Save(ctx, battery); err != nil {
			return nil, errors.Wrapf(err, "failed to store battery %s", battery.ID)
		}
	}

	s.logger.Info("battery %s planned: %d vignettes, d-efficiency %.4f (%s)",
		battery.ID, battery.Len(), battery.Stats.DEfficiency, time.Since(start))
	return battery, nil
}

// GetBattery returns a previously planned battery
func (s *ElicitationService) GetBattery(ctx context.Context, id core.BatteryID) (*design.Battery, error) {
	if s.batteries == nil {
		return nil, errors.Unavailable("battery store not configured")
	}
	b, err := s.batteries.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load battery %s", id)
	}
	return b, nil
}

// BatteryStatistics scores an arbitrary list of vignettes
func (s *ElicitationService) BatteryStatistics(vignettes []design.Vignette, mean []float64, variance float64) (*design.Stats, error) {
	_, _, mean, variance = s.resolve(PlanRequest{NumStatic: 1, PriorMean: mean, PriorVariance: variance})
	st, err := s.optimizer.OptimizationStatistics(vignettes, mean, variance)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute statistics")
	}
	return st, nil
}

// AnalyzePosterior runs the uncertainty analyzer; threshold overrides the
// configured one when non-nil
func (s *ElicitationService) AnalyzePosterior(post posterior.Distribution, threshold *float64) (*Analysis, error) {
	a := s.analyzer
	if threshold != nil {
		a = a.WithThreshold(*threshold)
	}
	report, err := a.Report(post)
	if err != nil {
		return nil, errors.Wrap(err, "failed to analyze posterior")
	}
	corr, err := a.DimensionCorrelations(post)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute correlations")
	}
	return &Analysis{Report: report, Correlations: corr}, nil
}

// NextVignette recommends the next adaptive question
func (s *ElicitationService) NextVignette(ctx context.Context, post posterior.Distribution, asked []design.Vignette) (*adaptive.Recommendation, error) {
	rec, err := s.selector.NextVignette(ctx, post, s.pool, asked)
	if err != nil {
		return nil, errors.Wrap(err, "failed to select next vignette")
	}
	return rec, nil
}

// RecordChoice hands an answer to the belief updater, checks the returned
// posterior and recommends what to ask next. asked must not include vignette;
// it is added here.
func (s *ElicitationService) RecordChoice(ctx context.Context, prior posterior.Distribution, vignette design.Vignette, choice design.Choice, asked []design.Vignette) (*ChoiceOutcome, error) {
	if s.updater == nil {
		return nil, errors.Unavailable("belief updater not configured")
	}
	if _, err := design.ParseChoice(string(choice)); err != nil {
		return nil, errors.Wrap(err, "invalid choice")
	}
	if err := prior.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid prior posterior")
	}

	post, err := s.updater.Update(ctx, prior, vignette, choice)
	if err != nil {
		return nil, errors.Wrap(err, "belief update failed")
	}
	if err := post.Validate(); err != nil {
		return nil, errors.Wrap(err, "belief updater returned an invalid posterior")
	}
	if !slices.Equal(post.Dimensions, prior.Dimensions) {
		return nil, errors.Wrap(fmt.Errorf("%w: updater changed dimensions %v to %v",
			core.ErrDimensionMismatch, prior.Dimensions, post.Dimensions), "belief updater returned an invalid posterior")
	}

	analysis, err := s.AnalyzePosterior(post, nil)
	if err != nil {
		return nil, err
	}

	out := &ChoiceOutcome{Posterior: post, Analysis: analysis}
	next, err := s.selector.NextVignette(ctx, post, s.pool, append(slices.Clone(asked), vignette))
	switch {
	case err == nil:
		out.Next = next
	case stderrors.Is(err, core.ErrInsufficientCandidates):
		out.Exhausted = true
	default:
		return nil, errors.Wrap(err, "failed to select next vignette")
	}

	s.logger.Debug("choice %s recorded for %s; global uncertainty %.4f",
		choice, vignette.Key(), analysis.Report.GlobalUncertainty)
	return out, nil
}
