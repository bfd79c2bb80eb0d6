package optimizer

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"goelicit/domain/core"
	"goelicit/domain/design"
	"goelicit/domain/profile"
	"goelicit/internal/linalg"
)

// SelectionTrace records how the running information matrix evolved during a
// greedy selection
type SelectionTrace struct {
	// Determinants[0] is det of the prior precision; Determinants[r] is det
	// after round r
	Determinants []float64
	// Degenerate is set when some round could only add a zero-information
	// pair, weakening strict growth to non-decreasing
	Degenerate  bool
	Evaluations int
	Elapsed     time.Duration
}

// pairTerm memoizes one candidate pair's rank-one information c·d dᵀ
type pairTerm struct {
	a, b int
	d    []float64
	c    float64
}

// arena holds every unordered candidate pair of a deduplicated pool, indexed
// canonically: (0,1), (0,2), ..., (0,n-1), (1,2), ...
type arena struct {
	profiles []profile.Profile
	terms    []pairTerm
	chosen   []bool
}

// candidate is a pair index and its log-determinant gain
type candidate struct {
	index int
	gain  float64
}

func noCandidate() candidate {
	return candidate{index: -1, gain: math.Inf(-1)}
}

// better reports whether c beats best; equal gains keep the lower index
func (c candidate) better(best candidate) bool {
	if best.index < 0 {
		return c.index >= 0
	}
	return c.gain > best.gain || (c.gain == best.gain && c.index < best.index)
}

// SelectStaticVignettes greedily picks numStatic distinct pairs maximizing
// det(I_k/priorVariance + Σ FIM) and splits them into the first numBeginning
// and the rest
func (o *Optimizer) SelectStaticVignettes(ctx context.Context, profiles []profile.Profile, numStatic, numBeginning int, priorMean []float64, priorVariance float64) (beginning, end []design.Selected, err error) {
	beginning, end, _, err = o.SelectStaticVignettesTraced(ctx, profiles, numStatic, numBeginning, priorMean, priorVariance)
	return beginning, end, err
}

// SelectStaticVignettesTraced is SelectStaticVignettes that also returns the
// determinant trace
func (o *Optimizer) SelectStaticVignettesTraced(ctx context.Context, profiles []profile.Profile, numStatic, numBeginning int, priorMean []float64, priorVariance float64) ([]design.Selected, []design.Selected, *SelectionTrace, error) {
	start := time.Now()

	if err := o.checkPriorMean(priorMean); err != nil {
		return nil, nil, nil, err
	}
	if err := checkPriorVariance(priorVariance); err != nil {
		return nil, nil, nil, err
	}
	if err := CheckTemperature(o.temperature); err != nil {
		return nil, nil, nil, err
	}
	if numStatic < 1 {
		return nil, nil, nil, core.NewArgumentError("num_static", fmt.Sprintf("must be at least 1, got %d", numStatic))
	}
	if numBeginning < 0 || numBeginning > numStatic {
		return nil, nil, nil, core.NewArgumentError("num_beginning",
			fmt.Sprintf("must be between 0 and num_static (%d), got %d", numStatic, numBeginning))
	}

	pool := dedupe(profiles)
	n := len(pool)
	if available := n * (n - 1) / 2; available < numStatic {
		return nil, nil, nil, fmt.Errorf("%w: %d distinct profiles give %d pairs, %d requested",
			core.ErrInsufficientCandidates, n, available, numStatic)
	}

	ar, err := o.buildArena(ctx, pool, priorMean)
	if err != nil {
		return nil, nil, nil, err
	}
	o.metrics.AddFIMEvaluations(len(ar.terms))

	k := len(priorMean)
	running := linalg.ScaledIdentity(k, 1/priorVariance)
	trace := &SelectionTrace{
		Determinants: []float64{linalg.Det(running)},
		Evaluations:  len(ar.terms),
	}

	o.logger.Debug("selecting %d vignettes from %d profiles (%d pairs, k=%d, T=%g)",
		numStatic, n, len(ar.terms), k, o.temperature)

	observe := roundObserver(ctx)
	selected := make([]design.Selected, 0, numStatic)
	for round := 1; round <= numStatic; round++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}

		inv, err := linalg.Inverse(running)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("round %d: running information: %w", round, err)
		}
		best, err := o.bestCandidate(ctx, ar, inv)
		if err != nil {
			return nil, nil, nil, err
		}
		if best.index < 0 {
			return nil, nil, nil, fmt.Errorf("%w: no pair left in round %d", core.ErrInsufficientCandidates, round)
		}
		if best.gain <= 0 {
			trace.Degenerate = true
			o.logger.Warn("round %d: only zero-information pairs remain; determinant stays at %g", round, trace.Determinants[len(trace.Determinants)-1])
		}

		t := ar.terms[best.index]
		ar.chosen[best.index] = true
		linalg.AddRankOneInPlace(running, t.d, t.c)
		det := linalg.Det(running)
		trace.Determinants = append(trace.Determinants, det)

		sel := design.Selected{
			Vignette:    design.Vignette{A: ar.profiles[t.a], B: ar.profiles[t.b]},
			Round:       round,
			Determinant: det,
			LogDetGain:  best.gain,
		}
		selected = append(selected, sel)
		if observe != nil {
			observe(sel, numStatic)
		}
		o.logger.Trace("round %d: pair (%d,%d) gain %.6g det %.6g", round, t.a, t.b, best.gain, det)
	}

	trace.Elapsed = time.Since(start)
	o.metrics.ObserveSelection(trace.Elapsed)
	o.logger.Info("selected %d vignettes (%d beginning) in %s, final det %.6g",
		len(selected), numBeginning, trace.Elapsed, trace.Determinants[len(trace.Determinants)-1])

	return selected[:numBeginning:numBeginning], selected[numBeginning:], trace, nil
}

// dedupe drops repeated profiles, keeping first occurrences in order
func dedupe(profiles []profile.Profile) []profile.Profile {
	seen := make(map[string]struct{}, len(profiles))
	out := make([]profile.Profile, 0, len(profiles))
	for _, p := range profiles {
		key := string(p.Space()) + "/" + p.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// buildArena encodes the pool once and memoizes every pair's (c, d)
func (o *Optimizer) buildArena(ctx context.Context, pool []profile.Profile, priorMean []float64) (*arena, error) {
	xs := make([]profile.FeatureVector, len(pool))
	for i, p := range pool {
		x, err := o.encode(p)
		if err != nil {
			return nil, fmt.Errorf("encoding candidate %d: %w", i, err)
		}
		xs[i] = x
	}

	n := len(pool)
	ar := &arena{
		profiles: pool,
		terms:    make([]pairTerm, 0, n*(n-1)/2),
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ar.terms = append(ar.terms, pairTerm{a: i, b: j})
		}
	}
	ar.chosen = make([]bool, len(ar.terms))

	err := o.fanOut(ctx, len(ar.terms), func(lo, hi int) error {
		for idx := lo; idx < hi; idx++ {
			t := &ar.terms[idx]
			d := xs[t.a].Sub(xs[t.b])
			if d.IsZero() {
				continue
			}
			t.d = d
			t.c = InformationWeight(d, priorMean, o.temperature)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ar, nil
}

// bestCandidate scores every unchosen pair by log(1 + c·dᵀR⁻¹d), which is
// log det(R + c ddᵀ) - log det(R). Workers scan contiguous chunks and the
// chunk winners are reduced in chunk order.
func (o *Optimizer) bestCandidate(ctx context.Context, ar *arena, inv *mat.SymDense) (candidate, error) {
	chunks := o.chunks(len(ar.terms))
	winners := make([]candidate, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for w, ch := range chunks {
		w, ch := w, ch
		g.Go(func() error {
			best := noCandidate()
			for idx := ch[0]; idx < ch[1]; idx++ {
				if ar.chosen[idx] {
					continue
				}
				if idx&1023 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				c := candidate{index: idx}
				if t := ar.terms[idx]; t.d != nil && t.c > 0 {
					c.gain = math.Log1p(t.c * linalg.QuadForm(inv, t.d))
				}
				if c.better(best) {
					best = c
				}
			}
			winners[w] = best
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return noCandidate(), err
	}

	best := noCandidate()
	for _, c := range winners {
		if c.better(best) {
			best = c
		}
	}
	return best, nil
}

// fanOut runs fn over contiguous index ranges on at most o.workers goroutines
func (o *Optimizer) fanOut(ctx context.Context, n int, fn func(lo, hi int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range o.chunks(n) {
		ch := ch
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(ch[0], ch[1])
		})
	}
	return g.Wait()
}

func (o *Optimizer) chunks(n int) [][2]int {
	w := o.workers
	if w > n {
		w = n
	}
	if w < 1 {
		return nil
	}
	size := (n + w - 1) / w
	out := make([][2]int, 0, w)
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		out = append(out, [2]int{lo, hi})
	}
	return out
}
