// Package evolution tunes scoring parameters with a seeded genetic algorithm.
//
// Each generation evaluates every candidate with a backtest, keeps the two
// best as elites and breeds the rest from a top slice of the population,
// occasionally injecting a fresh random candidate. Mutation shrinks as the
// run progresses. Hyperparameters come from an EvolutionGuidance, usually
// inferred by the framework for the current cast.
//
// For a fixed seed and guidance a run is reproducible: all randomness comes
// from one generator consumed only between evaluations, so the number of
// workers does not change the result.
package evolution

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"

	"github.com/rewired-gh/meihua/internal/backtest"
	"github.com/rewired-gh/meihua/internal/logger"
	"github.com/rewired-gh/meihua/internal/models"
	"github.com/rewired-gh/meihua/internal/scoring"
)

// ErrNoCandidate is returned when a run evaluates no candidate.
var ErrNoCandidate = errors.New("genetic algorithm found no valid parameter set")

const (
	eliteCount    = 2
	minPopulation = 4
	minHalfLife   = 10.0
	minWindow     = 30
	minGeneWeight = 0.01
	mixLow        = 0.05
	mixHigh       = 0.95
)

// ProgressFunc observes a run. It is called with (0, total, nil) before the
// first evaluation, after every evaluation, and once more with (total, total)
// at the end. best is nil until a candidate has been scored.
type ProgressFunc func(done, total int, best *float64)

// Options configure an optimizer.
type Options struct {
	WindowSize int
	Step       int
	// Iterations and Population override the guidance when positive.
	Iterations int
	Population int
	// Guidance is inferred from the framework when nil.
	Guidance *models.EvolutionGuidance
	// Seed overrides the guidance seed.
	Seed *int64
	// Event is the cast guidance is inferred for. A zero timestamp means now.
	Event    models.EventSnapshot
	Workers  int
	Progress ProgressFunc
}

// Optimizer runs one genetic search.
type Optimizer struct {
	bt       *backtest.Backtester
	guidance models.EvolutionGuidance
	base     models.ScoringParameters
	rng      *rand.Rand
	seed     int64
	window   int
	step     int
	workers  int
	progress ProgressFunc
	log      zerolog.Logger
}

// New resolves the guidance and seeds the generator.
func New(ctx context.Context, bt *backtest.Backtester, opts Options) *Optimizer {
	fw := bt.Framework()

	var g models.EvolutionGuidance
	if opts.Guidance != nil {
		g = *opts.Guidance
	} else {
		g = fw.InferGuidance(ctx, opts.Event, opts.WindowSize, opts.Step)
	}
	if opts.Iterations > 0 {
		g.Iterations = opts.Iterations
	}
	if opts.Population > 0 {
		g.Population = opts.Population
	}
	g.Iterations = max(1, g.Iterations)
	g.Population = max(minPopulation, g.Population)

	var seed int64
	switch {
	case opts.Seed != nil:
		seed = *opts.Seed
	case g.Seed != nil:
		seed = *g.Seed
	default:
		seed = time.Now().UnixNano() % 1_000_000
	}
	g.Seed = &seed

	return &Optimizer{
		bt:       bt,
		guidance: g,
		base:     fw.BaseParameters(),
		rng:      rand.New(rand.NewSource(seed)),
		seed:     seed,
		window:   opts.WindowSize,
		step:     opts.Step,
		workers:  max(1, opts.Workers),
		progress: opts.Progress,
		log:      logger.Component("evolution"),
	}
}

// Guidance returns the resolved hyperparameters.
func (o *Optimizer) Guidance() models.EvolutionGuidance {
	return o.guidance
}

// Seed returns the generator seed.
func (o *Optimizer) Seed() int64 {
	return o.seed
}

type scored struct {
	fitness   float64
	candidate models.Candidate
	report    models.BacktestReport
	err       error
}

// Evolve runs the search and returns the best candidate seen in any
// generation with its report.
func (o *Optimizer) Evolve(ctx context.Context) (models.Candidate, models.BacktestReport, error) {
	runID := uuid.NewString()
	history := o.bt.Framework().EnsureHistory(ctx)
	iterations, size := o.guidance.Iterations, o.guidance.Population

	population := make([]models.Candidate, size)
	for i := range population {
		population[i] = o.randomCandidate()
	}

	total := max(iterations*size, 1)
	done := 0
	var best *scored
	o.emit(0, total, nil)

	o.log.Info().
		Str("run_id", runID).
		Int64("seed", o.seed).
		Int("iterations", iterations).
		Int("population", size).
		Int("history", history.Len()).
		Msg("Evolution started")

	for gen := 0; gen < iterations; gen++ {
		results, err := o.evaluate(ctx, history, population)
		if err != nil {
			return models.Candidate{}, models.BacktestReport{}, err
		}
		for i := range results {
			if best == nil || results[i].fitness > best.fitness {
				r := results[i]
				best = &r
			}
			done++
			o.emit(done, total, &best.fitness)
		}

		sort.SliceStable(results, func(i, j int) bool { return results[i].fitness > results[j].fitness })
		o.log.Debug().
			Str("run_id", runID).
			Int("generation", gen).
			Float64("generation_best", results[0].fitness).
			Float64("best", best.fitness).
			Msg("Generation evaluated")

		next := make([]models.Candidate, 0, size)
		for _, r := range results[:min(eliteCount, len(results))] {
			next = append(next, r.candidate)
		}
		poolSize := max(minPopulation, int(float64(len(results))*(0.35+o.guidance.ExplorationBias*0.4)))
		parents := results[:min(poolSize, len(results))]
		for len(next) < size {
			if o.rng.Float64() < o.explorationProbability() {
				next = append(next, o.randomCandidate())
				continue
			}
			a, b := o.pickParents(len(parents))
			child := o.crossover(parents[a].candidate, parents[b].candidate)
			next = append(next, o.mutate(child, gen))
		}
		population = next
	}

	if best == nil {
		return models.Candidate{}, models.BacktestReport{}, ErrNoCandidate
	}
	o.emit(total, total, &best.fitness)
	o.log.Info().
		Str("run_id", runID).
		Float64("fitness", best.fitness).
		Floats64("hex_weights", best.candidate.HexWeights[:]).
		Float64("half_life", best.candidate.HistoryHalfLife).
		Int("window", best.candidate.HistoryWindow).
		Msg("Evolution finished")
	return best.candidate, best.report, nil
}

// evaluate backtests every candidate as a static override. Results keep the
// population order.
func (o *Optimizer) evaluate(ctx context.Context, history *scoring.History, population []models.Candidate) ([]scored, error) {
	results := make([]scored, len(population))
	it := iter.Iterator[models.Candidate]{MaxGoroutines: o.workers}
	it.ForEachIdx(population, func(i int, c *models.Candidate) {
		report, err := o.bt.Run(ctx, backtest.Options{
			WindowSize: o.window,
			Step:       o.step,
			Override:   c.Override(),
			History:    history,
		})
		results[i] = scored{fitness: report.Fitness(), candidate: *c, report: report, err: err}
	})
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
	}
	return results, nil
}

func (o *Optimizer) emit(done, total int, best *float64) {
	if o.progress == nil {
		return
	}
	var v *float64
	if best != nil {
		b := *best
		v = &b
	}
	o.progress(max(0, min(done, total)), total, v)
}

func (o *Optimizer) explorationProbability() float64 {
	return 0.12 + 0.28*o.guidance.ExplorationBias
}

// pickParents draws two distinct indices below n.
func (o *Optimizer) pickParents(n int) (int, int) {
	a := o.rng.Intn(n)
	b := o.rng.Intn(n - 1)
	if b >= a {
		b++
	}
	return a, b
}

func (o *Optimizer) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*o.rng.Float64()
}

func (o *Optimizer) jitter(v, scale float64) float64 {
	return math.Max(minGeneWeight, v*o.uniform(1-scale, 1+scale))
}

func (o *Optimizer) pullToFocus(hex [3]float64, strength float64) [3]float64 {
	focus := o.guidance.HexFocus
	for i := range hex {
		hex[i] = hex[i]*(1-strength) + focus[i]*strength
	}
	return hex
}

// rescale keeps the four history weights at the base total.
func (o *Optimizer) rescale(w [4]float64) [4]float64 {
	return models.RescaleWeights(w, o.base.WeightTotal())
}

func (o *Optimizer) randomCandidate() models.Candidate {
	g := o.guidance

	hex := o.base.HexWeights
	if g.HexFocusWeight > 0 {
		hex = o.pullToFocus(hex, g.HexFocusWeight)
	}
	spread := 0.18 + g.ExplorationBias*0.14
	for i := range hex {
		hex[i] *= o.uniform(1-spread, 1+spread)
	}

	scale := 0.18 + g.ExplorationBias*0.12
	w := o.rescale([4]float64{
		o.jitter(o.base.HistoryWeight, scale),
		o.jitter(o.base.RecencyWeight, scale*0.9),
		o.jitter(o.base.GapWeight, scale),
		o.jitter(o.base.CalendarWeight, scale*1.1),
	})

	halfLife := o.uniform(g.HalfLifeBounds[0], g.HalfLifeBounds[1])
	window := int(o.uniform(float64(g.WindowBounds[0]), float64(g.WindowBounds[1])))

	p := o.base.WithWeights(w)
	p.HexWeights = models.NormalizeHexFloored(hex)
	p.HistoryHalfLife = math.Max(minHalfLife, halfLife)
	p.HistoryWindow = max(minWindow, window)
	return models.Candidate{ScoringParameters: p}
}

func (o *Optimizer) mutate(c models.Candidate, generation int) models.Candidate {
	g := o.guidance
	progress := float64(generation) / float64(max(g.Iterations-1, 1))
	decay := math.Max(0.05, math.Pow(1-progress, g.MutationDecay))
	scale := math.Max(g.MutationStrength*decay, g.MutationStrength*0.35)

	var hex [3]float64
	for i, v := range c.HexWeights {
		hex[i] = o.jitter(v, scale)
	}
	if focus := g.HexFocusWeight * (1 - decay) * 0.6; focus > 0 {
		hex = o.pullToFocus(hex, focus)
	}

	ws := scale * (1 + g.ExplorationBias*0.2)
	w := o.rescale([4]float64{
		o.jitter(c.HistoryWeight, ws),
		o.jitter(c.RecencyWeight, ws*0.9),
		o.jitter(c.GapWeight, ws),
		o.jitter(c.CalendarWeight, ws*1.1),
	})

	halfLife := clamp(o.jitter(c.HistoryHalfLife, scale), g.HalfLifeBounds[0], g.HalfLifeBounds[1])
	window := int(clamp(o.jitter(float64(c.HistoryWindow), scale), float64(g.WindowBounds[0]), float64(g.WindowBounds[1])))

	p := c.WithWeights(w)
	p.HexWeights = models.NormalizeHexFloored(hex)
	p.HistoryHalfLife = halfLife
	p.HistoryWindow = max(minWindow, window)
	return models.Candidate{ScoringParameters: p}
}

func (o *Optimizer) crossover(a, b models.Candidate) models.Candidate {
	g := o.guidance
	low := clamp(g.CrossoverCenter-g.CrossoverWidth, mixLow, mixHigh)
	high := clamp(g.CrossoverCenter+g.CrossoverWidth, mixLow, mixHigh)
	mix := o.uniform(low, high)
	lerp := func(x, y float64) float64 { return x*mix + y*(1-mix) }

	var hex [3]float64
	for i := range hex {
		hex[i] = lerp(a.HexWeights[i], b.HexWeights[i])
	}
	hex = models.NormalizeHexFloored(hex)
	if focus := g.HexFocusWeight * 0.3; focus > 0 {
		hex = models.NormalizeHexFloored(o.pullToFocus(hex, focus))
	}

	aw, bw := a.Weights(), b.Weights()
	var w [4]float64
	for i := range w {
		w[i] = lerp(aw[i], bw[i])
	}

	halfLife := clamp(lerp(a.HistoryHalfLife, b.HistoryHalfLife), g.HalfLifeBounds[0], g.HalfLifeBounds[1])
	window := int(clamp(lerp(float64(a.HistoryWindow), float64(b.HistoryWindow)), float64(g.WindowBounds[0]), float64(g.WindowBounds[1])))

	p := a.WithWeights(o.rescale(w))
	p.HexWeights = hex
	p.HistoryHalfLife = halfLife
	p.HistoryWindow = max(minWindow, window)
	return models.Candidate{ScoringParameters: p}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
