// Package backtest replays a loaded history against the inference framework.
//
// Every replayed period predicts from the draws strictly before it and is
// scored against the draw itself. Runs take their parameters as options and
// never write framework state, so any number of runs may share a framework.
package backtest

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rewired-gh/meihua/internal/inference"
	"github.com/rewired-gh/meihua/internal/logger"
	"github.com/rewired-gh/meihua/internal/models"
	"github.com/rewired-gh/meihua/internal/scoring"
)

// ErrNoReport is returned when a grid search produces no report.
var ErrNoReport = errors.New("parameter optimization produced no report")

const (
	// DefaultWindowSize is the number of leading draws used only as training history.
	DefaultWindowSize = 100
	// DefaultStep is the distance between replayed periods.
	DefaultStep = 1
)

// Options configure a single run.
type Options struct {
	WindowSize int
	Step       int
	// Override evaluates fixed parameters instead of the derived base.
	Override *models.ParameterOverride
	// Base replaces the framework's base parameters for this run.
	Base *models.ScoringParameters
	// History replays these draws instead of the framework's history.
	History *scoring.History
}

// Backtester runs backtests and grid searches for one framework.
type Backtester struct {
	fw  *inference.Framework
	log zerolog.Logger
}

// New creates a backtester for a framework.
func New(fw *inference.Framework) *Backtester {
	return &Backtester{fw: fw, log: logger.Component("backtest")}
}

// Framework returns the framework under test.
func (b *Backtester) Framework() *inference.Framework {
	return b.fw
}

// Run replays the history from index WindowSize to the end in Step
// increments. Without an explicit history the framework's history is
// loaded first if it is empty.
func (b *Backtester) Run(ctx context.Context, opts Options) (models.BacktestReport, error) {
	h := opts.History
	if h == nil {
		h = b.fw.EnsureHistory(ctx)
	}
	window := opts.WindowSize
	if window < 0 {
		window = 0
	}
	step := max(opts.Step, 1)

	predict := inference.PredictOptions{Override: opts.Override, Base: opts.Base}
	adapter := b.fw.Adapter()

	var records []models.BacktestRecord
	for idx := window; idx < h.Len(); idx += step {
		if err := ctx.Err(); err != nil {
			return models.BacktestReport{}, err
		}

		training := h.Prefix(idx)
		target := h.Record(idx)

		event := models.NewEventSnapshot(h.Time(idx))
		if last, ok := training.Last(); ok {
			event.ReferenceNumbers = append([]int(nil), last.Numbers...)
		}

		result := b.fw.PredictWith(event, training, predict)
		hitsPrimary, hitsPool := adapter.Evaluate(result.PrimarySelection, result.CandidatePool, target)

		period := target.Period
		if period == "" {
			period = strconv.Itoa(idx)
		}
		records = append(records, models.BacktestRecord{
			Period:      period,
			HitsPrimary: hitsPrimary,
			HitsPool:    hitsPool,
			DrawNumbers: append([]int(nil), target.Numbers...),
			Predicted:   result.PrimarySelection,
			Pool:        result.CandidatePool,
		})
	}

	report := models.BacktestReport{RunID: uuid.NewString(), Records: records}
	b.log.Debug().
		Str("run_id", report.RunID).
		Int("periods", len(records)).
		Float64("hit_rate", report.HitRate()).
		Msg("Backtest finished")
	return report, nil
}

// GridResult is the best combination of a grid search.
type GridResult struct {
	HexWeights    [3]float64
	HistoryWeight float64
	Report        models.BacktestReport
	Fitness       float64
}

// GridOptions configure a grid search.
type GridOptions struct {
	HexGrid     [][3]float64
	HistoryGrid []float64
	WindowSize  int
	Step        int
}

// Optimize backtests every combination of hex weights and history weight,
// holding the other base parameters, and installs the best one as the
// framework's base parameters. The first combination wins ties.
func (b *Backtester) Optimize(ctx context.Context, opts GridOptions) (GridResult, error) {
	h := b.fw.EnsureHistory(ctx)
	base := b.fw.BaseParameters()

	var best *GridResult
	for _, hex := range opts.HexGrid {
		for _, hw := range opts.HistoryGrid {
			params := base
			params.HexWeights = hex
			params.HistoryWeight = hw

			report, err := b.Run(ctx, Options{
				WindowSize: opts.WindowSize,
				Step:       opts.Step,
				Base:       &params,
				History:    h,
			})
			if err != nil {
				return GridResult{}, err
			}

			fitness := report.Fitness()
			b.log.Debug().
				Floats64("hex_weights", hex[:]).
				Float64("history_weight", hw).
				Float64("fitness", fitness).
				Msg("Grid point evaluated")
			if best == nil || fitness > best.Fitness {
				best = &GridResult{HexWeights: hex, HistoryWeight: hw, Report: report, Fitness: fitness}
			}
		}
	}
	if best == nil {
		return GridResult{}, ErrNoReport
	}

	tuned := base
	tuned.HexWeights = best.HexWeights
	tuned.HistoryWeight = best.HistoryWeight
	b.fw.SetBaseParameters(tuned)

	b.log.Info().
		Floats64("hex_weights", best.HexWeights[:]).
		Float64("history_weight", best.HistoryWeight).
		Float64("fitness", best.Fitness).
		Msg("Grid search finished")
	return *best, nil
}
