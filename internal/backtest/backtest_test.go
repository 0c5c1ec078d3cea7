package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/meihua/internal/inference"
	"github.com/rewired-gh/meihua/internal/models"
	"github.com/rewired-gh/meihua/internal/storage"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newFramework(t *testing.T, g models.GameType, periods int) *inference.Framework {
	t.Helper()
	cfg := inference.DefaultConfig(g)
	cfg.Now = func() time.Time { return now }
	fw, err := inference.New(cfg)
	require.NoError(t, err)

	gc, err := models.LookupGame(g)
	require.NoError(t, err)
	fw.SetHistory(storage.SimulatedHistory(gc, periods, now, 11))
	return fw
}

func TestRunReplaysPeriods(t *testing.T) {
	tests := []struct {
		name    string
		game    models.GameType
		window  int
		step    int
		periods int
		want    int
	}{
		{name: "ssq step 5", game: models.GameSSQ, window: 50, step: 5, periods: 80, want: 6},
		{name: "keno8 step 1", game: models.GameKeno8, window: 70, step: 1, periods: 75, want: 5},
		{name: "dlt zero step", game: models.GameDLT, window: 58, step: 0, periods: 60, want: 2},
		{name: "window past end", game: models.GameSSQ, window: 100, step: 1, periods: 60, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw := newFramework(t, tt.game, tt.periods)
			report, err := New(fw).Run(context.Background(), Options{WindowSize: tt.window, Step: tt.step})
			require.NoError(t, err)
			require.Len(t, report.Records, tt.want)
			assert.NotEmpty(t, report.RunID)

			drawn := fw.Game().DrawnNumbers
			for _, rec := range report.Records {
				assert.LessOrEqual(t, rec.HitsPrimary, drawn)
				assert.GreaterOrEqual(t, rec.HitsPool, 0)
				assert.Len(t, rec.DrawNumbers, drawn)
				assert.NotEmpty(t, rec.Period)
			}
			if tt.want == 0 {
				assert.Equal(t, 0.0, report.HitRate())
			}
		})
	}
}

func TestRunMatchesDirectPrediction(t *testing.T) {
	fw := newFramework(t, models.GameSSQ, 40)
	h := fw.History()

	report, err := New(fw).Run(context.Background(), Options{WindowSize: 38, Step: 1})
	require.NoError(t, err)
	require.Len(t, report.Records, 2)

	event := models.NewEventSnapshot(h.Time(38))
	event.ReferenceNumbers = h.Record(37).Numbers
	result := fw.PredictWith(event, h.Prefix(38), inference.PredictOptions{})
	primary, pool := fw.Adapter().Evaluate(result.PrimarySelection, result.CandidatePool, h.Record(38))

	rec := report.Records[0]
	assert.Equal(t, h.Record(38).Period, rec.Period)
	assert.Equal(t, result.PrimarySelection, rec.Predicted)
	assert.Equal(t, result.CandidatePool, rec.Pool)
	assert.Equal(t, primary, rec.HitsPrimary)
	assert.Equal(t, pool, rec.HitsPool)
}

func TestRunLeavesFrameworkUntouched(t *testing.T) {
	fw := newFramework(t, models.GameKeno8, 60)
	base := fw.BaseParameters()

	override := &models.ParameterOverride{Params: models.DefaultScoringParameters()}
	first, err := New(fw).Run(context.Background(), Options{WindowSize: 50, Step: 2, Override: override})
	require.NoError(t, err)
	second, err := New(fw).Run(context.Background(), Options{WindowSize: 50, Step: 2, Override: override})
	require.NoError(t, err)

	assert.Equal(t, 60, fw.History().Len())
	assert.Equal(t, base, fw.BaseParameters())
	assert.Nil(t, fw.ParameterOverride())
	assert.Equal(t, first.Records, second.Records)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunHonorsContext(t *testing.T) {
	fw := newFramework(t, models.GameSSQ, 30)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fw).Run(ctx, Options{WindowSize: 10, Step: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptimize(t *testing.T) {
	fw := newFramework(t, models.GameSSQ, 60)
	bt := New(fw)
	base := fw.BaseParameters()

	grid := GridOptions{
		HexGrid:     [][3]float64{{0.5, 0.2, 0.3}, {0.2, 0.3, 0.5}},
		HistoryGrid: []float64{0.2, 0.6},
		WindowSize:  50,
		Step:        2,
	}

	// score every point by hand before the search changes the base
	bestFitness := -1.0
	var bestHex [3]float64
	var bestHW float64
	for _, hex := range grid.HexGrid {
		for _, hw := range grid.HistoryGrid {
			p := base
			p.HexWeights = hex
			p.HistoryWeight = hw
			report, err := bt.Run(context.Background(), Options{WindowSize: 50, Step: 2, Base: &p})
			require.NoError(t, err)
			if f := report.Fitness(); f > bestFitness {
				bestFitness, bestHex, bestHW = f, hex, hw
			}
		}
	}

	result, err := bt.Optimize(context.Background(), grid)
	require.NoError(t, err)
	assert.Equal(t, bestHex, result.HexWeights)
	assert.Equal(t, bestHW, result.HistoryWeight)
	assert.InDelta(t, bestFitness, result.Fitness, 1e-12)
	assert.Len(t, result.Report.Records, 5)

	tuned := fw.BaseParameters()
	assert.Equal(t, bestHex, tuned.HexWeights)
	assert.Equal(t, bestHW, tuned.HistoryWeight)
	assert.Equal(t, base.RecencyWeight, tuned.RecencyWeight)
	assert.Equal(t, base.GapWeight, tuned.GapWeight)
	assert.Equal(t, base.CalendarWeight, tuned.CalendarWeight)
}

func TestOptimizeEmptyGrid(t *testing.T) {
	fw := newFramework(t, models.GameDLT, 20)
	base := fw.BaseParameters()

	_, err := New(fw).Optimize(context.Background(), GridOptions{HexGrid: [][3]float64{{1, 1, 1}}})
	assert.ErrorIs(t, err, ErrNoReport)
	assert.Equal(t, base, fw.BaseParameters())
}
