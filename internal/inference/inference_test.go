package inference

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/meihua/internal/calendar"
	"github.com/rewired-gh/meihua/internal/hexagram"
	"github.com/rewired-gh/meihua/internal/models"
	"github.com/rewired-gh/meihua/internal/scoring"
	"github.com/rewired-gh/meihua/internal/storage"
)

var (
	refTime  = time.Date(2024, 3, 21, 10, 0, 0, 0, time.UTC)
	fixedNow = func() time.Time { return refTime }
)

func newFramework(t *testing.T, g models.GameType) *Framework {
	t.Helper()
	cfg := DefaultConfig(g)
	cfg.Now = fixedNow
	f, err := New(cfg)
	require.NoError(t, err)
	return f
}

func simulated(t *testing.T, g models.GameType, periods int) []models.HistoryRecord {
	t.Helper()
	cfg, err := models.LookupGame(g)
	require.NoError(t, err)
	return storage.SimulatedHistory(cfg, periods, refTime.AddDate(0, 0, -1), 7)
}

type stubLoader struct {
	records []models.HistoryRecord
	err     error
	calls   int
}

func (s *stubLoader) Load(context.Context) ([]models.HistoryRecord, error) {
	s.calls++
	return s.records, s.err
}

func TestNewRejectsUnknownGame(t *testing.T) {
	_, err := New(DefaultConfig("pick3"))
	assert.ErrorIs(t, err, models.ErrUnsupportedGame)

	cfg := DefaultConfig(models.GameSSQ)
	cfg.Base.HistoryHalfLife = 0
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestPredictKeno8(t *testing.T) {
	f := newFramework(t, models.GameKeno8)
	f.SetHistory(simulated(t, models.GameKeno8, 120))

	result := f.Predict(context.Background(), models.NewEventSnapshot(refTime))

	main := result.PrimarySelection[models.BucketMain]
	require.Len(t, main, 10)
	seen := map[int]bool{}
	for _, n := range main {
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 80)
		assert.False(t, seen[n])
		seen[n] = true
	}
	assert.IsIncreasing(t, main)
	assert.Len(t, result.Scores, 80)
	assert.Len(t, result.CandidatePool[models.BucketHighProbability], 15)
	assert.Len(t, result.CandidatePool[models.BucketLowProbability], 10)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, models.GameKeno8, result.Game)
	assert.Equal(t, 120, result.Metadata.HistorySize)
	assert.Equal(t, scoring.Spring, result.Metadata.Season)
	assert.Equal(t, "KunDui", result.Metadata.Hexagram.Primary)
	assert.True(t, result.Metadata.Weights.DynamicApplied)
	assert.False(t, result.Metadata.Weights.OverrideApplied)
	require.NotNil(t, result.Metadata.Mystic)
	require.NotNil(t, result.Metadata.Weights.Base)
	assert.Len(t, result.Metadata.ElementMap, 80)

	grouped := 0
	for _, nums := range result.Metadata.ElementGroups {
		grouped += len(nums)
	}
	assert.Equal(t, 80, grouped)
}

func TestPredictSSQAndDLTShapes(t *testing.T) {
	ssq := newFramework(t, models.GameSSQ)
	ssq.SetHistory(simulated(t, models.GameSSQ, 80))
	res := ssq.Predict(context.Background(), models.NewEventSnapshot(refTime))
	reds := res.PrimarySelection[models.BucketRed]
	require.Len(t, reds, 6)
	counts := [3]int{}
	for _, n := range reds {
		counts[min((n-1)/11, 2)]++
	}
	assert.Equal(t, [3]int{2, 2, 2}, counts)
	blue := res.PrimarySelection[models.BucketBlue]
	require.Len(t, blue, 1)
	assert.GreaterOrEqual(t, blue[0], 1)
	assert.LessOrEqual(t, blue[0], 16)

	dlt := newFramework(t, models.GameDLT)
	dlt.SetHistory(simulated(t, models.GameDLT, 80))
	res = dlt.Predict(context.Background(), models.NewEventSnapshot(refTime))
	assert.Len(t, res.PrimarySelection[models.BucketFront], 5)
	assert.Len(t, res.PrimarySelection[models.BucketBack], 2)
	assert.Len(t, res.CandidatePool[models.BucketFrontTop], 15)
}

func TestPredictWithIsPure(t *testing.T) {
	f := newFramework(t, models.GameSSQ)
	records := simulated(t, models.GameSSQ, 60)
	f.SetHistory(records)
	h := f.History()
	base := f.BaseParameters()

	override := &models.ParameterOverride{Params: models.DefaultScoringParameters()}
	event := models.NewEventSnapshot(refTime)

	first := f.PredictWith(event, h, PredictOptions{Override: override})
	second := f.PredictWith(event, h, PredictOptions{Override: override})

	assert.Equal(t, first.Scores, second.Scores)
	assert.Equal(t, first.PrimarySelection, second.PrimarySelection)
	assert.Equal(t, first.CandidatePool, second.CandidatePool)
	assert.Nil(t, f.ParameterOverride())
	assert.Equal(t, base, f.BaseParameters())
	assert.Equal(t, 60, f.History().Len())

	withoutOverride := f.PredictWith(event, h, PredictOptions{})
	assert.NotEqual(t, first.Metadata.Weights.Active, withoutOverride.Metadata.Weights.Active)
}

func TestPredictWithShorterHistoryChangesNothingShared(t *testing.T) {
	f := newFramework(t, models.GameKeno8)
	f.SetHistory(simulated(t, models.GameKeno8, 100))
	h := f.History()
	event := models.NewEventSnapshot(refTime)

	full := f.PredictWith(event, h, PredictOptions{})
	_ = f.PredictWith(event, h.Prefix(40), PredictOptions{})
	again := f.PredictWith(event, h, PredictOptions{})

	assert.Equal(t, full.Scores, again.Scores)
	assert.Equal(t, 100, h.Len())
}

func TestPredictWithConcurrent(t *testing.T) {
	f := newFramework(t, models.GameKeno8)
	f.SetHistory(simulated(t, models.GameKeno8, 100))
	h := f.History()
	event := models.NewEventSnapshot(refTime)
	want := f.PredictWith(event, h, PredictOptions{}).Scores

	var wg sync.WaitGroup
	results := make([]map[int]float64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.PredictWith(event, h, PredictOptions{}).Scores
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestPredictOverride(t *testing.T) {
	f := newFramework(t, models.GameKeno8)
	f.SetHistory(simulated(t, models.GameKeno8, 60))
	params := models.ScoringParameters{
		HexWeights:      [3]float64{0.6, 0.2, 0.2},
		HistoryWeight:   0.3,
		RecencyWeight:   0.3,
		GapWeight:       0.2,
		CalendarWeight:  0.2,
		HistoryHalfLife: 45,
		HistoryWindow:   50,
	}

	f.SetParameterOverride(&models.ParameterOverride{Params: params, Dynamic: false})
	static := f.Predict(context.Background(), models.NewEventSnapshot(refTime))
	assert.Equal(t, params, static.Metadata.Weights.Active)
	assert.True(t, static.Metadata.Weights.OverrideApplied)
	assert.False(t, static.Metadata.Weights.DynamicApplied)
	assert.Nil(t, static.Metadata.Mystic)
	assert.Nil(t, static.Metadata.Weights.Base)
	assert.Equal(t, 50, static.Metadata.Weights.HistoryWindow)

	f.SetParameterOverride(&models.ParameterOverride{Params: params, Dynamic: true})
	dynamic := f.Predict(context.Background(), models.NewEventSnapshot(refTime))
	assert.True(t, dynamic.Metadata.Weights.DynamicApplied)
	assert.InDelta(t, params.WeightTotal(), dynamic.Metadata.Weights.Active.WeightTotal(), 1e-9)
	assert.Equal(t, 45.0, dynamic.Metadata.Weights.BaseHalfLife)

	f.SetParameterOverride(nil)
	assert.Nil(t, f.ParameterOverride())
}

func TestStaticWeightsSkipDynamicLayer(t *testing.T) {
	cfg := DefaultConfig(models.GameKeno8)
	cfg.Dynamic = false
	cfg.Now = fixedNow
	f, err := New(cfg)
	require.NoError(t, err)
	f.SetHistory(simulated(t, models.GameKeno8, 60))

	res := f.Predict(context.Background(), models.NewEventSnapshot(refTime))
	assert.False(t, res.Metadata.Weights.DynamicApplied)
	require.NotNil(t, res.Metadata.Mystic)
	assert.Equal(t, res.Metadata.Weights.BaseHalfLife, res.Metadata.Weights.HalfLifeDays)
}

func TestPredictLoadsLazily(t *testing.T) {
	loader := &stubLoader{records: simulated(t, models.GameSSQ, 30)}
	cfg := DefaultConfig(models.GameSSQ)
	cfg.Loader = loader
	cfg.Now = fixedNow
	f, err := New(cfg)
	require.NoError(t, err)

	res := f.Predict(context.Background(), models.NewEventSnapshot(refTime))
	assert.Equal(t, 30, res.Metadata.HistorySize)
	_ = f.Predict(context.Background(), models.NewEventSnapshot(refTime))
	assert.Equal(t, 1, loader.calls)
}

func TestPredictWithoutData(t *testing.T) {
	loader := &stubLoader{err: errors.New("offline")}
	cfg := DefaultConfig(models.GameSSQ)
	cfg.Loader = loader
	cfg.Now = fixedNow
	f, err := New(cfg)
	require.NoError(t, err)

	res := f.Predict(context.Background(), models.NewEventSnapshot(refTime))
	assert.Equal(t, 0, res.Metadata.HistorySize)
	assert.Len(t, res.PrimarySelection[models.BucketRed], 6)
	assert.Len(t, res.Scores, 33)
}

func TestPredictEchoesCustomFactors(t *testing.T) {
	f := newFramework(t, models.GameDLT)
	event := models.NewEventSnapshot(refTime)
	event.CustomFactors["question"] = "weekend"
	res := f.PredictWith(event, nil, PredictOptions{})
	assert.Equal(t, map[string]string{"question": "weekend"}, res.Metadata.Extra)
}

func TestBuildProfileAddsHexagramElements(t *testing.T) {
	f := newFramework(t, models.GameSSQ)
	state := hexagram.NewEngine(hexagram.MovingStandard).Cast(models.NewEventSnapshot(refTime))
	p := f.buildProfile(refTime, state)

	// all three hexagrams are earth, and earth overcomes water
	assert.Contains(t, p.FavorableElements, models.Earth)
	assert.Contains(t, p.UnfavorableElements, models.Water)
	assert.Equal(t, models.SortedElements(p.FavorableElements), p.FavorableElements)

	nullCfg := DefaultConfig(models.GameSSQ)
	nullCfg.Provider = calendar.Null{}
	nf, err := New(nullCfg)
	require.NoError(t, err)
	np := nf.buildProfile(refTime, state)
	assert.Equal(t, []models.Element{models.Earth}, np.FavorableElements)
	assert.Equal(t, []models.Element{models.Water}, np.UnfavorableElements)
}

func TestMystic(t *testing.T) {
	p := calendar.NewSolarBuilder().Profile(refTime)
	m := Mystic(p, refTime)

	// solar month pillar: stems 1+6+1+10, branches 5+5+5+10, 43 folds to palace 7
	assert.Equal(t, 7, m.Palace)
	assert.InDelta(t, 0.4, m.Scalar, 1e-12)
	assert.Equal(t, 1, m.NumericSpell)
	require.Len(t, m.PreferredElements, 5)
	assert.Equal(t, models.Metal, m.PreferredElements[0])
	assert.ElementsMatch(t, models.BaseCycle, m.PreferredElements)
	assert.Equal(t, m, Mystic(p, refTime))

	// lunar month pillar 戊卯: stems 1+5+1+10, branches 5+4+5+10, 41 folds to palace 5
	lunar := Mystic(calendar.NewBuilder().Profile(refTime), refTime)
	assert.Equal(t, 5, lunar.Palace)
	assert.InDelta(t, 0.0, lunar.Scalar, 1e-12)

	empty := Mystic(calendar.Null{}.Profile(refTime), refTime)
	assert.Equal(t, 9, empty.Palace)
	assert.InDelta(t, 0.8, empty.Scalar, 1e-12)
	assert.Equal(t, 1, empty.NumericSpell)
	assert.Equal(t, models.Fire, empty.PreferredElements[0])
	assert.Equal(t, 0.5, empty.Illumination)
}

func TestBaseParametersKeepWeightTotal(t *testing.T) {
	initial := models.DefaultScoringParameters()
	engine := hexagram.NewEngine(hexagram.MovingStandard)
	builder := calendar.NewBuilder()

	for h := 0; h < 24*30; h += 5 {
		ref := refTime.Add(time.Duration(h) * time.Hour)
		state := engine.Cast(models.NewEventSnapshot(ref))
		profile := builder.Profile(ref)
		mystic := Mystic(profile, ref)

		base := BaseParameters(initial, ref, profile, state, mystic)
		require.InDelta(t, initial.WeightTotal(), base.WeightTotal(), 1e-9)
		require.InDelta(t, 1.0, base.HexWeights[0]+base.HexWeights[1]+base.HexWeights[2], 1e-9)
		require.GreaterOrEqual(t, base.HistoryHalfLife, 15.0)
		require.GreaterOrEqual(t, base.HistoryWindow, 40)
		require.Equal(t, base, BaseParameters(initial, ref, profile, state, mystic))

		dyn := DynamicParameters(base, ref, profile, state)
		require.InDelta(t, base.WeightTotal(), dyn.WeightTotal(), 1e-9)
		require.InDelta(t, 1.0, dyn.HexWeights[0]+dyn.HexWeights[1]+dyn.HexWeights[2], 1e-9)
		require.GreaterOrEqual(t, dyn.HistoryHalfLife, 12.0)
		require.LessOrEqual(t, dyn.HistoryHalfLife, base.HistoryHalfLife*1.6+1e-9)
		require.Equal(t, base.HistoryWindow, dyn.HistoryWindow)
	}
}

func TestDynamicParametersShiftTowardChanging(t *testing.T) {
	base := models.DefaultScoringParameters()
	base.HexWeights = [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
	state := hexagram.State{MovingLines: []int{3}}
	profile := models.CalendarProfile{}

	out := DynamicParameters(base, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), profile, state)
	assert.Greater(t, out.HexWeights[models.HexChanging], out.HexWeights[models.HexMutual])
	assert.Greater(t, out.HexWeights[models.HexMutual], out.HexWeights[models.HexPrimary])
	// illumination defaults to 0.5 without a moon
	assert.InDelta(t, 90*(0.7+0.25), out.HistoryHalfLife, 1e-9)
}

func TestElementMap(t *testing.T) {
	p := calendar.NewBuilder().Profile(refTime)
	state := hexagram.NewEngine(hexagram.MovingStandard).Cast(models.NewEventSnapshot(refTime))
	mystic := Mystic(p, refTime)

	cycle := ElementCycle(p, state, &mystic)
	assert.Equal(t, mystic.PreferredElements, cycle)

	m := ElementMap(33, refTime, p, state, &mystic, cycle)
	require.Len(t, m, 33)
	for n := 1; n <= 33; n++ {
		assert.True(t, m[n].Valid(), "number %d", n)
	}
	// consecutive numbers walk the cycle
	for n := 1; n < 33; n++ {
		i := indexOf(cycle, m[n])
		assert.Equal(t, cycle[(i+1)%len(cycle)], m[n+1])
	}
}

func TestElementMapOffset(t *testing.T) {
	state := hexagram.State{Primary: hexagram.Compose(0, 0)} // decimal 63
	profile := models.CalendarProfile{}
	cycle := models.BaseCycle

	m := ElementMap(5, refTime, profile, state, nil, cycle)
	offset := 738966 + 63
	for n := 1; n <= 5; n++ {
		assert.Equal(t, cycle[(offset+n-1)%5], m[n])
	}

	assert.Equal(t, 1, ordinal(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 738966, ordinal(refTime))
}

func TestElementCycleWithoutMystic(t *testing.T) {
	profile := models.CalendarProfile{
		FavorableElements:   []models.Element{models.Water},
		UnfavorableElements: []models.Element{models.Fire},
		Elements:            map[string]models.Element{models.PillarYear: models.Wood},
	}
	state := hexagram.State{Primary: hexagram.Compose(0, 0)}
	cycle := ElementCycle(profile, state, nil)
	assert.Equal(t, []models.Element{models.Water, models.Wood, models.Metal, models.Fire, models.Earth}, cycle)
}

func TestGuidanceBounds(t *testing.T) {
	f := newFramework(t, models.GameSSQ)
	f.SetHistory(simulated(t, models.GameSSQ, 150))

	g := f.InferGuidance(context.Background(), models.NewEventSnapshot(refTime), 100, 2)
	assert.GreaterOrEqual(t, g.Iterations, 36)
	assert.LessOrEqual(t, g.Iterations, 180)
	assert.GreaterOrEqual(t, g.Population, 8)
	assert.LessOrEqual(t, g.Population, 28)
	assert.GreaterOrEqual(t, g.MutationStrength, 0.06)
	assert.LessOrEqual(t, g.MutationStrength, 0.28)
	assert.Less(t, g.HalfLifeBounds[0], g.HalfLifeBounds[1])
	assert.GreaterOrEqual(t, g.WindowBounds[0], 40)
	assert.GreaterOrEqual(t, g.WindowBounds[1], g.WindowBounds[0]+12)
	assert.InDelta(t, 1.0, g.HexFocus[0]+g.HexFocus[1]+g.HexFocus[2], 1e-9)
	require.NotNil(t, g.Seed)

	again := f.InferGuidance(context.Background(), models.NewEventSnapshot(refTime), 100, 2)
	assert.Equal(t, g, again)
}

func TestGuidanceSeedAndDefaults(t *testing.T) {
	profile := models.CalendarProfile{
		FavorableElements:   []models.Element{models.Wood, models.Fire},
		UnfavorableElements: []models.Element{models.Metal},
	}
	base := models.DefaultScoringParameters()
	g := Guidance(base, nil, refTime, profile, hexagram.State{}, 0, 0, 0)

	want := int64(2024032110) ^ int64(2<<5) ^ int64(1<<7) ^ int64(1<<1) ^ 1
	require.NotNil(t, g.Seed)
	assert.Equal(t, want, *g.Seed)
	// window defaults to 117 when unset
	assert.Equal(t, 87, g.WindowBounds[0])
	assert.InDelta(t, 90*0.65, g.HalfLifeBounds[0], 1e-9)
}

func TestRecommendGuardSets(t *testing.T) {
	f := newFramework(t, models.GameSSQ)
	f.SetHistory(simulated(t, models.GameSSQ, 150))
	h := f.History()
	res := f.PredictWith(models.NewEventSnapshot(refTime), h, PredictOptions{})

	sets := f.RecommendGuardSets(res, h, DefaultGuardRequest())
	require.NotEmpty(t, sets)
	require.LessOrEqual(t, len(sets), 3)
	for _, s := range sets {
		assert.Len(t, s[models.BucketRed], 6)
		blues := s[models.BucketBlue]
		assert.Len(t, blues, 5)
		for _, b := range blues {
			assert.GreaterOrEqual(t, b, 1)
			assert.LessOrEqual(t, b, 16)
		}
	}

	assert.Len(t, f.BlueScores(h, 120), 16)

	dlt := newFramework(t, models.GameDLT)
	dres := dlt.PredictWith(models.NewEventSnapshot(refTime), nil, PredictOptions{})
	assert.Nil(t, dlt.RecommendGuardSets(dres, nil, DefaultGuardRequest()))
	assert.Empty(t, dlt.BlueScores(nil, 120))
}

func indexOf(list []models.Element, e models.Element) int {
	for i, v := range list {
		if v == e {
			return i
		}
	}
	return -1
}
