package inference

import (
	"math"
	"time"

	"github.com/rewired-gh/meihua/internal/hexagram"
	"github.com/rewired-gh/meihua/internal/models"
	"github.com/rewired-gh/meihua/internal/scoring"
)

var guidanceSeasonFactor = map[string]float64{
	scoring.Spring: 1.05,
	scoring.Autumn: 1.08,
	scoring.Winter: 1.12,
}

// defaultGuidanceHalfLife is used when the parameters carry no half-life.
const defaultGuidanceHalfLife = 90.0

// Guidance derives genetic algorithm hyperparameters from a cast.
//
// base is the parameter set the run starts from and mystic its bias, nil
// when base came from an override. historySize is the number of draws
// available and windowSize and step describe the backtest each candidate
// is scored with; zero values select the defaults.
func Guidance(
	base models.ScoringParameters,
	mystic *models.MysticBias,
	ref time.Time,
	profile models.CalendarProfile,
	state hexagram.State,
	historySize, windowSize, step int,
) models.EvolutionGuidance {
	scalar := 0.0
	if mystic != nil {
		scalar = mystic.Scalar
	}
	moving := float64(len(state.MovingLines))
	illumination := profile.Illumination()
	favored := len(profile.FavorableElements)
	unfavorable := len(profile.UnfavorableElements)
	delta := float64(favored - unfavorable)

	historySize = max(historySize, 1)
	if windowSize <= 0 {
		windowSize = max(60, min(historySize, 180))
	}
	step = max(1, step)

	logFactor := math.Log1p(float64(historySize))
	seasonFactor, ok := guidanceSeasonFactor[scoring.SeasonFor(ref)]
	if !ok {
		seasonFactor = 1.0
	}
	coverage := clamp(float64(windowSize)/float64(historySize), 0.3, 1.1)
	explorationPush := math.Max(0, -scalar)*0.18 + math.Abs(delta)*0.02 + (0.5-illumination)*0.25

	iterations := 48.0 + logFactor*6.0
	iterations *= seasonFactor
	iterations *= 1.0 + moving*0.08 + explorationPush
	iterations *= 0.9 + 0.25*coverage
	iterations = clamp(iterations, 36, 180)

	population := 10.0 + logFactor*1.2
	population += moving * 0.5
	population += math.Max(0, -scalar) * 3.0
	population += math.Max(0, delta) * 0.35
	population *= 1.0 + (0.5-illumination)*0.12
	population = clamp(population, 8, 28)

	focusWeight := clamp(0.22+math.Max(0, scalar)*0.28+moving*0.04, 0.18, 0.55)
	exploration := clamp(0.4+math.Max(0, -scalar)*0.45+moving*0.08+math.Abs(delta)*0.05, 0.2, 1.0)

	mutation := clamp(0.12*(1.0+exploration*0.6), 0.06, 0.28)
	decay := clamp(0.85-exploration*0.15+math.Max(0, scalar)*0.12, 0.6, 1.05)
	center := clamp(0.5+scalar*0.05-delta*0.01, 0.35, 0.65)
	width := clamp(0.18+exploration*0.1-math.Max(0, scalar)*0.06, 0.1, 0.28)

	bh := base.HistoryHalfLife
	if bh == 0 {
		bh = defaultGuidanceHalfLife
	}
	halfMin := clamp(bh*(0.65-scalar*0.08), 12.0, bh*0.95)
	halfMax := clamp(bh*(1.4+exploration*0.25), bh*1.05, bh*2.1)
	if halfMax <= halfMin {
		halfMax = halfMin + 5.0
	}

	baseWindow := base.HistoryWindow
	if baseWindow == 0 {
		baseWindow = int(math.Max(60, bh*1.3))
	}
	windowMin := max(40, int(float64(baseWindow)*(0.75-scalar*0.08)))
	windowMax := max(windowMin+12, int(float64(baseWindow)*(1.35+exploration*0.25)))

	seed := hourSeed(ref) ^ int64(favored<<5) ^ int64(unfavorable<<7) ^ int64(historySize<<1) ^ int64(step)

	return models.EvolutionGuidance{
		Iterations:       int(math.RoundToEven(iterations)),
		Population:       int(math.RoundToEven(population)),
		MutationStrength: mutation,
		MutationDecay:    decay,
		CrossoverCenter:  center,
		CrossoverWidth:   width,
		HexFocus:         base.HexWeights,
		HexFocusWeight:   focusWeight,
		HalfLifeBounds:   [2]float64{halfMin, halfMax},
		WindowBounds:     [2]int{windowMin, windowMax},
		ExplorationBias:  exploration,
		Seed:             &seed,
	}
}
