package inference

import (
	"math"
	"math/rand"
	"time"

	"github.com/rewired-gh/meihua/internal/calendar"
	"github.com/rewired-gh/meihua/internal/hexagram"
	"github.com/rewired-gh/meihua/internal/models"
	"github.com/rewired-gh/meihua/internal/scoring"
)

// palaceElements maps a nine-palace number to its element.
var palaceElements = map[int]models.Element{
	1: models.Water,
	2: models.Earth,
	3: models.Wood,
	4: models.Metal,
	5: models.Fire,
	6: models.Water,
	7: models.Metal,
	8: models.Earth,
	9: models.Fire,
}

// seasonHexBias scales primary, mutual and changing weights per season.
var seasonHexBias = map[string][3]float64{
	scoring.Spring:       {1.12, 1.02, 0.96},
	scoring.Summer:       {1.05, 1.05, 0.95},
	scoring.Autumn:       {1.08, 1.0, 1.05},
	scoring.Winter:       {0.95, 1.02, 1.12},
	scoring.Transitional: {1.0, 1.0, 1.0},
}

// hourSeed encodes t as the integer YYYYMMDDHH.
func hourSeed(t time.Time) int64 {
	return int64(t.Year())*1_000_000 + int64(t.Month())*10_000 + int64(t.Day())*100 + int64(t.Hour())
}

// ordinal returns the proleptic Gregorian day number of t's date, 0001-01-01 being 1.
func ordinal(t time.Time) int {
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(date.Unix()/86400) + 719163
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// Mystic derives the nine-palace bias of a calendar profile.
//
// Stem and branch codes of the four pillars are summed (missing codes count
// as 5 and 6), folded into a palace 1..9, and the palace's element leads the
// preferred elements. The remaining elements follow in an order shuffled by
// a seed drawn from the reference hour.
func Mystic(profile models.CalendarProfile, ref time.Time) models.MysticBias {
	stemScore, branchScore := 0, 0
	for _, key := range models.PillarOrder {
		g, ok := profile.Ganzhi[key]
		if !ok {
			continue
		}
		s := calendar.StemCode(g.Stem)
		if s == 0 {
			s = 5
		}
		b := calendar.BranchCode(g.Branch)
		if b == 0 {
			b = 6
		}
		stemScore += s
		branchScore += b
	}

	palace := calendar.FoldMod(stemScore+branchScore, 9)
	scalar := float64(palace-5) / 5.0
	spell := (stemScore*max(branchScore, 1))%9 + 1

	rng := rand.New(rand.NewSource(hourSeed(ref) + int64(palace)*17 + int64(spell)*7))
	preferred := []models.Element{palaceElements[palace]}
	var extras []models.Element
	for _, e := range models.BaseCycle {
		if e != preferred[0] {
			extras = append(extras, e)
		}
	}
	rng.Shuffle(len(extras), func(i, j int) { extras[i], extras[j] = extras[j], extras[i] })

	return models.MysticBias{
		Palace:            palace,
		Scalar:            scalar,
		PreferredElements: append(preferred, extras...),
		NumericSpell:      spell,
		Illumination:      profile.Illumination(),
	}
}

// BaseParameters adapts the configured parameters to a cast.
//
// Hex weights take a seasonal bias and shift toward the changing hexagram
// when lines move. The four history weights are reshaped by the mystic
// scalar, the moon and the favorable element count, then rescaled to their
// configured total. Half-life and window follow the moon and the scalar.
func BaseParameters(
	initial models.ScoringParameters,
	ref time.Time,
	profile models.CalendarProfile,
	state hexagram.State,
	mystic models.MysticBias,
) models.ScoringParameters {
	illumination := profile.Illumination()
	favored := len(profile.FavorableElements)
	moving := len(state.MovingLines)
	rng := rand.New(rand.NewSource(hourSeed(ref) + int64(favored)*19 + int64(moving)*23))

	hex := initial.HexWeights
	bias, ok := seasonHexBias[scoring.SeasonFor(ref)]
	if !ok {
		bias = seasonHexBias[scoring.Transitional]
	}
	for i := range hex {
		hex[i] *= bias[i]
	}
	if moving > 0 {
		push := math.Min(float64(moving)/3.0, 1.5)
		hex[models.HexChanging] += push * 0.2
		hex[models.HexPrimary] = math.Max(hex[models.HexPrimary]-push*0.1, 0.05)
	}
	if len(mystic.PreferredElements) > 0 {
		switch mystic.PreferredElements[0] {
		case models.Wood, models.Fire:
			hex[models.HexPrimary] *= 1.05
		case models.Metal, models.Water:
			hex[models.HexMutual] *= 1.05
		}
	}

	w := [4]float64{
		initial.HistoryWeight * (1.0 + 0.12*-mystic.Scalar),
		initial.RecencyWeight * (0.8 + 0.4*illumination),
		initial.GapWeight * (0.9 + 0.1*uniform(rng, 0.8, 1.2)),
		initial.CalendarWeight * (0.7 + 0.3*(float64(favored)/6.0+0.3)),
	}

	halfLife := math.Max(15.0, initial.HistoryHalfLife*(0.8+0.6*(1.0-illumination)))
	halfLife *= 1.0 + mystic.Scalar*0.15
	halfLife = math.Max(15.0, halfLife)

	window := int(math.Max(60, initial.HistoryHalfLife*(1.3-mystic.Scalar)))
	window += int(uniform(rng, 0, 25))
	if profile.FavorDelta() > 0 {
		window = int(float64(window) * 0.95)
	}
	window = max(40, window)

	out := initial.WithWeights(models.RescaleWeights(w, initial.WeightTotal()))
	out.HexWeights = models.NormalizeHex(hex)
	out.HistoryHalfLife = halfLife
	out.HistoryWindow = window
	return out
}

// DynamicParameters layers cast-dependent adjustments on a base set. The
// result carries the effective half-life and keeps the weight total and
// window of base.
func DynamicParameters(
	base models.ScoringParameters,
	ref time.Time,
	profile models.CalendarProfile,
	state hexagram.State,
) models.ScoringParameters {
	hex := base.HexWeights
	if moving := len(state.MovingLines); moving > 0 {
		change := clamp(float64(moving)/3.0, 0, 1.5)
		hex[models.HexChanging] += change * 0.18
		hex[models.HexPrimary] = math.Max(hex[models.HexPrimary]-change*0.1, 0.05)
		hex[models.HexMutual] += change * 0.04
	}

	illumination := profile.Illumination()
	favored := float64(len(profile.FavorableElements))
	delta := float64(profile.FavorDelta())

	w := [4]float64{
		base.HistoryWeight * (0.9 + 0.1*clamp(-delta/5.0, -0.6, 0.6)),
		base.RecencyWeight * (0.75 + 0.45*illumination),
		base.GapWeight * (0.9 + 0.1*clamp(delta/5.0, -0.6, 0.6)),
		base.CalendarWeight * (0.65 + 0.35*clamp(favored/6.0, 0, 1.2)),
	}
	switch scoring.SeasonFor(ref) {
	case scoring.Spring:
		w[1] *= 1.12
	case scoring.Summer:
		w[2] *= 1.08
	case scoring.Autumn:
		w[0] *= 1.1
	case scoring.Winter:
		w[3] *= 1.15
	}

	bh := base.HistoryHalfLife
	out := base.WithWeights(models.RescaleWeights(w, base.WeightTotal()))
	out.HexWeights = models.NormalizeHex(hex)
	out.HistoryHalfLife = clamp(bh*(0.7+0.5*(1.0-illumination)), 12.0, bh*1.6)
	return out
}
