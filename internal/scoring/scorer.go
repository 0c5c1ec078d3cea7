package scoring

import (
	"time"

	"github.com/rewired-gh/meihua/internal/calendar"
	"github.com/rewired-gh/meihua/internal/hexagram"
	"github.com/rewired-gh/meihua/internal/models"
)

// favoredModBase is the modulus favored numbers are matched under.
const favoredModBase = 9

// Scorer combines hexagram, history and calendar signals under one parameter set.
// A Scorer is immutable; build a new one to change weights.
type Scorer struct {
	params models.ScoringParameters
}

// NewScorer creates a scorer.
func NewScorer(params models.ScoringParameters) *Scorer {
	return &Scorer{params: params}
}

// Params returns the scorer's parameters.
func (s *Scorer) Params() models.ScoringParameters {
	return s.params
}

// Score returns a score for every number in 1..total.
//
// Each defined hexagram places weight*1.5*seasonal on (decimal mod total)+1
// and weight*1.0 and weight*0.8 on its two neighbors, folding around total.
// History features then add linearly. When a profile is given and the
// calendar weight is positive, numbers of favorable elements gain the weight,
// unfavorable ones lose 0.6 of it, and numbers matching a favored number
// mod 9 gain 0.4 of it.
func (s *Scorer) Score(
	state hexagram.State,
	f Features,
	total int,
	ref time.Time,
	elementMap map[int]models.Element,
	profile *models.CalendarProfile,
) map[int]float64 {
	p := s.params
	season := SeasonFor(ref)
	scores := make(map[int]float64, total)

	for _, slot := range state.Slots() {
		if slot.Hexagram == nil {
			continue
		}
		w := p.HexWeights[slot.Weight]
		base := slot.Hexagram.DecimalValue()%total + 1
		scores[base] += w * 1.5 * SeasonalFactor(season, slot.Hexagram.Element)
		scores[calendar.FoldMod(base+1, total)] += w * 1.0
		scores[calendar.FoldMod(base-1, total)] += w * 0.8
	}

	for num := 1; num <= total; num++ {
		scores[num] += p.HistoryWeight*f.Frequency[num] +
			p.RecencyWeight*f.Recency[num] +
			p.GapWeight*f.Gap[num]
	}

	if profile == nil || p.CalendarWeight <= 0 {
		return scores
	}

	for num, e := range elementMap {
		switch {
		case models.ContainsElement(profile.FavorableElements, e):
			scores[num] += p.CalendarWeight
		case models.ContainsElement(profile.UnfavorableElements, e):
			scores[num] -= p.CalendarWeight * 0.6
		}
	}

	if len(profile.FavoredNumbers) > 0 {
		for num := 1; num <= total; num++ {
			rem := calendar.FoldMod(num, favoredModBase)
			for _, fav := range profile.FavoredNumbers {
				if rem == calendar.FoldMod(fav, favoredModBase) {
					scores[num] += p.CalendarWeight * 0.4
					break
				}
			}
		}
	}
	return scores
}
