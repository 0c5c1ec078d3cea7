package game

import (
	"gonum.org/v1/gonum/stat/combin"

	"github.com/rewired-gh/meihua/internal/models"
)

var kenoTraits = comboTraits{adjacency: 0.03, covered: 0.05, cold: 0.03, mod: 0.015}

// Keno8 is the adapter for the 20-of-80 draw game.
type Keno8 struct {
	cfg models.GameConfig
}

// Game implements Adapter.
func (k *Keno8) Game() models.GameType { return models.GameKeno8 }

// Config implements Adapter.
func (k *Keno8) Config() models.GameConfig { return k.cfg }

// Select picks the ten best numbers.
func (k *Keno8) Select(scores map[int]float64) models.Buckets {
	candidates := top(scores, 20)
	return models.Buckets{models.BucketMain: sortedCopy(candidates[:min(10, len(candidates))])}
}

// BuildPool returns the fifteen best and the ten worst numbers.
func (k *Keno8) BuildPool(scores map[int]float64) models.Buckets {
	high := top(scores, 20)
	return models.Buckets{
		models.BucketHighProbability: sortedCopy(high[:min(15, len(high))]),
		models.BucketLowProbability:  sortedCopy(bottom(scores, 10)),
	}
}

// Evaluate counts draw hits against main and against high_probability.
func (k *Keno8) Evaluate(selection, pool models.Buckets, draw models.HistoryRecord) (int, int) {
	return hits(draw.Numbers, selection[models.BucketMain]), hits(draw.Numbers, pool[models.BucketHighProbability])
}

// GuardSets enumerates every combination of the leading candidates and
// returns the best distinct ones with the unused candidates as reserve.
func (k *Keno8) GuardSets(scores map[int]float64, opts GuardOptions) []models.Buckets {
	comboSize := min(10, max(6, k.cfg.DrawnNumbers/2))
	candidates := top(scores, max(20, comboSize+5))
	limit := min(len(candidates), comboSize+3)
	if limit < comboSize {
		limit = len(candidates)
	}
	pool := candidates[:limit]
	if len(pool) == 0 {
		return nil
	}

	var sets []candidateSet
	add := func(selection []int) {
		var reserve []int
		for _, n := range pool {
			if !contains(selection, n) {
				reserve = append(reserve, n)
			}
		}
		reserve = reserve[:min(len(reserve), max(0, len(pool)-comboSize))]
		sets = append(sets, candidateSet{
			score:     kenoTraits.score(selection, scores, opts),
			selection: sortedCopy(selection),
			reserve:   reserve,
		})
	}

	if len(pool) >= comboSize {
		gen := combin.NewCombinationGenerator(len(pool), comboSize)
		idx := make([]int, comboSize)
		for gen.Next() {
			gen.Combination(idx)
			selection := make([]int, comboSize)
			for i, j := range idx {
				selection[i] = pool[j]
			}
			add(selection)
		}
	} else {
		add(append([]int(nil), pool...))
	}

	var out []models.Buckets
	for _, c := range bestUnique(sets, opts.NumSets) {
		out = append(out, models.Buckets{models.BucketMain: c.selection, models.BucketReserve: c.reserve})
	}
	if len(out) == 0 {
		fallback := sortedCopy(pool[:min(comboSize, len(pool))])
		var reserve []int
		for _, n := range pool {
			if !contains(fallback, n) {
				reserve = append(reserve, n)
			}
		}
		out = append(out, models.Buckets{models.BucketMain: fallback, models.BucketReserve: reserve})
	}
	return out
}
