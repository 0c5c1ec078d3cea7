// Package game maps number scores to game-specific selections.
//
// Each supported game has one Adapter that knows its bucket names, its
// selection and pool rules, how a backtest counts hits, and how guard sets
// (alternative full tickets) are assembled. Adapters are looked up by game
// type in a fixed registry.
package game

import (
	"fmt"
	"sort"

	"github.com/rewired-gh/meihua/internal/models"
)

// Adapter turns a score map into buckets for one game.
type Adapter interface {
	// Game returns the game type the adapter serves.
	Game() models.GameType
	// Config returns the game configuration.
	Config() models.GameConfig
	// Select returns the primary selection.
	Select(scores map[int]float64) models.Buckets
	// BuildPool returns the candidate pool.
	BuildPool(scores map[int]float64) models.Buckets
	// Evaluate counts hits of the selection and of the pool against a draw.
	Evaluate(selection, pool models.Buckets, draw models.HistoryRecord) (primaryHits, poolHits int)
	// GuardSets returns up to opts.NumSets alternative tickets, or nil when
	// the game has none.
	GuardSets(scores map[int]float64, opts GuardOptions) []models.Buckets
}

// GuardOptions carries the context guard-set scoring uses.
type GuardOptions struct {
	NumSets    int
	ExtraBlue  int
	BlueScores map[int]float64
	ElementMap map[int]models.Element
	Profile    *models.CalendarProfile
}

// DefaultGuardOptions returns three sets with five extra blues.
func DefaultGuardOptions() GuardOptions {
	return GuardOptions{NumSets: 3, ExtraBlue: 5}
}

var registry = map[models.GameType]func(models.GameConfig) Adapter{
	models.GameKeno8: func(cfg models.GameConfig) Adapter { return &Keno8{cfg: cfg} },
	models.GameSSQ:   func(cfg models.GameConfig) Adapter { return &SSQ{cfg: cfg} },
	models.GameDLT:   func(cfg models.GameConfig) Adapter { return &DLT{cfg: cfg} },
}

// New returns the adapter for a game type with its stock configuration.
func New(t models.GameType) (Adapter, error) {
	cfg, err := models.LookupGame(t)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig returns the adapter for cfg.Type using cfg.
func NewWithConfig(cfg models.GameConfig) (Adapter, error) {
	build, ok := registry[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedGame, cfg.Type)
	}
	return build(cfg), nil
}

type scored struct {
	number int
	score  float64
}

// rank orders numbers by descending score, breaking ties by ascending number.
func rank(scores map[int]float64) []scored {
	out := make([]scored, 0, len(scores))
	for n, s := range scores {
		out = append(out, scored{number: n, score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].number < out[j].number
	})
	return out
}

// top returns the count highest scoring numbers in rank order.
func top(scores map[int]float64, count int) []int {
	ranked := rank(scores)
	count = min(count, len(ranked))
	out := make([]int, count)
	for i := range out {
		out[i] = ranked[i].number
	}
	return out
}

// bottom returns the count lowest scoring numbers, lowest first.
// Ties break by ascending number.
func bottom(scores map[int]float64, count int) []int {
	ranked := rank(scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score < ranked[j].score
		}
		return ranked[i].number < ranked[j].number
	})
	count = min(count, len(ranked))
	out := make([]int, count)
	for i := range out {
		out[i] = ranked[i].number
	}
	return out
}

func sortedCopy(nums []int) []int {
	out := append([]int(nil), nums...)
	sort.Ints(out)
	return out
}

// hits counts the distinct drawn numbers present in picks.
func hits(drawn, picks []int) int {
	set := make(map[int]bool, len(picks))
	for _, n := range picks {
		set[n] = true
	}
	seen := make(map[int]bool, len(drawn))
	count := 0
	for _, n := range drawn {
		if set[n] && !seen[n] {
			count++
		}
		seen[n] = true
	}
	return count
}

// foldMod is the 1-indexed modulo: a zero remainder maps to n.
func foldMod(v, n int) int {
	m := v % n
	if m < 0 {
		m += n
	}
	if m == 0 {
		return n
	}
	return m
}

func sum(nums []int) int {
	total := 0
	for _, n := range nums {
		total += n
	}
	return total
}

func contains(nums []int, v int) bool {
	for _, n := range nums {
		if n == v {
			return true
		}
	}
	return false
}

// comboTraits scores the calendar affinity of a candidate ticket.
type comboTraits struct {
	adjacency float64 // penalty per adjacent pair
	covered   float64 // bonus per distinct favorable element covered
	cold      float64 // penalty per number of an unfavorable element
	mod       float64 // bonus per number matching a favored number mod 9
}

func (c comboTraits) score(selection []int, scores map[int]float64, opts GuardOptions) float64 {
	total := 0.0
	for _, n := range selection {
		total += scores[n]
	}
	for i := 1; i < len(selection); i++ {
		d := selection[i] - selection[i-1]
		if d <= 1 && d >= -1 {
			total -= c.adjacency
		}
	}

	profile := opts.Profile
	if profile == nil {
		return total
	}
	if len(opts.ElementMap) > 0 && len(profile.FavorableElements) > 0 {
		covered := map[models.Element]bool{}
		for _, n := range selection {
			if e, ok := opts.ElementMap[n]; ok && models.ContainsElement(profile.FavorableElements, e) {
				covered[e] = true
			}
		}
		total += c.covered * float64(len(covered))
	}
	if len(opts.ElementMap) > 0 && len(profile.UnfavorableElements) > 0 {
		for _, n := range selection {
			if e, ok := opts.ElementMap[n]; ok && models.ContainsElement(profile.UnfavorableElements, e) {
				total -= c.cold
			}
		}
	}
	if len(profile.FavoredNumbers) > 0 {
		mods := map[int]bool{}
		for _, f := range profile.FavoredNumbers {
			mods[foldMod(f, 9)] = true
		}
		for _, n := range selection {
			if mods[foldMod(n, 9)] {
				total += c.mod
			}
		}
	}
	return total
}

type candidateSet struct {
	score     float64
	selection []int
	reserve   []int
}

// bestUnique sorts candidates by descending score, keeping generation order
// for ties, and returns up to limit sets with distinct selections. At least
// one set is returned when candidates is not empty.
func bestUnique(candidates []candidateSet, limit int) []candidateSet {
	limit = max(limit, 1)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	seen := map[string]bool{}
	var out []candidateSet
	for _, c := range candidates {
		if len(out) >= limit {
			break
		}
		key := fmt.Sprint(c.selection)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
