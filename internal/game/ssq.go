package game

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/rewired-gh/meihua/internal/models"
)

// ssqBlueRange is the size of the blue number zone.
const ssqBlueRange = 16

// ssqSegmentSize splits the red zone into 1-11, 12-22 and 23-33.
const ssqSegmentSize = 11

var ssqTraits = comboTraits{adjacency: 0.05, covered: 0.06, cold: 0.04, mod: 0.02}

// SSQ is the adapter for the 6+1 red and blue ball game.
// Selections spread reds across the three segments of the red zone.
type SSQ struct {
	cfg models.GameConfig
}

// Game implements Adapter.
func (s *SSQ) Game() models.GameType { return models.GameSSQ }

// Config implements Adapter.
func (s *SSQ) Config() models.GameConfig { return s.cfg }

func segmentOf(n int) int {
	return min((n-1)/ssqSegmentSize, 2)
}

// segmented takes the best numbers per segment up to distribution, then
// fills to total from the overall ranking.
func segmented(scores map[int]float64, total int, distribution [3]int) []int {
	ranked := rank(scores)
	var buckets [3][]int
	for _, r := range ranked {
		seg := segmentOf(r.number)
		if seg < 0 {
			continue
		}
		if len(buckets[seg]) < distribution[seg] {
			buckets[seg] = append(buckets[seg], r.number)
		}
		full := true
		for i := range buckets {
			if len(buckets[i]) < distribution[i] {
				full = false
				break
			}
		}
		if full {
			break
		}
	}

	var selected []int
	for _, b := range buckets {
		selected = append(selected, sortedCopy(b)...)
	}
	for _, r := range ranked {
		if len(selected) >= total {
			break
		}
		if !contains(selected, r.number) {
			selected = append(selected, r.number)
		}
	}
	return sortedCopy(selected)
}

// Select picks two reds per segment and derives the blue from the red sum.
func (s *SSQ) Select(scores map[int]float64) models.Buckets {
	reds := segmented(scores, 6, [3]int{2, 2, 2})
	return models.Buckets{
		models.BucketRed:  reds,
		models.BucketBlue: {foldMod(sum(reds), ssqBlueRange)},
	}
}

// BuildPool returns eight segmented reds, six reds to avoid and three blues.
func (s *SSQ) BuildPool(scores map[int]float64) models.Buckets {
	reds := segmented(scores, 8, [3]int{3, 3, 2})
	redSum := sum(reds)
	blues := make([]int, 0, 3)
	for i := 1; i <= 3; i++ {
		blues = append(blues, foldMod(redSum+i, ssqBlueRange))
	}
	return models.Buckets{
		models.BucketRedTop:   reds,
		models.BucketRedAvoid: sortedCopy(bottom(scores, 6)),
		models.BucketBlueTop:  blues,
	}
}

// Evaluate counts red hits against red and against red_top.
func (s *SSQ) Evaluate(selection, pool models.Buckets, draw models.HistoryRecord) (int, int) {
	return hits(draw.Numbers, selection[models.BucketRed]), hits(draw.Numbers, pool[models.BucketRedTop])
}

// GuardSets combines two of the five best reds of each segment, keeps the
// best distinct tickets and attaches a shared blue pool.
func (s *SSQ) GuardSets(scores map[int]float64, opts GuardOptions) []models.Buckets {
	const perSegment = 5
	targets := [3]int{2, 2, 2}

	var segments [3][]int
	for _, r := range rank(scores) {
		if r.number < 1 || r.number > s.cfg.TotalNumbers {
			continue
		}
		seg := segmentOf(r.number)
		if len(segments[seg]) < perSegment {
			segments[seg] = append(segments[seg], r.number)
		}
	}
	for i, seg := range segments {
		if len(seg) < targets[i] {
			return nil
		}
	}

	combos := [3][][]int{}
	for i, seg := range segments {
		for _, idx := range combin.Combinations(len(seg), targets[i]) {
			pick := make([]int, len(idx))
			for j, k := range idx {
				pick[j] = seg[k]
			}
			combos[i] = append(combos[i], pick)
		}
	}

	var sets []candidateSet
	for _, a := range combos[0] {
		for _, b := range combos[1] {
			for _, c := range combos[2] {
				reds := make([]int, 0, 6)
				reds = append(reds, a...)
				reds = append(reds, b...)
				reds = append(reds, c...)
				reds = sortedCopy(reds)
				sets = append(sets, candidateSet{score: ssqTraits.score(reds, scores, opts), selection: reds})
			}
		}
	}

	unique := bestUnique(sets, opts.NumSets)
	if len(unique) == 0 {
		return nil
	}

	extra := opts.ExtraBlue
	want := max(extra, len(unique))
	var bluePool []int
	if len(opts.BlueScores) > 0 {
		bluePool = top(opts.BlueScores, want)
	} else {
	fill:
		for _, u := range unique {
			base := sum(u.selection)
			for offset := 1; offset <= extra+1; offset++ {
				if cand := foldMod(base+offset, ssqBlueRange); !contains(bluePool, cand) {
					bluePool = append(bluePool, cand)
				}
				if len(bluePool) >= want {
					break fill
				}
			}
		}
	}

	out := make([]models.Buckets, 0, len(unique))
	for _, u := range unique {
		var blues []int
		if len(bluePool) > 0 {
			blues = append([]int(nil), bluePool[:min(extra, len(bluePool))]...)
		} else {
			for i := 1; i <= extra; i++ {
				blues = append(blues, foldMod(sum(u.selection)+i, ssqBlueRange))
			}
		}
		out = append(out, models.Buckets{models.BucketRed: u.selection, models.BucketBlue: blues})
	}
	return out
}

// BlueScores rates each blue number over the most recent horizon draws
// (all when horizon <= 0) as 0.6 of its normalized frequency plus 0.4 of
// its normalized recency, with recency decaying from the latest draw.
func BlueScores(records []models.HistoryRecord, horizon int) map[int]float64 {
	if horizon <= 0 || len(records) == 0 {
		horizon = len(records)
	}
	subset := records
	if horizon < len(records) {
		subset = records[len(records)-horizon:]
	}

	var freq, rec [ssqBlueRange + 1]float64
	halfLife := math.Max(float64(horizon)/2, 1)
	for idx := 0; idx < len(subset); idx++ {
		draw := subset[len(subset)-1-idx]
		if draw.Special == nil || *draw.Special < 1 || *draw.Special > ssqBlueRange {
			continue
		}
		freq[*draw.Special]++
		rec[*draw.Special] += math.Exp(-float64(idx) / halfLife)
	}

	maxFreq, maxRec := 0.0, 0.0
	for n := 1; n <= ssqBlueRange; n++ {
		maxFreq = math.Max(maxFreq, freq[n])
		maxRec = math.Max(maxRec, rec[n])
	}
	if maxFreq == 0 {
		maxFreq = 1
	}
	if maxRec == 0 {
		maxRec = 1
	}

	scores := make(map[int]float64, ssqBlueRange)
	for n := 1; n <= ssqBlueRange; n++ {
		scores[n] = 0.6*freq[n]/maxFreq + 0.4*rec[n]/maxRec
	}
	return scores
}
