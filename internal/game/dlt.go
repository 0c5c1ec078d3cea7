package game

import "github.com/rewired-gh/meihua/internal/models"

// dltBackRange is the size of the back zone.
const dltBackRange = 12

// DLT is the adapter for the 5+2 front and back zone game.
type DLT struct {
	cfg models.GameConfig
}

// Game implements Adapter.
func (d *DLT) Game() models.GameType { return models.GameDLT }

// Config implements Adapter.
func (d *DLT) Config() models.GameConfig { return d.cfg }

// Select picks the five best fronts and derives two backs from the leader.
func (d *DLT) Select(scores map[int]float64) models.Buckets {
	front := top(scores, 7)
	if len(front) == 0 {
		return models.Buckets{models.BucketFront: nil, models.BucketBack: nil}
	}
	return models.Buckets{
		models.BucketFront: sortedCopy(front[:min(5, len(front))]),
		models.BucketBack:  {foldMod(front[0]+1, dltBackRange), foldMod(front[0]+2, dltBackRange)},
	}
}

// BuildPool returns fifteen fronts, five to avoid and three back candidates.
func (d *DLT) BuildPool(scores map[int]float64) models.Buckets {
	best := top(scores, 15)
	var backs []int
	for i := 0; i < min(3, len(best)); i++ {
		backs = append(backs, foldMod(best[i]+i, dltBackRange))
	}
	return models.Buckets{
		models.BucketFrontTop:       sortedCopy(best),
		models.BucketFrontAvoid:     sortedCopy(bottom(scores, 5)),
		models.BucketBackCandidates: backs,
	}
}

// Evaluate counts front hits against front and against front_top.
func (d *DLT) Evaluate(selection, pool models.Buckets, draw models.HistoryRecord) (int, int) {
	return hits(draw.Numbers, selection[models.BucketFront]), hits(draw.Numbers, pool[models.BucketFrontTop])
}

// GuardSets is not defined for this game.
func (d *DLT) GuardSets(map[int]float64, GuardOptions) []models.Buckets {
	return nil
}
