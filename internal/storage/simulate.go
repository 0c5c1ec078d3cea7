package storage

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/rewired-gh/meihua/internal/models"
)

// DefaultSimulatedPeriods is the length of a simulated history when none is asked for.
const DefaultSimulatedPeriods = 200

// SimulatedHistory generates periods daily draws ending the day before now.
// Numbers are distinct, sorted and within the game's range; games with a
// special zone also get a special number. The same seed yields the same draws.
func SimulatedHistory(game models.GameConfig, periods int, now time.Time, seed int64) []models.HistoryRecord {
	if periods <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))
	start := now.UTC().AddDate(0, 0, -periods)
	drawn := min(game.DrawnNumbers, game.TotalNumbers)

	records := make([]models.HistoryRecord, 0, periods)
	for idx := 0; idx < periods; idx++ {
		perm := rng.Perm(game.TotalNumbers)
		numbers := make([]int, drawn)
		for i := range numbers {
			numbers[i] = perm[i] + 1
		}
		sort.Ints(numbers)

		rec := models.HistoryRecord{
			Period:    fmt.Sprintf("sim_%d", idx),
			Numbers:   numbers,
			Timestamp: start.AddDate(0, 0, idx).Format("2006-01-02"),
		}
		if game.SpecialNumbers > 0 {
			rec.Special = models.IntPtr(rng.Intn(game.SpecialNumbers) + 1)
		}
		records = append(records, rec)
	}
	return records
}
