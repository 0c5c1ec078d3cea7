package scoring

import (
	"time"

	"github.com/rewired-gh/meihua/internal/models"
)

// Season names.
const (
	Spring       = "spring"
	Summer       = "summer"
	Autumn       = "autumn"
	Winter       = "winter"
	Transitional = "transitional"
)

var seasonalWeights = map[string]map[models.Element]float64{
	Spring:       {models.Wood: 1.2, models.Fire: 1.0, models.Earth: 0.9, models.Metal: 0.8, models.Water: 0.95},
	Summer:       {models.Wood: 0.95, models.Fire: 1.2, models.Earth: 1.0, models.Metal: 0.9, models.Water: 0.8},
	Autumn:       {models.Wood: 0.9, models.Fire: 0.85, models.Earth: 0.95, models.Metal: 1.2, models.Water: 1.05},
	Winter:       {models.Wood: 1.0, models.Fire: 0.8, models.Earth: 0.9, models.Metal: 0.95, models.Water: 1.2},
	Transitional: {models.Wood: 0.95, models.Fire: 0.95, models.Earth: 1.1, models.Metal: 1.0, models.Water: 0.95},
}

// SeasonFor maps the month of t to a season.
func SeasonFor(t time.Time) string {
	switch t.Month() {
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Summer
	case time.September, time.October, time.November:
		return Autumn
	case time.December, time.January, time.February:
		return Winter
	default:
		return Transitional
	}
}

// SeasonalFactor returns the strength of an element in a season, 1.0 when unknown.
func SeasonalFactor(season string, e models.Element) float64 {
	table, ok := seasonalWeights[season]
	if !ok {
		table = seasonalWeights[Transitional]
	}
	if f, ok := table[e]; ok {
		return f
	}
	return 1.0
}
