package calendar

import (
	"math"
	"sort"
	"time"

	"github.com/rewired-gh/meihua/internal/models"
)

// SynodicMonth is the mean length of a lunation in days.
const SynodicMonth = 29.53058867

// knownNewMoon is the reference new moon the age is counted from.
var knownNewMoon = time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)

type moonPhase struct {
	name    string
	alias   string
	start   float64
	end     float64
	element models.Element
}

var moonPhases = []moonPhase{
	{"new", "朔月", 0.0, 1.84566, models.Water},
	{"waxing crescent", "娥眉月", 1.84566, 5.53699, models.Wood},
	{"first quarter", "上弦月", 5.53699, 9.22831, models.Wood},
	{"waxing gibbous", "盈凸月", 9.22831, 12.91963, models.Fire},
	{"full", "望月", 12.91963, 16.61096, models.Metal},
	{"waning gibbous", "亏凸月", 16.61096, 20.30228, models.Metal},
	{"last quarter", "下弦月", 20.30228, 23.99361, models.Water},
	{"waning crescent", "残月", 23.99361, SynodicMonth, models.Earth},
}

// MoonAge returns the synodic age of the moon at t, in [0, SynodicMonth).
func MoonAge(t time.Time) float64 {
	days := t.UTC().Sub(knownNewMoon).Seconds() / 86400.0
	age := math.Mod(days, SynodicMonth)
	if age < 0 {
		age += SynodicMonth
	}
	return age
}

// Illumination returns the lit fraction of the disc for a moon age.
func Illumination(age float64) float64 {
	return (1 - math.Cos(2*math.Pi*age/SynodicMonth)) / 2
}

// PhaseDistance is the shorter arc between two moon ages, in days.
func PhaseDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	return math.Min(d, SynodicMonth-d)
}

func phaseFor(age float64) moonPhase {
	for _, p := range moonPhases {
		if age >= p.start && age < p.end {
			return p
		}
	}
	return moonPhases[len(moonPhases)-1]
}

// Moon builds the moon profile at t.
func Moon(t time.Time) models.MoonProfile {
	age := MoonAge(t)
	illum := Illumination(age)
	phase := phaseFor(age)

	favored := []models.Element{phase.element}
	if g := phase.element.Generates(); g != "" {
		favored = append(favored, g)
	}
	var unfavorable []models.Element
	if o := phase.element.Overcomes(); o != "" {
		unfavorable = append(unfavorable, o)
	}

	raw := []int{
		int(age/SynodicMonth*9)%9 + 1,
		int(math.Mod(illum*9, 9)) + 1,
	}
	seen := map[int]bool{}
	var numbers []int
	for _, n := range raw {
		if n > 9 {
			n = foldMod(n, 9)
		}
		if !seen[n] {
			seen[n] = true
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)

	return models.MoonProfile{
		AgeDays:             roundTo(age, 3),
		Illumination:        roundTo(illum, 4),
		Phase:               phase.name,
		Alias:               phase.alias,
		Element:             phase.element,
		FavoredElements:     favored,
		UnfavorableElements: unfavorable,
		FavoredNumbers:      numbers,
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
