// Package calendar produces the elemental and lunar profile of a moment.
//
// The profile carries the four ganzhi pillars (year, month, day, hour), the
// element and zodiac of each pillar, the moon phase, and the favorable and
// unfavorable element sets that the scorer consumes. Favored numbers are the
// stem and branch codes of the pillars folded mod 9, merged with the numbers
// of the moon phase.
//
// Providers are injected. Builder is the default implementation and Null
// returns an empty profile. Lunar dates, solar terms and the official
// holiday arrangement come from an Almanac.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/rewired-gh/meihua/internal/models"
)

// Provider computes a calendar profile for a reference time.
// Implementations must be pure: the same time yields the same profile.
type Provider interface {
	Profile(ref time.Time) models.CalendarProfile
}

// ChinaStandardTime is the zone pillars are computed in.
var ChinaStandardTime = time.FixedZone("CST", 8*60*60)

var (
	heavenlyStems   = []string{"甲", "乙", "丙", "丁", "戊", "己", "庚", "辛", "壬", "癸"}
	earthlyBranches = []string{"子", "丑", "寅", "卯", "辰", "巳", "午", "未", "申", "酉", "戌", "亥"}
	// monthBranches starts at the first lunar month.
	monthBranches = []string{"寅", "卯", "辰", "巳", "午", "未", "申", "酉", "戌", "亥", "子", "丑"}

	stemElements = []models.Element{
		models.Wood, models.Wood, models.Fire, models.Fire, models.Earth,
		models.Earth, models.Metal, models.Metal, models.Water, models.Water,
	}
	zodiacAnimals = []string{"Rat", "Ox", "Tiger", "Rabbit", "Dragon", "Snake", "Horse", "Goat", "Monkey", "Rooster", "Dog", "Pig"}
)

// dayPillarEpoch is the day the sexagenary day count starts from.
var dayPillarEpoch = time.Date(1900, 1, 31, 0, 0, 0, 0, time.UTC)

const (
	noteLunar     = "lunar calendar unavailable, solar month used for the month pillar"
	noteSolarTerm = "solar term and holiday data unavailable"
)

// StemCode returns the 1-based code of a heavenly stem, or 0 if unknown.
func StemCode(stem string) int {
	return indexOf(heavenlyStems, stem) + 1
}

// BranchCode returns the 1-based code of an earthly branch, or 0 if unknown.
func BranchCode(branch string) int {
	return indexOf(earthlyBranches, branch) + 1
}

// Builder is the default provider.
//
// The month pillar follows the lunar month reported by the almanac. When
// there is no almanac or the lookup fails, the solar month stands in for it
// and the lunar date, solar term and workday fields stay nil.
type Builder struct {
	loc     *time.Location
	almanac Almanac
}

// NewBuilder creates a builder computing pillars in China Standard Time
// with the lunar-go almanac.
func NewBuilder() *Builder {
	return NewBuilderWithAlmanac(LunarAlmanac{})
}

// NewBuilderWithAlmanac creates a builder using a, which may be nil.
func NewBuilderWithAlmanac(a Almanac) *Builder {
	return &Builder{loc: ChinaStandardTime, almanac: a}
}

// NewSolarBuilder creates a builder without an almanac.
func NewSolarBuilder() *Builder {
	return NewBuilderWithAlmanac(nil)
}

// Profile implements Provider.
func (b *Builder) Profile(ref time.Time) models.CalendarProfile {
	local := ref.In(b.loc)
	var notes []string
	lunarMonth := int(local.Month())

	var (
		lunarDate            *models.LunarDate
		solarTerm            *string
		isWorkday, isHoliday *bool
	)
	day, err := b.lookup(local)
	switch {
	case err != nil:
		notes = append(notes, fmt.Sprintf("almanac lookup failed: %v", err), noteLunar, noteSolarTerm)
	case b.almanac == nil:
		notes = append(notes, noteLunar, noteSolarTerm)
	default:
		lunarDate = &day.Lunar
		lunarMonth = day.Lunar.Month
		if day.SolarTerm != "" {
			solarTerm = &day.SolarTerm
		}
		isWorkday, isHoliday = models.BoolPtr(day.IsWorkday), models.BoolPtr(!day.IsWorkday)
		if !day.IsWorkday && day.Holiday != "" {
			notes = append(notes, "holiday: "+day.Holiday)
		}
	}

	yearStem, yearBranch := posMod(local.Year()-4, 10), posMod(local.Year()-4, 12)
	dayStem, dayBranch := dayPillar(local)
	hourBranch := ((local.Hour() + 1) / 2) % 12
	hourStem := (dayStem*2 + hourBranch) % 10
	monthStem := posMod(yearStem*2+lunarMonth+2, 10)
	monthBranch := indexOf(earthlyBranches, monthBranches[posMod(lunarMonth-1, 12)])

	indices := map[string][2]int{
		models.PillarYear:  {yearStem, yearBranch},
		models.PillarMonth: {monthStem, monthBranch},
		models.PillarDay:   {dayStem, dayBranch},
		models.PillarHour:  {hourStem, hourBranch},
	}

	ganzhi := make(map[string]models.Ganzhi, 4)
	elements := make(map[string]models.Element, 4)
	zodiac := make(map[string]string, 4)
	for _, key := range models.PillarOrder {
		idx := indices[key]
		ganzhi[key] = models.Ganzhi{Stem: heavenlyStems[idx[0]], Branch: earthlyBranches[idx[1]]}
		elements[key] = stemElements[idx[0]]
		zodiac[key] = zodiacAnimals[idx[1]]
	}

	favoredNumbers := numbersFromGanzhi(ganzhi)

	var favorable, unfavorable []models.Element
	for _, key := range []string{models.PillarDay, models.PillarHour} {
		e := elements[key]
		favorable = appendUnique(favorable, e)
		favorable = appendUnique(favorable, e.Generates())
		unfavorable = appendUnique(unfavorable, e.Overcomes())
	}

	moon := Moon(local)
	for _, e := range moon.FavoredElements {
		favorable = appendUnique(favorable, e)
	}
	for _, e := range moon.UnfavorableElements {
		unfavorable = appendUnique(unfavorable, e)
	}
	for _, n := range moon.FavoredNumbers {
		if !containsInt(favoredNumbers, n) {
			favoredNumbers = append(favoredNumbers, n)
		}
	}
	sort.Ints(favoredNumbers)

	return models.CalendarProfile{
		LocalTime:           local,
		Ganzhi:              ganzhi,
		Elements:            elements,
		Zodiac:              zodiac,
		LunarDate:           lunarDate,
		SolarTerm:           solarTerm,
		Weekday:             local.Weekday().String(),
		IsWorkday:           isWorkday,
		IsHoliday:           isHoliday,
		Notes:               notes,
		FavorableElements:   favorable,
		UnfavorableElements: unfavorable,
		FavoredNumbers:      favoredNumbers,
		Moon:                &moon,
	}
}

func (b *Builder) lookup(local time.Time) (AlmanacDay, error) {
	if b.almanac == nil {
		return AlmanacDay{}, nil
	}
	return b.almanac.Lookup(local)
}

// Null is a provider that knows nothing about the calendar.
type Null struct{}

// Profile implements Provider.
func (Null) Profile(ref time.Time) models.CalendarProfile {
	return models.CalendarProfile{
		LocalTime: ref,
		Ganzhi:    map[string]models.Ganzhi{},
		Elements:  map[string]models.Element{},
		Zodiac:    map[string]string{},
		Weekday:   ref.Weekday().String(),
		Notes:     []string{"calendar provider disabled"},
	}
}

func dayPillar(local time.Time) (stem, branch int) {
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	days := int(date.Sub(dayPillarEpoch).Hours() / 24)
	return posMod(days, 10), posMod(days, 12)
}

func numbersFromGanzhi(ganzhi map[string]models.Ganzhi) []int {
	var out []int
	for _, key := range models.PillarOrder {
		g, ok := ganzhi[key]
		if !ok {
			continue
		}
		for _, n := range []int{foldMod(StemCode(g.Stem), 9), foldMod(BranchCode(g.Branch), 9)} {
			if n != 0 && !containsInt(out, n) {
				out = append(out, n)
			}
		}
	}
	return out
}

func appendUnique(list []models.Element, e models.Element) []models.Element {
	if e == "" || models.ContainsElement(list, e) {
		return list
	}
	return append(list, e)
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func posMod(v, n int) int {
	m := v % n
	if m < 0 {
		m += n
	}
	return m
}

// foldMod is the 1-indexed modulo: a zero remainder maps to n.
func foldMod(v, n int) int {
	if m := posMod(v, n); m != 0 {
		return m
	}
	return n
}

// FoldMod is the exported 1-indexed modulo used by number folding elsewhere.
func FoldMod(v, n int) int {
	return foldMod(v, n)
}
