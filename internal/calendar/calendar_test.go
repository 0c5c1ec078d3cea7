package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/meihua/internal/models"
)

func TestBuilderProfile(t *testing.T) {
	tests := []struct {
		name        string
		ref         time.Time
		ganzhi      map[string]models.Ganzhi
		favorable   []models.Element
		unfavorable []models.Element
		numbers     []int
		weekday     string
		lunar       models.LunarDate
		workday     bool
	}{
		{
			name: "spring equinox evening",
			ref:  time.Date(2024, 3, 21, 10, 0, 0, 0, time.UTC),
			ganzhi: map[string]models.Ganzhi{
				models.PillarYear:  {Stem: "甲", Branch: "辰"},
				models.PillarMonth: {Stem: "戊", Branch: "卯"},
				models.PillarDay:   {Stem: "甲", Branch: "辰"},
				models.PillarHour:  {Stem: "癸", Branch: "酉"},
			},
			favorable:   []models.Element{models.Wood, models.Fire, models.Water, models.Earth},
			unfavorable: []models.Element{models.Earth, models.Fire, models.Metal},
			numbers:     []int{1, 4, 5, 8},
			weekday:     "Thursday",
			lunar:       models.LunarDate{Year: 2024, Month: 2, Day: 12},
			workday:     true,
		},
		{
			name: "new year morning in local time",
			ref:  time.Date(2023, 12, 31, 23, 30, 0, 0, time.UTC),
			ganzhi: map[string]models.Ganzhi{
				models.PillarYear:  {Stem: "甲", Branch: "辰"},
				models.PillarMonth: {Stem: "丁", Branch: "子"},
				models.PillarDay:   {Stem: "甲", Branch: "申"},
				models.PillarHour:  {Stem: "戊", Branch: "辰"},
			},
			favorable:   []models.Element{models.Wood, models.Fire, models.Earth, models.Metal, models.Water},
			unfavorable: []models.Element{models.Earth, models.Water, models.Wood},
			numbers:     []int{1, 4, 5, 6, 8, 9},
			weekday:     "Monday",
			// the solar year already turned, the lunar year has not
			lunar:   models.LunarDate{Year: 2023, Month: 11, Day: 20},
			workday: false,
		},
	}

	b := NewBuilder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := b.Profile(tt.ref)
			assert.Equal(t, tt.ganzhi, p.Ganzhi)
			assert.Equal(t, tt.favorable, p.FavorableElements)
			assert.Equal(t, tt.unfavorable, p.UnfavorableElements)
			assert.Equal(t, tt.numbers, p.FavoredNumbers)
			assert.Equal(t, tt.weekday, p.Weekday)
			assert.Equal(t, "Dragon", p.Zodiac[models.PillarYear])
			require.NotNil(t, p.LunarDate)
			assert.Equal(t, tt.lunar, *p.LunarDate)
			require.NotNil(t, p.IsWorkday)
			require.NotNil(t, p.IsHoliday)
			assert.Equal(t, tt.workday, *p.IsWorkday)
			assert.Equal(t, !tt.workday, *p.IsHoliday)
			assert.Nil(t, p.SolarTerm)
			require.NotNil(t, p.Moon)
		})
	}
}

func TestBuilderAlmanacDays(t *testing.T) {
	tests := []struct {
		name      string
		date      time.Time
		lunar     models.LunarDate
		solarTerm string
		workday   bool
		holiday   string
	}{
		{
			name:    "spring festival",
			date:    time.Date(2024, 2, 10, 12, 0, 0, 0, ChinaStandardTime),
			lunar:   models.LunarDate{Year: 2024, Month: 1, Day: 1},
			holiday: "春节",
		},
		{
			name:      "qingming",
			date:      time.Date(2024, 4, 4, 12, 0, 0, 0, ChinaStandardTime),
			lunar:     models.LunarDate{Year: 2024, Month: 2, Day: 26},
			solarTerm: "清明",
			holiday:   "清明节",
		},
		{
			name:    "leap month",
			date:    time.Date(2023, 4, 3, 12, 0, 0, 0, ChinaStandardTime),
			lunar:   models.LunarDate{Year: 2023, Month: 2, Day: 13, IsLeapMonth: true},
			workday: true,
		},
		{
			name:  "plain weekend",
			date:  time.Date(2024, 3, 23, 12, 0, 0, 0, ChinaStandardTime),
			lunar: models.LunarDate{Year: 2024, Month: 2, Day: 14},
		},
	}

	b := NewBuilder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := b.Profile(tt.date)
			require.NotNil(t, p.LunarDate)
			assert.Equal(t, tt.lunar, *p.LunarDate)
			if tt.solarTerm == "" {
				assert.Nil(t, p.SolarTerm)
			} else {
				require.NotNil(t, p.SolarTerm)
				assert.Equal(t, tt.solarTerm, *p.SolarTerm)
			}
			require.NotNil(t, p.IsWorkday)
			assert.Equal(t, tt.workday, *p.IsWorkday)
			assert.Equal(t, !tt.workday, *p.IsHoliday)
			if tt.holiday != "" {
				assert.Contains(t, p.Notes, "holiday: "+tt.holiday)
			}
		})
	}
}

func TestBuilderMonthPillarFollowsLunarMonth(t *testing.T) {
	// solar March, lunar second month, in a 甲 year
	ref := time.Date(2024, 3, 21, 10, 0, 0, 0, time.UTC)
	lunar := NewBuilder().Profile(ref)
	solar := NewSolarBuilder().Profile(ref)

	assert.Equal(t, models.Ganzhi{Stem: "戊", Branch: "卯"}, lunar.Ganzhi[models.PillarMonth])
	assert.Equal(t, models.Ganzhi{Stem: "己", Branch: "辰"}, solar.Ganzhi[models.PillarMonth])
	assert.Equal(t, lunar.Ganzhi[models.PillarDay], solar.Ganzhi[models.PillarDay])
}

type failingAlmanac struct{}

func (failingAlmanac) Lookup(time.Time) (AlmanacDay, error) {
	return AlmanacDay{}, errors.New("no tables")
}

func TestBuilderFallsBackToSolarMonth(t *testing.T) {
	ref := time.Date(2024, 3, 21, 10, 0, 0, 0, time.UTC)
	solar := NewSolarBuilder().Profile(ref)
	assert.Nil(t, solar.LunarDate)
	assert.Nil(t, solar.SolarTerm)
	assert.Nil(t, solar.IsWorkday)
	assert.Nil(t, solar.IsHoliday)
	assert.Equal(t, []string{noteLunar, noteSolarTerm}, solar.Notes)
	assert.Equal(t, []int{1, 4, 5, 6, 8}, solar.FavoredNumbers)

	failed := NewBuilderWithAlmanac(failingAlmanac{}).Profile(ref)
	assert.Nil(t, failed.LunarDate)
	assert.Equal(t, solar.Ganzhi, failed.Ganzhi)
	require.Len(t, failed.Notes, 3)
	assert.Equal(t, "almanac lookup failed: no tables", failed.Notes[0])
}

func TestLunarAlmanacRejectsOutOfRangeYears(t *testing.T) {
	_, err := LunarAlmanac{}.Lookup(time.Date(1850, 6, 1, 0, 0, 0, 0, ChinaStandardTime))
	assert.Error(t, err)

	p := NewBuilder().Profile(time.Date(2150, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Nil(t, p.LunarDate)
	assert.Len(t, p.Ganzhi, 4)
}

func TestBuilderIsPure(t *testing.T) {
	ref := time.Date(2025, 7, 4, 3, 0, 0, 0, time.UTC)
	b := NewBuilder()
	assert.Equal(t, b.Profile(ref), b.Profile(ref))
}

func TestBuilderFavoredNumbersInRange(t *testing.T) {
	b := NewBuilder()
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24*365; h += 13 {
		p := b.Profile(start.Add(time.Duration(h) * time.Hour))
		require.NotEmpty(t, p.FavoredNumbers)
		for i, n := range p.FavoredNumbers {
			require.GreaterOrEqual(t, n, 1)
			require.LessOrEqual(t, n, 9)
			if i > 0 {
				require.Less(t, p.FavoredNumbers[i-1], n)
			}
		}
		for _, key := range models.PillarOrder {
			require.True(t, p.Elements[key].Valid(), "pillar %s", key)
		}
	}
}

func TestMoonAtKnownNewMoon(t *testing.T) {
	m := Moon(knownNewMoon)
	assert.Equal(t, 0.0, m.AgeDays)
	assert.Equal(t, 0.0, m.Illumination)
	assert.Equal(t, "new", m.Phase)
	assert.Equal(t, models.Water, m.Element)
	assert.Equal(t, []models.Element{models.Water, models.Wood}, m.FavoredElements)
	assert.Equal(t, []models.Element{models.Fire}, m.UnfavorableElements)
	assert.Equal(t, []int{1}, m.FavoredNumbers)

	p := NewBuilder().Profile(knownNewMoon)
	assert.Equal(t, 0.5, p.Illumination())
}

func TestMoonProfileValues(t *testing.T) {
	m := Moon(time.Date(2024, 3, 21, 10, 0, 0, 0, time.UTC))
	assert.InDelta(t, 11.011, m.AgeDays, 1e-9)
	assert.InDelta(t, 0.8488, m.Illumination, 1e-9)
	assert.Equal(t, "waxing gibbous", m.Phase)
	assert.Equal(t, models.Fire, m.Element)
	assert.Equal(t, []int{4, 8}, m.FavoredNumbers)
}

func TestMoonAgeAndIllumination(t *testing.T) {
	start := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := 0; d < 365*40; d += 17 {
		age := MoonAge(start.AddDate(0, 0, d))
		require.GreaterOrEqual(t, age, 0.0)
		require.Less(t, age, SynodicMonth)
		il := Illumination(age)
		require.GreaterOrEqual(t, il, 0.0)
		require.LessOrEqual(t, il, 1.0)
	}
	assert.InDelta(t, 1.0, Illumination(SynodicMonth/2), 1e-12)
}

func TestPhaseDistance(t *testing.T) {
	assert.InDelta(t, 2.0, PhaseDistance(1, 3), 1e-12)
	assert.InDelta(t, 2.0, PhaseDistance(1, SynodicMonth-1), 1e-9)
	assert.InDelta(t, 0.0, PhaseDistance(5, 5), 1e-12)
}

func TestNullProvider(t *testing.T) {
	ref := time.Date(2024, 3, 21, 10, 0, 0, 0, time.UTC)
	p := Null{}.Profile(ref)
	assert.Empty(t, p.Ganzhi)
	assert.Empty(t, p.FavorableElements)
	assert.Empty(t, p.FavoredNumbers)
	assert.Nil(t, p.Moon)
	assert.Equal(t, 0.5, p.Illumination())
	assert.Equal(t, 0, p.FavorDelta())
}

func TestCodes(t *testing.T) {
	assert.Equal(t, 1, StemCode("甲"))
	assert.Equal(t, 10, StemCode("癸"))
	assert.Equal(t, 0, StemCode("x"))
	assert.Equal(t, 5, BranchCode("辰"))
	assert.Equal(t, 12, BranchCode("亥"))
	assert.Equal(t, 9, FoldMod(18, 9))
}
