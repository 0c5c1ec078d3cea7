package calendar

import (
	"fmt"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	lunar "github.com/6tail/lunar-go/calendar"

	"github.com/rewired-gh/meihua/internal/models"
)

// Years the lunisolar tables are trusted for.
const (
	minAlmanacYear = 1901
	maxAlmanacYear = 2099
)

// AlmanacDay is the lunisolar record of a local date.
type AlmanacDay struct {
	Lunar     models.LunarDate
	SolarTerm string // empty unless a solar term falls on the date
	Holiday   string // name of the official holiday or adjusted workday, if any
	IsWorkday bool
}

// Almanac looks up lunisolar details of a date in China Standard Time.
type Almanac interface {
	Lookup(local time.Time) (AlmanacDay, error)
}

// LunarAlmanac is the Almanac backed by lunar-go. Days without an official
// holiday arrangement are workdays from Monday to Friday.
type LunarAlmanac struct{}

// Lookup implements Almanac.
func (LunarAlmanac) Lookup(local time.Time) (AlmanacDay, error) {
	y, m, d := local.Date()
	if y < minAlmanacYear || y > maxAlmanacYear {
		return AlmanacDay{}, fmt.Errorf("year %d outside %d-%d", y, minAlmanacYear, maxAlmanacYear)
	}

	l := lunar.NewSolarFromYmd(y, int(m), d).GetLunar()
	month := l.GetMonth()
	day := AlmanacDay{
		Lunar: models.LunarDate{
			Year:        l.GetYear(),
			Month:       abs(month),
			Day:         l.GetDay(),
			IsLeapMonth: month < 0,
		},
		SolarTerm: l.GetJieQi(),
		IsWorkday: local.Weekday() != time.Saturday && local.Weekday() != time.Sunday,
	}

	if h := HolidayUtil.GetHoliday(local.Format("2006-01-02")); h != nil {
		day.Holiday = h.GetName()
		day.IsWorkday = h.IsWork()
	}
	return day, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
