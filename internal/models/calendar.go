package models

import "time"

// Pillar names used as keys of the four ganzhi pillars.
const (
	PillarYear  = "year"
	PillarMonth = "month"
	PillarDay   = "day"
	PillarHour  = "hour"
)

// PillarOrder is the canonical iteration order of the four pillars.
var PillarOrder = []string{PillarYear, PillarMonth, PillarDay, PillarHour}

// Ganzhi is a heavenly stem and earthly branch pair.
type Ganzhi struct {
	Stem   string `json:"stem"`
	Branch string `json:"branch"`
}

// LunarDate is a date in the Chinese lunisolar calendar.
type LunarDate struct {
	Year        int  `json:"year"`
	Month       int  `json:"month"`
	Day         int  `json:"day"`
	IsLeapMonth bool `json:"is_leap_month"`
}

// MoonProfile describes the moon phase at a reference time.
type MoonProfile struct {
	AgeDays             float64   `json:"age_days"`
	Illumination        float64   `json:"illumination"` // 0 (new) to 1 (full)
	Phase               string    `json:"phase"`
	Alias               string    `json:"alias"`
	Element             Element   `json:"element"`
	FavoredElements     []Element `json:"favored_elements"`
	UnfavorableElements []Element `json:"unfavorable_elements"`
	FavoredNumbers      []int     `json:"favored_numbers"`
}

// CalendarProfile is the elemental and lunar metadata of a reference time.
// Fields that the provider cannot compute are left nil and explained in Notes.
type CalendarProfile struct {
	LocalTime           time.Time          `json:"local_time"`
	Ganzhi              map[string]Ganzhi  `json:"ganzhi"`
	Elements            map[string]Element `json:"elements"`
	Zodiac              map[string]string  `json:"zodiac"`
	LunarDate           *LunarDate         `json:"lunar_date,omitempty"`
	SolarTerm           *string            `json:"solar_term,omitempty"`
	Weekday             string             `json:"weekday"`
	IsWorkday           *bool              `json:"is_workday,omitempty"`
	IsHoliday           *bool              `json:"is_holiday,omitempty"`
	Notes               []string           `json:"notes,omitempty"`
	FavorableElements   []Element          `json:"favorable_elements"`
	UnfavorableElements []Element          `json:"unfavorable_elements"`
	FavoredNumbers      []int              `json:"favored_numbers"`
	Moon                *MoonProfile       `json:"moon,omitempty"`
}

// Illumination returns the moon illumination, defaulting to 0.5 when the
// profile has no moon record or reports exactly zero.
func (p *CalendarProfile) Illumination() float64 {
	if p == nil || p.Moon == nil || p.Moon.Illumination == 0 {
		return 0.5
	}
	return p.Moon.Illumination
}

// FavorDelta returns the favorable element count minus the unfavorable count.
func (p *CalendarProfile) FavorDelta() int {
	if p == nil {
		return 0
	}
	return len(p.FavorableElements) - len(p.UnfavorableElements)
}

// Clone returns a deep copy.
func (p CalendarProfile) Clone() CalendarProfile {
	out := p
	out.Ganzhi = make(map[string]Ganzhi, len(p.Ganzhi))
	for k, v := range p.Ganzhi {
		out.Ganzhi[k] = v
	}
	out.Elements = make(map[string]Element, len(p.Elements))
	for k, v := range p.Elements {
		out.Elements[k] = v
	}
	out.Zodiac = make(map[string]string, len(p.Zodiac))
	for k, v := range p.Zodiac {
		out.Zodiac[k] = v
	}
	if p.LunarDate != nil {
		d := *p.LunarDate
		out.LunarDate = &d
	}
	if p.SolarTerm != nil {
		term := *p.SolarTerm
		out.SolarTerm = &term
	}
	if p.IsWorkday != nil {
		out.IsWorkday = BoolPtr(*p.IsWorkday)
	}
	if p.IsHoliday != nil {
		out.IsHoliday = BoolPtr(*p.IsHoliday)
	}
	out.Notes = append([]string(nil), p.Notes...)
	out.FavorableElements = append([]Element(nil), p.FavorableElements...)
	out.UnfavorableElements = append([]Element(nil), p.UnfavorableElements...)
	out.FavoredNumbers = append([]int(nil), p.FavoredNumbers...)
	if p.Moon != nil {
		moon := *p.Moon
		moon.FavoredElements = append([]Element(nil), p.Moon.FavoredElements...)
		moon.UnfavorableElements = append([]Element(nil), p.Moon.UnfavorableElements...)
		moon.FavoredNumbers = append([]int(nil), p.Moon.FavoredNumbers...)
		out.Moon = &moon
	}
	return out
}
