package hexagram

import (
	"fmt"
	"strings"

	"github.com/rewired-gh/meihua/internal/models"
)

// MovingRule selects how the moving line is derived.
type MovingRule string

const (
	// MovingStandard derives the moving line from the date alone.
	MovingStandard MovingRule = "standard"
	// MovingWeighted also folds in the sum of the event's reference numbers.
	MovingWeighted MovingRule = "weighted"
)

// ParseMovingRule resolves a rule name. An empty name selects the standard rule.
func ParseMovingRule(value string) (MovingRule, error) {
	switch MovingRule(strings.ToLower(strings.TrimSpace(value))) {
	case "", MovingStandard:
		return MovingStandard, nil
	case MovingWeighted:
		return MovingWeighted, nil
	default:
		return "", fmt.Errorf("unknown moving rule: %q", value)
	}
}

// Seed is the trigram pair and moving lines derived from an event.
type Seed struct {
	UpperIndex  int   `json:"upper_index"`
	LowerIndex  int   `json:"lower_index"`
	MovingLines []int `json:"moving_lines"`
}

// State is the full cast: primary, mutual and changing hexagrams.
type State struct {
	Primary     Hexagram
	Mutual      *Hexagram // nil when the middle lines are all yang
	Changing    *Hexagram // nil when there are no moving lines
	MovingLines []int
}

// Slot pairs a hex weight slot with its hexagram.
type Slot struct {
	Weight   int
	Hexagram *Hexagram
}

// Slots returns primary, mutual and changing in weight order, with nil entries for undefined ones.
func (s State) Slots() []Slot {
	primary := s.Primary
	return []Slot{
		{Weight: models.HexPrimary, Hexagram: &primary},
		{Weight: models.HexMutual, Hexagram: s.Mutual},
		{Weight: models.HexChanging, Hexagram: s.Changing},
	}
}

// Elements returns the elements of the defined hexagrams in slot order.
func (s State) Elements() []models.Element {
	var out []models.Element
	for _, slot := range s.Slots() {
		if slot.Hexagram != nil && slot.Hexagram.Element != "" {
			out = append(out, slot.Hexagram.Element)
		}
	}
	return out
}

// Summary returns the printable names of the cast.
func (s State) Summary() models.HexagramSummary {
	sum := models.HexagramSummary{
		Primary:        s.Primary.Name,
		PrimaryElement: s.Primary.Element,
		MovingLines:    append([]int(nil), s.MovingLines...),
	}
	if s.Mutual != nil {
		sum.Mutual = s.Mutual.Name
		sum.MutualElement = s.Mutual.Element
	}
	if s.Changing != nil {
		sum.Changing = s.Changing.Name
		sum.ChangingElement = s.Changing.Element
	}
	return sum
}

// MovingSum returns the sum of the moving line positions.
func (s State) MovingSum() int {
	total := 0
	for _, l := range s.MovingLines {
		total += l
	}
	return total
}

// Engine casts hexagram states from events. It holds no mutable state.
type Engine struct {
	rule MovingRule
}

// NewEngine creates an engine using the given moving-line rule.
func NewEngine(rule MovingRule) *Engine {
	if rule == "" {
		rule = MovingStandard
	}
	return &Engine{rule: rule}
}

// Rule returns the engine's moving-line rule.
func (e *Engine) Rule() MovingRule {
	return e.rule
}

// GenerateSeed derives the seed from the event's year, month, day and hour.
//
//	base   = year + month + day
//	upper  = fold8(base) - 1
//	lower  = fold8(base + hour) - 1
//	moving = fold6(base + base + hour)
//
// where foldN maps a zero remainder to N. Under the weighted rule the
// moving line is folded again after adding the reference number sum.
func (e *Engine) GenerateSeed(event models.EventSnapshot) Seed {
	ts := event.ReferenceTime()
	base := ts.Year() + int(ts.Month()) + ts.Day()
	lowerSum := base + ts.Hour()
	moving := foldMod(base+lowerSum, 6)

	if e.rule == MovingWeighted && len(event.ReferenceNumbers) > 0 {
		weight := 0
		for _, n := range event.ReferenceNumbers {
			weight += n
		}
		moving = foldMod(moving+weight, 6)
	}

	return Seed{
		UpperIndex:  foldMod(base, 8) - 1,
		LowerIndex:  foldMod(lowerSum, 8) - 1,
		MovingLines: []int{moving},
	}
}

// BuildState composes the primary hexagram and derives mutual and changing.
func (e *Engine) BuildState(seed Seed) State {
	primary := Compose(seed.UpperIndex, seed.LowerIndex)
	return State{
		Primary:     primary,
		Mutual:      Mutual(primary),
		Changing:    Changing(primary, seed.MovingLines),
		MovingLines: append([]int(nil), seed.MovingLines...),
	}
}

// Cast is GenerateSeed followed by BuildState.
func (e *Engine) Cast(event models.EventSnapshot) State {
	return e.BuildState(e.GenerateSeed(event))
}
