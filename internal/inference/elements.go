package inference

import (
	"sort"
	"time"

	"github.com/rewired-gh/meihua/internal/hexagram"
	"github.com/rewired-gh/meihua/internal/models"
)

// ElementCycle orders the elements numbers are assigned from: the mystic
// preference, favorable elements, the pillar elements, the hexagram
// elements, unfavorable elements and finally the base cycle, without repeats.
func ElementCycle(profile models.CalendarProfile, state hexagram.State, mystic *models.MysticBias) []models.Element {
	var cycle []models.Element
	add := func(e models.Element) {
		e = models.NormalizeElement(e)
		if e != "" && !models.ContainsElement(cycle, e) {
			cycle = append(cycle, e)
		}
	}

	if mystic != nil {
		for _, e := range mystic.PreferredElements {
			add(e)
		}
	}
	for _, e := range profile.FavorableElements {
		add(e)
	}
	for _, key := range models.PillarOrder {
		add(profile.Elements[key])
	}
	for _, e := range state.Elements() {
		add(e)
	}
	for _, e := range profile.UnfavorableElements {
		add(e)
	}
	for _, e := range models.BaseCycle {
		add(e)
	}
	return cycle
}

// ElementMap assigns every number in 1..total an element by walking the
// cycle from an offset built from the date, the primary hexagram, the moving
// lines, the favored numbers and the mystic spell and scalar.
func ElementMap(
	total int,
	ref time.Time,
	profile models.CalendarProfile,
	state hexagram.State,
	mystic *models.MysticBias,
	cycle []models.Element,
) map[int]models.Element {
	if len(cycle) == 0 {
		cycle = models.BaseCycle
	}
	n := len(cycle)

	offset := ordinal(ref) + state.Primary.DecimalValue() + state.MovingSum()
	for _, fav := range profile.FavoredNumbers {
		offset += fav % n
	}
	if mystic != nil {
		spell := mystic.NumericSpell
		if spell == 0 {
			spell = 1
		}
		offset += spell * 3
		offset += int(mystic.Scalar * 11)
	}

	out := make(map[int]models.Element, total)
	for num := 1; num <= total; num++ {
		idx := (offset + num - 1) % n
		if idx < 0 {
			idx += n
		}
		out[num] = cycle[idx]
	}
	return out
}

// ElementGroups inverts an element map, listing each element's numbers in order.
func ElementGroups(elementMap map[int]models.Element) map[models.Element][]int {
	groups := map[models.Element][]int{}
	for num, e := range elementMap {
		groups[e] = append(groups[e], num)
	}
	for e := range groups {
		sort.Ints(groups[e])
	}
	return groups
}
