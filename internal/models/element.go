package models

import (
	"sort"
	"strings"
)

// Element is one node of the five-element cycle.
type Element string

const (
	Wood  Element = "wood"
	Fire  Element = "fire"
	Earth Element = "earth"
	Metal Element = "metal"
	Water Element = "water"
)

// BaseCycle is the generating order starting from wood.
var BaseCycle = []Element{Wood, Fire, Earth, Metal, Water}

var generates = map[Element]Element{
	Wood:  Fire,
	Fire:  Earth,
	Earth: Metal,
	Metal: Water,
	Water: Wood,
}

var overcomes = map[Element]Element{
	Wood:  Earth,
	Earth: Water,
	Water: Fire,
	Fire:  Metal,
	Metal: Wood,
}

var elementAliases = map[string]Element{
	"wood": Wood, "木": Wood,
	"fire": Fire, "火": Fire,
	"earth": Earth, "土": Earth,
	"metal": Metal, "金": Metal,
	"water": Water, "水": Water,
}

// Generates returns the element this one feeds, or "" for an unknown element.
func (e Element) Generates() Element {
	return generates[e]
}

// Overcomes returns the element this one restrains, or "" for an unknown element.
func (e Element) Overcomes() Element {
	return overcomes[e]
}

// Valid reports whether e is one of the five elements.
func (e Element) Valid() bool {
	_, ok := generates[e]
	return ok
}

// ParseElement accepts English or Chinese element names.
func ParseElement(value string) (Element, bool) {
	e, ok := elementAliases[strings.ToLower(strings.TrimSpace(value))]
	return e, ok
}

// NormalizeElement maps aliases onto the canonical name and leaves unknown values untouched.
func NormalizeElement(e Element) Element {
	if canonical, ok := ParseElement(string(e)); ok {
		return canonical
	}
	return e
}

// ContainsElement reports whether list holds e.
func ContainsElement(list []Element, e Element) bool {
	for _, item := range list {
		if item == e {
			return true
		}
	}
	return false
}

// SortedElements returns the distinct elements of list in lexical order.
func SortedElements(list []Element) []Element {
	seen := make(map[Element]bool, len(list))
	out := make([]Element, 0, len(list))
	for _, e := range list {
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
