// Package hexagram implements the trigram/hexagram algebra used to cast a
// symbolic state from a timestamp.
//
// Lines are stored bottom-up: index 0 is the bottom line, 1 is yang and 0 is
// yin. A hexagram is a lower trigram (lines 0-2) under an upper trigram
// (lines 3-5). The mutual hexagram is read from the four middle lines and the
// changing hexagram flips the moving lines. A hexagram always takes the
// element of its upper trigram.
package hexagram

import (
	"github.com/rewired-gh/meihua/internal/models"
)

// Trigram is one of the eight fixed three-line primitives.
type Trigram struct {
	Name    string
	Symbol  string
	Element models.Element
	Lines   [3]int
}

// Trigrams is the fixed table indexed by trigram number 0-7.
var Trigrams = [8]Trigram{
	{Name: "Qian", Symbol: "乾", Element: models.Metal, Lines: [3]int{1, 1, 1}},
	{Name: "Dui", Symbol: "兑", Element: models.Metal, Lines: [3]int{0, 1, 1}},
	{Name: "Li", Symbol: "离", Element: models.Fire, Lines: [3]int{1, 0, 1}},
	{Name: "Zhen", Symbol: "震", Element: models.Wood, Lines: [3]int{0, 0, 1}},
	{Name: "Xun", Symbol: "巽", Element: models.Wood, Lines: [3]int{1, 1, 0}},
	{Name: "Kan", Symbol: "坎", Element: models.Water, Lines: [3]int{0, 1, 0}},
	{Name: "Gen", Symbol: "艮", Element: models.Earth, Lines: [3]int{1, 0, 0}},
	{Name: "Kun", Symbol: "坤", Element: models.Earth, Lines: [3]int{0, 0, 0}},
}

var allYang = [3]int{1, 1, 1}

// Hexagram is a composed six-line figure.
type Hexagram struct {
	Name    string
	Symbol  string
	Element models.Element
	Lines   [6]int
	Index   int // upper*8 + lower
}

// DecimalValue is the sum of line(i) << i.
func (h Hexagram) DecimalValue() int {
	v := 0
	for i, bit := range h.Lines {
		v += bit << i
	}
	return v
}

// Upper returns the upper trigram lines.
func (h Hexagram) Upper() [3]int {
	return [3]int{h.Lines[3], h.Lines[4], h.Lines[5]}
}

// Lower returns the lower trigram lines.
func (h Hexagram) Lower() [3]int {
	return [3]int{h.Lines[0], h.Lines[1], h.Lines[2]}
}

// Compose builds the hexagram of an upper and lower trigram index.
// Indices are taken modulo 8.
func Compose(upperIndex, lowerIndex int) Hexagram {
	ui, li := posMod(upperIndex, 8), posMod(lowerIndex, 8)
	upper, lower := Trigrams[ui], Trigrams[li]

	var lines [6]int
	copy(lines[:3], lower.Lines[:])
	copy(lines[3:], upper.Lines[:])

	return Hexagram{
		Name:    upper.Name + lower.Name,
		Symbol:  upper.Symbol + lower.Symbol,
		Element: upper.Element,
		Lines:   lines,
		Index:   ui*8 + li,
	}
}

// TrigramIndex finds the trigram matching a line pattern, or 0 when none does.
func TrigramIndex(lines [3]int) int {
	for i, t := range Trigrams {
		if t.Lines == lines {
			return i
		}
	}
	return 0
}

// Mutual derives the mutual hexagram from the four middle lines.
// The lower trigram is lines 1-3 and the upper is lines 2-4. When both
// read all yang the mutual hexagram is undefined and nil is returned.
func Mutual(primary Hexagram) *Hexagram {
	// inner holds lines 1-3 under lines 2-4
	var inner Hexagram
	copy(inner.Lines[:3], primary.Lines[1:4])
	copy(inner.Lines[3:], primary.Lines[2:5])
	lower, upper := inner.Lower(), inner.Upper()
	if lower == allYang && upper == allYang {
		return nil
	}
	h := Compose(TrigramIndex(upper), TrigramIndex(lower))
	return &h
}

// Changing flips each moving line (1-indexed, clamped to 1..6) and recomposes.
// It returns nil when there are no moving lines.
func Changing(primary Hexagram, movingLines []int) *Hexagram {
	if len(movingLines) == 0 {
		return nil
	}
	flipped := primary
	for _, line := range movingLines {
		idx := clamp(line, 1, 6) - 1
		flipped.Lines[idx] = 1 - flipped.Lines[idx]
	}
	h := Compose(TrigramIndex(flipped.Upper()), TrigramIndex(flipped.Lower()))
	return &h
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

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
