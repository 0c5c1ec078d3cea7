package models

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Hex weight slots, in the order used by ScoringParameters.HexWeights.
const (
	HexPrimary = iota
	HexMutual
	HexChanging
)

// minHexShare is the floor applied to each hex weight by NormalizeHexFloored.
const minHexShare = 0.05

// ScoringParameters is the tunable configuration of the number scorer.
// Base, dynamically derived, and evolved parameter sets all share this shape.
type ScoringParameters struct {
	HexWeights      [3]float64 `json:"hex_weights" yaml:"hex_weights"` // primary, mutual, changing
	HistoryWeight   float64    `json:"history_weight" yaml:"history_weight"`
	RecencyWeight   float64    `json:"recency_weight" yaml:"recency_weight"`
	GapWeight       float64    `json:"gap_weight" yaml:"gap_weight"`
	CalendarWeight  float64    `json:"calendar_weight" yaml:"calendar_weight"`
	HistoryHalfLife float64    `json:"history_half_life" yaml:"history_half_life"` // days
	HistoryWindow   int        `json:"history_window" yaml:"history_window"`       // most recent periods, 0 = all
}

// DefaultScoringParameters returns the stock base configuration.
func DefaultScoringParameters() ScoringParameters {
	return ScoringParameters{
		HexWeights:      [3]float64{0.5, 0.2, 0.3},
		HistoryWeight:   0.4,
		RecencyWeight:   0.25,
		GapWeight:       0.15,
		CalendarWeight:  0.2,
		HistoryHalfLife: 90,
	}
}

// Validate checks that the parameters are usable.
func (p *ScoringParameters) Validate() error {
	for i, w := range p.HexWeights {
		if w < 0 {
			return fmt.Errorf("hex weight %d must not be negative", i)
		}
	}
	if floats.Sum(p.HexWeights[:]) <= 0 {
		return errors.New("hex weights must not all be zero")
	}
	if p.HistoryWeight < 0 || p.RecencyWeight < 0 || p.GapWeight < 0 || p.CalendarWeight < 0 {
		return errors.New("history, recency, gap and calendar weights must not be negative")
	}
	if p.HistoryHalfLife <= 0 {
		return errors.New("history half-life must be positive")
	}
	if p.HistoryWindow < 0 {
		return errors.New("history window must not be negative")
	}
	return nil
}

// Weights returns the history, recency, gap and calendar weights in that order.
func (p ScoringParameters) Weights() [4]float64 {
	return [4]float64{p.HistoryWeight, p.RecencyWeight, p.GapWeight, p.CalendarWeight}
}

// WithWeights returns a copy with the four non-hex weights replaced.
func (p ScoringParameters) WithWeights(w [4]float64) ScoringParameters {
	p.HistoryWeight, p.RecencyWeight, p.GapWeight, p.CalendarWeight = w[0], w[1], w[2], w[3]
	return p
}

// WeightTotal returns the sum of the four non-hex weights.
func (p ScoringParameters) WeightTotal() float64 {
	w := p.Weights()
	return floats.Sum(w[:])
}

// NormalizeHex scales hex weights to sum to one. An all-zero input is returned unchanged.
func NormalizeHex(h [3]float64) [3]float64 {
	total := floats.Sum(h[:])
	if total == 0 {
		total = 1
	}
	return [3]float64{h[0] / total, h[1] / total, h[2] / total}
}

// NormalizeHexFloored normalizes hex weights, floors each share at 0.05, then normalizes again.
func NormalizeHexFloored(h [3]float64) [3]float64 {
	n := NormalizeHex(h)
	for i := range n {
		if n[i] < minHexShare {
			n[i] = minHexShare
		}
	}
	return NormalizeHex(n)
}

// RescaleWeights scales w so that its sum equals target. A zero-sum input is returned unchanged.
func RescaleWeights(w [4]float64, target float64) [4]float64 {
	total := floats.Sum(w[:])
	if total == 0 {
		return w
	}
	floats.Scale(target/total, w[:])
	return w
}

// ParameterOverride replaces the derived base parameters of a prediction.
type ParameterOverride struct {
	Params  ScoringParameters `json:"params"`
	Dynamic bool              `json:"dynamic"` // whether the dynamic layer still applies on top
}

// Candidate is one individual of the parameter evolution.
// The half-life and window are evolvable genes alongside the weights.
type Candidate struct {
	ScoringParameters `yaml:",inline"`
}

// Override returns the static override used to evaluate the candidate.
func (c Candidate) Override() *ParameterOverride {
	return &ParameterOverride{Params: c.ScoringParameters, Dynamic: false}
}

// EvolutionGuidance holds the genetic algorithm hyperparameters derived for one run.
type EvolutionGuidance struct {
	Iterations       int        `json:"iterations"`
	Population       int        `json:"population"`
	MutationStrength float64    `json:"mutation_strength"`
	MutationDecay    float64    `json:"mutation_decay"`
	CrossoverCenter  float64    `json:"crossover_center"`
	CrossoverWidth   float64    `json:"crossover_width"`
	HexFocus         [3]float64 `json:"hex_focus"`
	HexFocusWeight   float64    `json:"hex_focus_weight"`
	HalfLifeBounds   [2]float64 `json:"half_life_bounds"`
	WindowBounds     [2]int     `json:"window_bounds"`
	ExplorationBias  float64    `json:"exploration_bias"`
	Seed             *int64     `json:"seed,omitempty"`
}

// MysticBias is the ganzhi-derived bias folded into base parameters.
type MysticBias struct {
	Palace            int       `json:"palace"`
	Scalar            float64   `json:"scalar"` // (palace-5)/5, in [-0.8, 0.8]
	PreferredElements []Element `json:"preferred_elements"`
	NumericSpell      int       `json:"numeric_spell"`
	Illumination      float64   `json:"illumination"`
}
