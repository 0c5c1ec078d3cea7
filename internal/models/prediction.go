package models

import (
	"sort"
	"time"
)

// Bucket names used by the game adapters.
const (
	BucketMain            = "main"
	BucketReserve         = "reserve"
	BucketHighProbability = "high_probability"
	BucketLowProbability  = "low_probability"
	BucketRed             = "red"
	BucketBlue            = "blue"
	BucketRedTop          = "red_top"
	BucketRedAvoid        = "red_avoid"
	BucketBlueTop         = "blue_top"
	BucketFront           = "front"
	BucketBack            = "back"
	BucketFrontTop        = "front_top"
	BucketFrontAvoid      = "front_avoid"
	BucketBackCandidates  = "back_candidates"
)

// Buckets maps a bucket name to its numbers.
type Buckets map[string][]int

// Keys returns the bucket names in lexical order.
func (b Buckets) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HexagramSummary names the hexagrams cast for a prediction.
type HexagramSummary struct {
	Primary         string  `json:"primary"`
	PrimaryElement  Element `json:"primary_element"`
	Mutual          string  `json:"mutual,omitempty"`
	MutualElement   Element `json:"mutual_element,omitempty"`
	Changing        string  `json:"changing,omitempty"`
	ChangingElement Element `json:"changing_element,omitempty"`
	MovingLines     []int   `json:"moving_lines"`
}

// WeightsUsed records the weights the scorer actually applied.
type WeightsUsed struct {
	Active          ScoringParameters  `json:"active"`
	Base            *ScoringParameters `json:"base,omitempty"` // set when the dynamic layer changed the base
	HalfLifeDays    float64            `json:"half_life_days"`
	BaseHalfLife    float64            `json:"base_half_life_days"`
	HistoryWindow   int                `json:"history_window"`
	DynamicApplied  bool               `json:"dynamic_applied"`
	OverrideApplied bool               `json:"override_applied"`
}

// PredictionMetadata describes how a prediction was produced.
type PredictionMetadata struct {
	Hexagram      HexagramSummary   `json:"hexagram"`
	Season        string            `json:"season"`
	HistorySize   int               `json:"history_size"`
	Weights       WeightsUsed       `json:"weights"`
	Calendar      CalendarProfile   `json:"calendar"`
	ElementCycle  []Element         `json:"element_cycle"`
	ElementGroups map[Element][]int `json:"element_groups"`
	Mystic        *MysticBias       `json:"mystic,omitempty"`
	ElementMap    map[int]Element   `json:"-"`
	Extra         map[string]string `json:"extra,omitempty"` // custom factors echoed from the event
}

// PredictionResult is the output of one prediction call.
type PredictionResult struct {
	ID               string             `json:"id"`
	Game             GameType           `json:"game"`
	ReferenceTime    time.Time          `json:"reference_time"`
	PrimarySelection Buckets            `json:"primary_selection"`
	CandidatePool    Buckets            `json:"candidate_pool"`
	Scores           map[int]float64    `json:"scores"`
	GuardSets        []Buckets          `json:"guard_sets,omitempty"`
	Metadata         PredictionMetadata `json:"metadata"`
}
