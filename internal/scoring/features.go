package scoring

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/rewired-gh/meihua/internal/calendar"
)

// Features are the per-number history signals, each normalized to [0, 1].
type Features struct {
	Frequency map[int]float64 `json:"frequency"`
	Recency   map[int]float64 `json:"recency"`
	Gap       map[int]float64 `json:"gap"`
}

// Extractor computes history features for a game with numbers 1..total.
type Extractor struct {
	total int
}

// NewExtractor creates an extractor for numbers 1..total.
func NewExtractor(total int) *Extractor {
	return &Extractor{total: total}
}

// Extract computes frequency, recency and gap over the most recent window
// draws (all when window <= 0) as seen from ref.
//
// Every appearance adds 0.7+0.3s to frequency and decay*(0.6+0.4s) to
// recency, where s is the moon-phase similarity between the draw and ref and
// decay is exp(-days/halfLife). Gap is the share of the window since a
// number last appeared, 1.0 for numbers never seen.
func (e *Extractor) Extract(h *History, ref time.Time, halfLife float64, window int) Features {
	out := Features{
		Frequency: map[int]float64{},
		Recency:   map[int]float64{},
		Gap:       map[int]float64{},
	}
	if h.Len() == 0 {
		return out
	}

	src := h.Window(window)
	n := src.Len()
	halfLife = math.Max(halfLife, 1.0)
	refAge := calendar.MoonAge(ref)
	lastSeen := make(map[int]int)

	for idx := 0; idx < n; idx++ {
		deltaDays := math.Max(ref.Sub(src.Time(idx)).Seconds()/86400.0, 0)
		decay := math.Exp(-deltaDays / halfLife)
		similarity := math.Max(1.0-calendar.PhaseDistance(refAge, src.MoonAge(idx))/(calendar.SynodicMonth/2.0), 0)
		cycleBoost := 0.7 + 0.3*similarity
		recencyBoost := 0.6 + 0.4*similarity

		for _, num := range src.Record(idx).Numbers {
			out.Frequency[num] += cycleBoost
			out.Recency[num] += decay * recencyBoost
			lastSeen[num] = idx
		}
	}

	normalizeByMax(out.Frequency)
	normalizeByMax(out.Recency)

	denominator := float64(max(n-1, 1))
	for num := 1; num <= e.total; num++ {
		last, ok := lastSeen[num]
		if !ok {
			out.Gap[num] = 1.0
			continue
		}
		out.Gap[num] = float64(n-1-last) / denominator
	}
	return out
}

func normalizeByMax(m map[int]float64) {
	if len(m) == 0 {
		return
	}
	values := make([]float64, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	peak := floats.Max(values)
	if peak == 0 {
		peak = 1
	}
	for k, v := range m {
		m[k] = v / peak
	}
}
