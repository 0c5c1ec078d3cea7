// Package scoring turns a hexagram state, draw history and calendar profile
// into a per-number score.
//
// History is an immutable view over loaded draws. Parsed draw times and moon
// ages are computed once into a side table when the view is built, so a
// History can be shared by concurrent predictions and its prefixes reuse the
// same table.
package scoring

import (
	"time"

	"github.com/rewired-gh/meihua/internal/calendar"
	"github.com/rewired-gh/meihua/internal/models"
)

// History is a read-only sequence of draws, oldest first.
type History struct {
	records  []models.HistoryRecord
	times    []time.Time
	moonAges []float64
}

// NewHistory builds the view and its timestamp side table. Records whose
// timestamp cannot be parsed are placed (len-idx) days before now.
func NewHistory(records []models.HistoryRecord, now time.Time) *History {
	h := &History{
		records:  records,
		times:    make([]time.Time, len(records)),
		moonAges: make([]float64, len(records)),
	}
	for i := range records {
		t, ok := records[i].DrawTime()
		if !ok {
			t = now.Add(-time.Duration(len(records)-i) * 24 * time.Hour)
		}
		h.times[i] = t
		h.moonAges[i] = calendar.MoonAge(t)
	}
	return h
}

// Len returns the number of draws.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.records)
}

// Records returns the underlying draws. Callers must not modify them.
func (h *History) Records() []models.HistoryRecord {
	if h == nil {
		return nil
	}
	return h.records
}

// Record returns the draw at i.
func (h *History) Record(i int) models.HistoryRecord {
	return h.records[i]
}

// Time returns the parsed draw time at i.
func (h *History) Time(i int) time.Time {
	return h.times[i]
}

// MoonAge returns the moon age of the draw at i.
func (h *History) MoonAge(i int) float64 {
	return h.moonAges[i]
}

// Prefix returns the first n draws, sharing the side table.
func (h *History) Prefix(n int) *History {
	if h == nil {
		return nil
	}
	n = min(max(n, 0), len(h.records))
	return &History{
		records:  h.records[:n:n],
		times:    h.times[:n:n],
		moonAges: h.moonAges[:n:n],
	}
}

// Window returns the most recent n draws, or all of them when n <= 0.
func (h *History) Window(n int) *History {
	if h == nil || n <= 0 || n >= len(h.records) {
		return h
	}
	start := len(h.records) - n
	return &History{
		records:  h.records[start:],
		times:    h.times[start:],
		moonAges: h.moonAges[start:],
	}
}

// Last returns the most recent draw and whether one exists.
func (h *History) Last() (models.HistoryRecord, bool) {
	if h.Len() == 0 {
		return models.HistoryRecord{}, false
	}
	return h.records[len(h.records)-1], true
}
