package models

import (
	"errors"
	"time"
)

// drawTimeLayouts are the timestamp layouts accepted for historical draws, in order.
var drawTimeLayouts = []string{"2006-01-02", "2006/01/02", "20060102", "2006-01-02 15:04"}

// HistoryRecord is one historical draw.
// Records are treated as immutable once loaded.
type HistoryRecord struct {
	Period    string `json:"period"`
	Numbers   []int  `json:"numbers"`           // main-zone numbers, sorted where the source sorts them
	Timestamp string `json:"timestamp"`         // draw date, usually YYYY-MM-DD
	Special   *int   `json:"special,omitempty"` // blue/back number when the game has one
}

// Validate checks that the record fields are valid.
func (r *HistoryRecord) Validate() error {
	if r.Period == "" {
		return errors.New("period must not be empty")
	}
	if len(r.Numbers) == 0 {
		return errors.New("numbers must not be empty")
	}
	for _, n := range r.Numbers {
		if n < 1 {
			return errors.New("numbers must be positive")
		}
	}
	if r.Timestamp == "" {
		return errors.New("timestamp must not be empty")
	}
	if r.Special != nil && *r.Special < 1 {
		return errors.New("special number must be positive")
	}
	return nil
}

// DrawTime parses the record timestamp in UTC.
func (r *HistoryRecord) DrawTime() (time.Time, bool) {
	return ParseDrawTime(r.Timestamp)
}

// ParseDrawTime parses a draw timestamp using the accepted layouts, in UTC.
func ParseDrawTime(value string) (time.Time, bool) {
	for _, layout := range drawTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool {
	return &v
}
