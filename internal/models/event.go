// Package models defines the core domain values for the meihua engine.
// These models represent prediction requests, historical draws, calendar
// profiles, scoring parameters, and the results of predictions, backtests,
// and parameter evolution.
//
// Terminology:
//   - Event: the moment a prediction is cast for. Its date components seed the hexagram.
//   - Draw: one historical lottery period with its drawn numbers.
//   - Buckets: game-specific named number lists such as "red"/"blue" or "main".
package models

import (
	"errors"
	"time"
)

// DefaultLocation is the location tag used when an event does not name one.
const DefaultLocation = "online"

// EventSnapshot is the context a single prediction is cast for.
// Values are created per call and never mutated afterwards.
type EventSnapshot struct {
	Timestamp        time.Time         `json:"timestamp"`
	Location         string            `json:"location"`
	ReferenceNumbers []int             `json:"reference_numbers,omitempty"` // optional, used by the weighted moving-line rule
	CustomFactors    map[string]string `json:"custom_factors,omitempty"`
}

// NewEventSnapshot builds an event at ts with the default location.
// A zero ts means now.
func NewEventSnapshot(ts time.Time) EventSnapshot {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return EventSnapshot{
		Timestamp:     ts,
		Location:      DefaultLocation,
		CustomFactors: map[string]string{},
	}
}

// ReferenceTime returns the event timestamp, or now when unset.
func (e EventSnapshot) ReferenceTime() time.Time {
	if e.Timestamp.IsZero() {
		return time.Now().UTC()
	}
	return e.Timestamp
}

// Validate checks that the event fields are usable.
func (e *EventSnapshot) Validate() error {
	if e.Timestamp.IsZero() {
		return errors.New("event timestamp must be set")
	}
	for _, n := range e.ReferenceNumbers {
		if n < 0 {
			return errors.New("reference numbers must not be negative")
		}
	}
	return nil
}
