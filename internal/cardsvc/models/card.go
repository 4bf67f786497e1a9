package models

import "time"

const (
	StateUnscratched = "unscratched"
	StateScratched   = "scratched"
	StateActivated   = "activated"
	StateCancelled   = "cancelled"
)

// Card is the single scratch card under management. A new value replaces
// the previous one on every committed transition, it is never mutated in place.
type Card struct {
	Code      string    `json:"code,omitempty"` // empty while unscratched
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCard returns the initial unscratched card created at service start.
func NewCard() Card {
	return Card{State: StateUnscratched, Timestamp: time.Now()}
}

// HistoryEntry is a point-in-time snapshot of one transition outcome.
// Entries are append-only and never changed after creation.
type HistoryEntry struct {
	Code      string    `json:"code,omitempty"` // empty for cancelled attempts
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}
