package store

import (
	"sync"

	"github.com/avvvet/scratch-services/internal/cardsvc/models"
)

// HistoryStore keeps every transition outcome in memory. The log is
// append-only and volatile, a restart starts it empty on purpose.
type HistoryStore struct {
	mu      sync.RWMutex
	entries []models.HistoryEntry
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Append records one entry. It never rejects and never touches prior entries.
func (s *HistoryStore) Append(entry models.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

// Entries returns a copy of the log, newest first. Ties between entries
// sharing a timestamp keep insertion order.
func (s *HistoryStore) Entries() []models.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.HistoryEntry, len(s.entries))
	for i, e := range s.entries {
		out[len(s.entries)-1-i] = e
	}
	return out
}

func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
