package search

import (
	"strings"
	"sync"
)

// MemoryIndex is the always-available fallback index: case-insensitive
// substring matching over the turns of each session.
type MemoryIndex struct {
	mu    sync.RWMutex
	turns map[string][]TurnRecord
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{turns: make(map[string][]TurnRecord)}
}

// Healthy always reports true; the in-memory index cannot go away.
func (m *MemoryIndex) Healthy() bool { return true }

// IndexTurn adds or updates a turn.
func (m *MemoryIndex) IndexTurn(t TurnRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.turns[t.SessionID]
	for i, existing := range records {
		if existing.ID == t.ID {
			records[i] = t
			return nil
		}
	}
	m.turns[t.SessionID] = append(records, t)
	return nil
}

// RemoveSession drops every indexed turn of one session.
func (m *MemoryIndex) RemoveSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.turns, sessionID)
}

// Search scans the session's turns for a case-insensitive substring match.
func (m *MemoryIndex) Search(q Query) ([]Result, int, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))

	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := q.Limit
	if limit == 0 {
		limit = 20
	}

	var results []Result
	total := 0
	for _, record := range m.turns[q.SessionID] {
		if needle != "" && !strings.Contains(strings.ToLower(record.Body), needle) {
			continue
		}
		total++
		if len(results) < limit {
			results = append(results, Result{
				TurnID:    record.ID,
				Snippet:   record.Body,
				Sender:    record.Sender,
				CreatedAt: record.CreatedAt,
			})
		}
	}
	return results, total, nil
}
