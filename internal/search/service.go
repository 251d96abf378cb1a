package search

import "log"

// Service is the facade that tries Meilisearch first and falls back to the
// in-memory index. Every turn is always indexed in memory, so the fallback
// is complete even when Meilisearch was down at index time.
type Service struct {
	meili  *Meili
	memory *MemoryIndex
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, memory *MemoryIndex) *Service {
	return &Service{meili: meili, memory: memory}
}

// IndexTurn records a turn in the in-memory index and, when Meilisearch is
// available, pushes it there too (fire-and-forget).
func (s *Service) IndexTurn(t TurnRecord) {
	if err := s.memory.IndexTurn(t); err != nil {
		log.Printf("search: index turn %s in memory: %v", t.ID, err)
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexTurn(t); err != nil {
			log.Printf("search: index turn %s: %v", t.ID, err)
		}
	}()
}

// Search tries Meilisearch if healthy, otherwise uses the in-memory index.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to memory: %v", err)
	}

	results, total, err := s.memory.Search(q)
	if err != nil {
		log.Printf("search: memory index error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// RemoveSession drops a session's turns from both indexes
// (fire-and-forget on the Meilisearch side).
func (s *Service) RemoveSession(sessionID string, turnIDs []string) {
	s.memory.RemoveSession(sessionID)
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		for _, id := range turnIDs {
			if err := s.meili.DeleteTurn(id); err != nil {
				log.Printf("search: delete turn %s: %v", id, err)
			}
		}
	}()
}

// Close stops background work on the Meilisearch side.
func (s *Service) Close() {
	if s.meili != nil {
		s.meili.Close()
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
