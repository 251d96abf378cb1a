package search

import "testing"

func TestMemoryIndexSessionScoping(t *testing.T) {
	index := NewMemoryIndex()
	index.IndexTurn(TurnRecord{ID: "t1", SessionID: "sess-1", Body: "deploy the release", Sender: "user"})
	index.IndexTurn(TurnRecord{ID: "t2", SessionID: "sess-2", Body: "deploy something else", Sender: "user"})

	results, total, err := index.Search(Query{SessionID: "sess-1", Text: "deploy"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || len(results) != 1 {
		t.Fatalf("got %d results (total %d), want 1", len(results), total)
	}
	if results[0].TurnID != "t1" {
		t.Fatalf("turn id = %s, want t1", results[0].TurnID)
	}
}

func TestMemoryIndexCaseInsensitive(t *testing.T) {
	index := NewMemoryIndex()
	index.IndexTurn(TurnRecord{ID: "t1", SessionID: "sess-1", Body: "Release Manager duties", Sender: "assistant"})

	_, total, err := index.Search(Query{SessionID: "sess-1", Text: "release manager"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
}

func TestMemoryIndexNoMatch(t *testing.T) {
	index := NewMemoryIndex()
	index.IndexTurn(TurnRecord{ID: "t1", SessionID: "sess-1", Body: "hello", Sender: "user"})

	results, total, err := index.Search(Query{SessionID: "sess-1", Text: "goodbye"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 0 || len(results) != 0 {
		t.Fatalf("expected no results, got %d (total %d)", len(results), total)
	}
}

func TestMemoryIndexLimit(t *testing.T) {
	index := NewMemoryIndex()
	for _, id := range []string{"t1", "t2", "t3"} {
		index.IndexTurn(TurnRecord{ID: id, SessionID: "sess-1", Body: "same text", Sender: "user"})
	}

	results, total, err := index.Search(Query{SessionID: "sess-1", Text: "same", Limit: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
}

func TestMemoryIndexUpdatesExistingTurn(t *testing.T) {
	index := NewMemoryIndex()
	index.IndexTurn(TurnRecord{ID: "t1", SessionID: "sess-1", Body: "first", Sender: "user"})
	index.IndexTurn(TurnRecord{ID: "t1", SessionID: "sess-1", Body: "second", Sender: "user"})

	_, total, err := index.Search(Query{SessionID: "sess-1", Text: ""})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 {
		t.Fatalf("total = %d, want 1 after update", total)
	}
}

func TestMemoryIndexRemoveSession(t *testing.T) {
	index := NewMemoryIndex()
	index.IndexTurn(TurnRecord{ID: "t1", SessionID: "sess-1", Body: "hello", Sender: "user"})
	index.IndexTurn(TurnRecord{ID: "t2", SessionID: "sess-2", Body: "hello", Sender: "user"})

	index.RemoveSession("sess-1")

	_, total, _ := index.Search(Query{SessionID: "sess-1", Text: "hello"})
	if total != 0 {
		t.Fatalf("sess-1 total = %d, want 0", total)
	}
	_, total, _ = index.Search(Query{SessionID: "sess-2", Text: "hello"})
	if total != 1 {
		t.Fatalf("sess-2 total = %d, want 1", total)
	}
}

func TestServiceFallsBackToMemory(t *testing.T) {
	// No Meilisearch configured; the facade must serve from memory.
	memory := NewMemoryIndex()
	service := NewService(nil, memory)

	service.IndexTurn(TurnRecord{ID: "t1", SessionID: "sess-1", Body: "findable text", Sender: "user"})

	resp := service.Search(Query{SessionID: "sess-1", Text: "findable"})
	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Query != "findable" {
		t.Fatalf("query echo = %q", resp.Query)
	}
}

func TestServiceResultsNeverNil(t *testing.T) {
	service := NewService(nil, NewMemoryIndex())
	resp := service.Search(Query{SessionID: "sess-1", Text: "anything"})
	if resp.Results == nil {
		t.Fatal("results must be non-nil for JSON encoding")
	}
}
