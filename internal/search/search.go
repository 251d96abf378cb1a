// Package search indexes conversation turns and answers full-text queries
// over them, scoped to a single session.
package search

// TurnRecord is the data we index for a conversation turn.
type TurnRecord struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Body      string `json:"body"`
	Sender    string `json:"sender"`
	CreatedAt int64  `json:"createdAt"`
}

// Query describes a search request. SessionID is mandatory; turns never
// leak across sessions.
type Query struct {
	SessionID string
	Text      string
	Limit     int
}

// Result is a single search hit returned to the caller.
type Result struct {
	TurnID    string `json:"turnId"`
	Snippet   string `json:"snippet"`
	Sender    string `json:"sender"`
	CreatedAt int64  `json:"createdAt"`
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over indexed turns.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}
