package db

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int64
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	ID     string
	Index  string // physical index that holds the hit
	Score  float64
	Source map[string]any
}
