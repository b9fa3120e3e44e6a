package search

// Result is a single search hit over committed documents.
type Result struct {
	ID         string `json:"id"`
	Activity   string `json:"activity"`
	Snippet    string `json:"snippet"`
	AuthorName string `json:"authorName"`
}

// Query describes a search request.
type Query struct {
	Text     string
	Activity string // empty = all activities
	Limit    int
}

// Response is the envelope returned to the caller.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// DocumentRecord is the data we index for a committed document.
type DocumentRecord struct {
	ID         string `json:"id"`
	Activity   string `json:"activity"`
	Context    string `json:"context"`
	Content    string `json:"content"`
	AuthorName string `json:"authorName"`
	CreatedAt  string `json:"createdAt"`
}
