package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	// VectorField is the indexed vector attribute, "vector" when empty.
	VectorField string
	// TagFilters are pre-filters rendered as @field:{value} clauses.
	TagFilters   map[string]string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Distance is the raw __vector_score reported
// by the engine; lower means closer.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
