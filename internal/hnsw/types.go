package hnsw

import "github.com/hupe1980/agentdb/model"

// Neighbor is a connection to another node with its cached distance.
// Distances are cached at link time so pruning never recomputes them.
type Neighbor struct {
	ID   model.RowID
	Dist float32
}

// SearchResult represents a single result of a KNN search.
type SearchResult struct {
	// Row is the internal row ID of the matched vector.
	Row model.RowID
	// Distance is the cosine distance to the query (lower is closer).
	Distance float32
}

// Filter restricts which rows may appear in search results.
// Filtered-out nodes are still traversed for navigation.
type Filter interface {
	Matches(id model.RowID) bool
}

// SearchOptions configures a single search call.
type SearchOptions struct {
	// EFSearch overrides the beam width for this search.
	// If 0, the index default is used. Values below k are raised to k.
	EFSearch int

	// Filter, if non-nil, restricts results to matching rows.
	Filter Filter
}
