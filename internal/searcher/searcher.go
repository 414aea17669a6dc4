package searcher

import "sync"

// Searcher is a reusable execution context for graph search operations.
// It owns all scratch memory required for a search, eliminating heap
// allocations in the steady state.
//
// Searcher is NOT thread-safe. It is intended to be owned by a single
// goroutine for the duration of one operation.
type Searcher struct {
	// Visited tracks visited nodes during graph traversal.
	Visited *VisitedSet

	// Candidates is a max-heap holding the best results found so far
	// (top is the worst of the kept set, for cheap bounded replacement).
	Candidates *PriorityQueue

	// ScratchCandidates is a min-heap frontier of nodes to explore.
	ScratchCandidates *PriorityQueue

	// ScratchVec is a reusable buffer for query normalization.
	ScratchVec []float32

	// ScratchItems is a reusable buffer for candidate extraction and
	// the neighbor-selection heuristic.
	ScratchItems []PriorityQueueItem
}

var searcherPool = sync.Pool{
	New: func() any {
		return NewSearcher(1024, 128)
	},
}

// NewSearcher creates a new searcher with the given initial capacities.
func NewSearcher(visitedCap, queueCap int) *Searcher {
	return &Searcher{
		Visited:           NewVisitedSet(visitedCap),
		Candidates:        NewPriorityQueue(true),
		ScratchCandidates: NewPriorityQueue(false),
		ScratchItems:      make([]PriorityQueueItem, 0, queueCap),
	}
}

// Get returns a Searcher from the pool.
func Get() *Searcher {
	s := searcherPool.Get().(*Searcher)
	s.Reset()
	return s
}

// Put returns a Searcher to the pool.
func Put(s *Searcher) {
	searcherPool.Put(s)
}

// Reset clears the searcher state for reuse.
func (s *Searcher) Reset() {
	s.Visited.Reset()
	s.Candidates.Reset()
	s.ScratchCandidates.Reset()
	s.ScratchItems = s.ScratchItems[:0]
}
