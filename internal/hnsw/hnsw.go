package hnsw

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/agentdb/distance"
	"github.com/hupe1980/agentdb/internal/searcher"
	"github.com/hupe1980/agentdb/model"
)

const (
	// layerNormalizationBase is the base constant for the exponential
	// layer probability distribution.
	layerNormalizationBase = 1.0

	// mmax0Multiplier is the multiplier for maximum connections at layer 0.
	mmax0Multiplier = 2

	// minimumM is the minimum valid value for M.
	minimumM = 2

	// DefaultM is the default number of bidirectional links per layer.
	DefaultM = 16

	// DefaultEF is the default size of the dynamic candidate list.
	DefaultEF = 100

	// DefaultMaxLevel caps the randomly drawn node level.
	DefaultMaxLevel = 16
)

// Options represents the options for configuring HNSW.
type Options struct {
	Dimension  int
	M          int
	EF         int
	MaxLevel   int
	Heuristic  bool
	RandomSeed *int64
}

// DefaultOptions contains the default options for HNSW.
var DefaultOptions = Options{
	Dimension: 0,
	M:         DefaultM,
	EF:        DefaultEF,
	MaxLevel:  DefaultMaxLevel,
	Heuristic: true,
}

// HNSW is a Hierarchical Navigable Small World graph over a flat arena
// of nodes addressed by RowID.
//
// Concurrency: mutation (Insert/Delete) is serialized behind the write
// lock; searches run concurrently under the read lock. No search ever
// observes a partially linked node because publication happens under
// the write lock.
type HNSW struct {
	mu sync.RWMutex

	opts                   Options
	maxConnectionsPerLayer int
	maxConnectionsLayer0   int
	layerMultiplier        float64

	rng *rand.Rand // guarded by mu (write path only)

	// nodes is the arena; the slice index is the RowID. RowIDs are
	// never reused: deleted slots stay nil for the process lifetime.
	nodes      []*node
	count      int
	entryPoint model.RowID
	maxLevel   int // -1 when empty
}

// New creates a new HNSW instance.
func New(optFns ...func(o *Options)) (*HNSW, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, &ErrInvalidDimension{Dimension: opts.Dimension}
	}

	if opts.M < minimumM {
		opts.M = minimumM
	}

	if opts.EF <= 0 {
		opts.EF = DefaultEF
	}

	if opts.MaxLevel <= 0 {
		opts.MaxLevel = DefaultMaxLevel
	}

	var seed int64
	if opts.RandomSeed != nil {
		seed = *opts.RandomSeed
	} else {
		seed = time.Now().UnixNano()
	}

	return &HNSW{
		opts:                   opts,
		maxConnectionsPerLayer: opts.M,
		maxConnectionsLayer0:   mmax0Multiplier * opts.M,
		layerMultiplier:        layerNormalizationBase / math.Log(float64(opts.M)),
		rng:                    rand.New(rand.NewSource(seed)),
		maxLevel:               -1,
	}, nil
}

// Dimension returns the dimensionality of the vectors in the index.
func (h *HNSW) Dimension() int {
	return h.opts.Dimension
}

// Count returns the number of live nodes in the index.
func (h *HNSW) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Contains reports whether the row exists and has not been deleted.
func (h *HNSW) Contains(id model.RowID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return int(id) < len(h.nodes) && h.nodes[id] != nil
}

// prepareVector validates the input and returns a normalized copy.
// Zero-norm vectors are stored as-is; their dot product against any
// unit vector is 0, which maps to the cosine-distance fallback of 1.
func (h *HNSW) prepareVector(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, ErrEmptyVector
	}
	if len(v) != h.opts.Dimension {
		return nil, &ErrDimensionMismatch{Expected: h.opts.Dimension, Actual: len(v)}
	}
	if vec, ok := distance.NormalizeL2Copy(v); ok {
		return vec, nil
	}
	vec := make([]float32, len(v))
	copy(vec, v)
	return vec, nil
}

// dist computes the cosine distance between two normalized vectors.
func (h *HNSW) dist(a, b []float32) float32 {
	return 1 - distance.Dot(a, b)
}

// drawLevel draws a node level from the exponential distribution with
// multiplier 1/ln(M), capped at the configured maximum.
func (h *HNSW) drawLevel() int {
	r := h.rng.Float64()
	if r == 0 {
		r = math.SmallestNonzeroFloat64
	}
	level := int(math.Floor(-math.Log(r) * h.layerMultiplier))
	if level > h.opts.MaxLevel {
		level = h.opts.MaxLevel
	}
	return level
}

// Insert inserts a vector and returns its RowID.
func (h *HNSW) Insert(ctx context.Context, v []float32) (model.RowID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	vec, err := h.prepareVector(v)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	id := model.RowID(len(h.nodes))
	level := h.drawLevel()
	n := newNode(vec, level, h.maxConnectionsPerLayer, h.maxConnectionsLayer0)
	h.nodes = append(h.nodes, n)

	// First node becomes the entry point.
	if h.count == 0 {
		h.entryPoint = id
		h.maxLevel = level
		h.count = 1
		return id, nil
	}

	if err := h.insertNode(id, n); err != nil {
		h.nodes[id] = nil
		return 0, err
	}

	h.count++
	if level > h.maxLevel {
		h.maxLevel = level
		h.entryPoint = id
	}

	return id, nil
}

// insertNode links the already-published node into the graph.
// Caller holds the write lock.
func (h *HNSW) insertNode(id model.RowID, n *node) error {
	ep := h.nodes[h.entryPoint]
	if ep == nil {
		return ErrGraphCorruption
	}

	s := searcher.Get()
	defer searcher.Put(s)

	// Phase 1: greedy descent from the top layer down to level+1.
	// This only narrows the insertion starting point; no links yet.
	currID := h.entryPoint
	currDist := h.dist(n.vector, ep.vector)
	for level := h.maxLevel; level > n.level; level-- {
		currID, currDist = h.greedyStep(n.vector, currID, currDist, level)
	}

	// Phase 2: beam search and link from min(level, maxLevel) down to 0.
	for level := min(n.level, h.maxLevel); level >= 0; level-- {
		h.searchLayer(s, n.vector, currID, currDist, level, h.opts.EF, nil)

		maxConns := h.maxConnectionsPerLayer
		if level == 0 {
			maxConns = h.maxConnectionsLayer0
		}

		neighbors := h.selectNeighbors(s, s.Candidates, maxConns)

		// Entry point for the next layer down is the closest candidate.
		if len(neighbors) > 0 {
			currID = neighbors[0].Node
			currDist = neighbors[0].Distance
		}

		// Copy into the node's own list before linking back: neighbors
		// aliases pooled scratch that nested selection calls reuse.
		n.neighbors[level] = n.neighbors[level][:0]
		for _, nb := range neighbors {
			n.neighbors[level] = append(n.neighbors[level], Neighbor{ID: nb.Node, Dist: nb.Distance})
		}

		for _, nb := range n.neighbors[level] {
			h.connect(s, nb.ID, id, level, nb.Dist)
		}
	}

	return nil
}

// greedyStep repeatedly moves to the closest neighbor at the layer
// until no neighbor improves on the current distance.
func (h *HNSW) greedyStep(q []float32, currID model.RowID, currDist float32, level int) (model.RowID, float32) {
	for {
		changed := false
		curr := h.nodes[currID]
		if curr == nil || level > curr.level {
			return currID, currDist
		}
		for _, next := range curr.neighbors[level] {
			nn := h.nodes[next.ID]
			if nn == nil {
				continue
			}
			d := h.dist(q, nn.vector)
			if d < currDist {
				currID = next.ID
				currDist = d
				changed = true
			}
		}
		if !changed {
			return currID, currDist
		}
	}
}

// searchLayer runs a beam search of width ef at the given layer,
// leaving the results in s.Candidates (a bounded max-heap).
//
// The filter applies to results only; filtered-out nodes still serve
// as navigation waypoints so sparse filters cannot strand the search.
func (h *HNSW) searchLayer(s *searcher.Searcher, q []float32, epID model.RowID, epDist float32, level, ef int, filter Filter) {
	s.Visited.Reset()
	s.ScratchCandidates.Reset()
	s.Candidates.Reset()

	s.Visited.Visit(epID)
	s.ScratchCandidates.PushItem(searcher.PriorityQueueItem{Node: epID, Distance: epDist})
	if filter == nil || filter.Matches(epID) {
		s.Candidates.PushItem(searcher.PriorityQueueItem{Node: epID, Distance: epDist})
	}

	candidates := s.ScratchCandidates
	results := s.Candidates

	for candidates.Len() > 0 {
		curr, _ := candidates.PopItem()

		if results.Len() >= ef {
			worst, _ := results.TopItem()
			if curr.Distance > worst.Distance {
				break
			}
		}

		currNode := h.nodes[curr.Node]
		if currNode == nil || level > currNode.level {
			continue
		}

		for _, next := range currNode.neighbors[level] {
			if s.Visited.Visited(next.ID) {
				continue
			}
			s.Visited.Visit(next.ID)

			nn := h.nodes[next.ID]
			if nn == nil {
				continue
			}
			d := h.dist(q, nn.vector)

			// Skip obviously-bad candidates once the beam is full
			// to reduce heap churn.
			if results.Len() >= ef {
				worst, _ := results.TopItem()
				if d > worst.Distance {
					continue
				}
			}

			candidates.PushItem(searcher.PriorityQueueItem{Node: next.ID, Distance: d})
			if filter == nil || filter.Matches(next.ID) {
				results.PushItemBounded(searcher.PriorityQueueItem{Node: next.ID, Distance: d}, ef)
			}
		}
	}
}

// selectNeighbors selects up to m neighbors from the candidate heap,
// nearest first. Drains the heap.
func (h *HNSW) selectNeighbors(s *searcher.Searcher, candidates *searcher.PriorityQueue, m int) []searcher.PriorityQueueItem {
	// Extract nearest-first: candidates is a max-heap, so popping
	// yields worst-to-best; reverse afterwards.
	temp := s.ScratchItems[:0]
	for candidates.Len() > 0 {
		item, _ := candidates.PopItem()
		temp = append(temp, item)
	}
	for i, j := 0, len(temp)-1; i < j; i, j = i+1, j-1 {
		temp[i], temp[j] = temp[j], temp[i]
	}
	s.ScratchItems = temp

	if !h.opts.Heuristic || len(temp) <= m {
		if len(temp) > m {
			temp = temp[:m]
		}
		return temp
	}

	return h.selectNeighborsHeuristic(temp, m)
}

// selectNeighborsHeuristic applies the diversity heuristic: a candidate
// that is closer to an already-selected neighbor than to the query is
// redundant and skipped. Keeps the graph navigable instead of
// degenerating into near-duplicate clusters.
func (h *HNSW) selectNeighborsHeuristic(sorted []searcher.PriorityQueueItem, m int) []searcher.PriorityQueueItem {
	result := sorted[:0]

	for _, cand := range sorted {
		if len(result) >= m {
			break
		}

		candNode := h.nodes[cand.Node]
		if candNode == nil {
			continue
		}

		good := true
		for _, sel := range result {
			selNode := h.nodes[sel.Node]
			if selNode == nil {
				continue
			}
			if h.dist(candNode.vector, selNode.vector) < cand.Distance {
				good = false
				break
			}
		}

		if good {
			result = append(result, cand)
		}
	}

	// Note: result aliases the prefix of sorted, and every kept element
	// originates at or after its destination index, so the in-place
	// compaction is safe. Skipped candidates are gone; the heuristic
	// intentionally under-fills rather than re-adding redundant links.
	return result
}

// connect adds a bidirectional link from sourceID to targetID at the
// layer, pruning the source's connection list if it overflows.
func (h *HNSW) connect(s *searcher.Searcher, sourceID, targetID model.RowID, level int, dist float32) {
	src := h.nodes[sourceID]
	if src == nil || level > src.level {
		return
	}
	if src.connected(level, targetID) {
		return
	}

	maxConns := h.maxConnectionsPerLayer
	if level == 0 {
		maxConns = h.maxConnectionsLayer0
	}

	if len(src.neighbors[level]) < maxConns {
		src.neighbors[level] = append(src.neighbors[level], Neighbor{ID: targetID, Dist: dist})
		return
	}

	// Overflow: re-run selection over the enlarged candidate set and
	// prune back down to the limit. Cached distances avoid recomputes.
	// s.Candidates is drained at this point (selectNeighbors empties it).
	s.Candidates.Reset()
	for _, c := range src.neighbors[level] {
		s.Candidates.PushItem(searcher.PriorityQueueItem{Node: c.ID, Distance: c.Dist})
	}
	s.Candidates.PushItem(searcher.PriorityQueueItem{Node: targetID, Distance: dist})

	selected := h.selectNeighbors(s, s.Candidates, maxConns)
	src.neighbors[level] = src.neighbors[level][:0]
	for _, sel := range selected {
		src.neighbors[level] = append(src.neighbors[level], Neighbor{ID: sel.Node, Dist: sel.Distance})
	}
}

// Delete removes a node from every layer it participates in, repairs
// the neighbor lists of nodes that referenced it, and promotes a new
// entry point if needed. The RowID is never reused.
func (h *HNSW) Delete(ctx context.Context, id model.RowID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if int(id) >= len(h.nodes) || h.nodes[id] == nil {
		return &ErrNodeNotFound{ID: id}
	}

	removed := h.nodes[id]
	h.nodes[id] = nil
	h.count--

	// Pruning makes links asymmetric: a node may reference id without
	// appearing in id's own lists. Scan every live node at each layer
	// the removed node participated in so no reference survives.
	for level := 0; level <= removed.level; level++ {
		former := removed.neighbors[level]
		for i, affected := range h.nodes {
			if affected == nil || level > affected.level {
				continue
			}
			if !affected.disconnect(level, id) {
				continue
			}
			h.repairNode(model.RowID(i), affected, level, former)
		}
	}

	if h.count == 0 {
		h.entryPoint = 0
		h.maxLevel = -1
		return nil
	}

	if id == h.entryPoint {
		if !h.promoteEntryPoint() {
			return ErrGraphCorruption
		}
	}

	return nil
}

// repairNode reconnects a node that lost a neighbor at the layer,
// drawing a replacement from the removed node's former neighbor list.
// This keeps the graph connected when a well-linked hub disappears.
func (h *HNSW) repairNode(affectedID model.RowID, affected *node, level int, former []Neighbor) {
	maxConns := h.maxConnectionsPerLayer
	if level == 0 {
		maxConns = h.maxConnectionsLayer0
	}
	if len(affected.neighbors[level]) >= maxConns {
		return
	}

	var (
		best     model.RowID
		bestDist float32
		found    bool
	)
	for _, cand := range former {
		if cand.ID == affectedID {
			continue
		}
		candNode := h.nodes[cand.ID]
		if candNode == nil || level > candNode.level {
			continue
		}
		if affected.connected(level, cand.ID) {
			continue
		}
		d := h.dist(affected.vector, candNode.vector)
		if !found || d < bestDist {
			best = cand.ID
			bestDist = d
			found = true
		}
	}
	if !found {
		return
	}

	affected.neighbors[level] = append(affected.neighbors[level], Neighbor{ID: best, Dist: bestDist})

	replacement := h.nodes[best]
	if !replacement.connected(level, affectedID) {
		s := searcher.Get()
		h.connect(s, best, affectedID, level, bestDist)
		searcher.Put(s)
	}
}

// promoteEntryPoint scans the arena for the highest-level remaining
// node and installs it as the entry point. Returns false if no live
// node exists even though count is positive.
func (h *HNSW) promoteEntryPoint() bool {
	bestLevel := -1
	var bestID model.RowID
	for i, n := range h.nodes {
		if n == nil {
			continue
		}
		if n.level > bestLevel {
			bestLevel = n.level
			bestID = model.RowID(i)
		}
	}
	if bestLevel < 0 {
		return false
	}
	h.entryPoint = bestID
	h.maxLevel = bestLevel
	return true
}

// KNNSearch returns the k nearest neighbors to the query, closest first.
// An empty index yields an empty result set, not an error.
func (h *HNSW) KNNSearch(ctx context.Context, q []float32, k int, opts *SearchOptions) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	s := searcher.Get()
	defer searcher.Put(s)

	query, err := h.prepareQuery(s, q)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return []SearchResult{}, nil
	}

	ep := h.nodes[h.entryPoint]
	if ep == nil {
		return nil, ErrGraphCorruption
	}

	ef := h.opts.EF
	if opts != nil && opts.EFSearch > 0 {
		ef = opts.EFSearch
	}
	if ef < k {
		ef = k
	}

	// Greedy descent through the upper layers.
	currID := h.entryPoint
	currDist := h.dist(query, ep.vector)
	for level := h.maxLevel; level > 0; level-- {
		currID, currDist = h.greedyStep(query, currID, currDist, level)
	}

	var filter Filter
	if opts != nil && opts.Filter != nil {
		filter = opts.Filter
	}

	h.searchLayer(s, query, currID, currDist, 0, ef, filter)

	// Extract the top k, closest first. The max-heap pops worst first.
	results := s.Candidates
	for results.Len() > k {
		_, _ = results.PopItem()
	}
	out := make([]SearchResult, results.Len())
	for i := results.Len() - 1; i >= 0; i-- {
		item, _ := results.PopItem()
		out[i] = SearchResult{Row: item.Node, Distance: item.Distance}
	}
	return out, nil
}

// prepareQuery validates the query and normalizes it into the
// searcher's scratch buffer.
func (h *HNSW) prepareQuery(s *searcher.Searcher, q []float32) ([]float32, error) {
	if len(q) == 0 {
		return nil, ErrEmptyVector
	}
	if len(q) != h.opts.Dimension {
		return nil, &ErrDimensionMismatch{Expected: h.opts.Dimension, Actual: len(q)}
	}

	if cap(s.ScratchVec) < len(q) {
		s.ScratchVec = make([]float32, len(q))
	}
	s.ScratchVec = s.ScratchVec[:len(q)]
	copy(s.ScratchVec, q)
	distance.NormalizeL2InPlace(s.ScratchVec)
	return s.ScratchVec, nil
}
