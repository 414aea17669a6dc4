// Package causal maintains a directed graph of observed
// cause-and-effect relationships between events. Edges carry an
// uplift estimate, a confidence score and a sample count; repeated
// observations of the same edge are merged by sample-size-weighted
// averaging so large samples dominate noisy small ones.
package causal

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Edge is a directed causal relationship between two events.
type Edge struct {
	Cause      string
	Effect     string
	Uplift     float64
	Confidence float64
	SampleSize uint64

	FirstObserved time.Time
	LastObserved  time.Time
}

// Strength is the ranking score of an edge.
func (e Edge) Strength() float64 {
	return e.Uplift * e.Confidence
}

type edgeKey struct {
	cause  string
	effect string
}

// Graph is a thread-safe directed causal graph. It is independent of
// vector storage; events are identified by opaque strings.
type Graph struct {
	mu sync.RWMutex

	edges map[edgeKey]*Edge

	// adjacency for traversal, cause -> effects
	out map[string][]string
	// reverse adjacency, effect -> causes
	in map[string][]string
}

// New creates an empty causal graph.
func New() *Graph {
	return &Graph{
		edges: make(map[edgeKey]*Edge),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
}

// ErrSelfLoop is returned when cause and effect are the same event.
type ErrSelfLoop struct {
	Event string
}

func (e *ErrSelfLoop) Error() string {
	return fmt.Sprintf("causal: self loop on event %q", e.Event)
}

// ErrInvalidSample is returned for a zero sample size.
type ErrInvalidSample struct {
	SampleSize uint64
}

func (e *ErrInvalidSample) Error() string {
	return fmt.Sprintf("causal: invalid sample size %d", e.SampleSize)
}

// ErrInvalidConfidence is returned for a confidence outside [0, 1].
type ErrInvalidConfidence struct {
	Confidence float64
}

func (e *ErrInvalidConfidence) Error() string {
	return fmt.Sprintf("causal: confidence %g outside [0, 1]", e.Confidence)
}

// AddEdge records an observation of cause leading to effect. If the
// edge already exists, uplift and confidence are merged as
// sample-size-weighted averages and the sample counts are summed.
func (g *Graph) AddEdge(cause, effect string, uplift, confidence float64, sampleSize uint64) error {
	if cause == effect {
		return &ErrSelfLoop{Event: cause}
	}
	if sampleSize == 0 {
		return &ErrInvalidSample{SampleSize: sampleSize}
	}
	if confidence < 0 || confidence > 1 {
		return &ErrInvalidConfidence{Confidence: confidence}
	}

	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	key := edgeKey{cause: cause, effect: effect}

	if existing, ok := g.edges[key]; ok {
		oldN := float64(existing.SampleSize)
		newN := float64(sampleSize)
		total := oldN + newN

		existing.Uplift = (existing.Uplift*oldN + uplift*newN) / total
		existing.Confidence = (existing.Confidence*oldN + confidence*newN) / total
		existing.SampleSize += sampleSize
		existing.LastObserved = now

		return nil
	}

	g.edges[key] = &Edge{
		Cause:         cause,
		Effect:        effect,
		Uplift:        uplift,
		Confidence:    confidence,
		SampleSize:    sampleSize,
		FirstObserved: now,
		LastObserved:  now,
	}
	g.out[cause] = append(g.out[cause], effect)
	g.in[effect] = append(g.in[effect], cause)

	return nil
}

// Edge returns a copy of the edge from cause to effect, if present.
func (g *Graph) Edge(cause, effect string) (Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.edges[edgeKey{cause: cause, effect: effect}]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// QueryCauses returns all edges whose effect is the given event,
// strongest first.
func (g *Graph) QueryCauses(effect string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	causes := g.in[effect]
	out := make([]Edge, 0, len(causes))
	for _, cause := range causes {
		out = append(out, *g.edges[edgeKey{cause: cause, effect: effect}])
	}
	sortByStrength(out)

	return out
}

// QueryEffects returns all edges whose cause is the given event,
// strongest first.
func (g *Graph) QueryEffects(cause string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	effects := g.out[cause]
	out := make([]Edge, 0, len(effects))
	for _, effect := range effects {
		out = append(out, *g.edges[edgeKey{cause: cause, effect: effect}])
	}
	sortByStrength(out)

	return out
}

func sortByStrength(edges []Edge) {
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Strength() > edges[j].Strength()
	})
}

// Path is a causal chain from a start event to an end event.
type Path struct {
	// Events holds the chain including both endpoints.
	Events []string

	// Confidence is the product of the confidences along the chain.
	Confidence float64
}

// ErrInvalidDepth is returned when a path search is requested with a
// non-positive depth bound.
type ErrInvalidDepth struct {
	MaxDepth int
}

func (e *ErrInvalidDepth) Error() string {
	return fmt.Sprintf("causal: invalid max depth %d, must be positive", e.MaxDepth)
}

// FindPath searches for the causal chain from start to end with the
// highest confidence product, following at most maxDepth edges.
// Returns nil if no chain exists within the depth bound.
func (g *Graph) FindPath(start, end string, maxDepth int) (*Path, error) {
	if maxDepth <= 0 {
		return nil, &ErrInvalidDepth{MaxDepth: maxDepth}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if start == end {
		return &Path{Events: []string{start}, Confidence: 1}, nil
	}

	var best *Path
	onPath := map[string]bool{start: true}
	chain := []string{start}

	var dfs func(node string, confidence float64, depth int)
	dfs = func(node string, confidence float64, depth int) {
		if depth >= maxDepth {
			return
		}
		for _, next := range g.out[node] {
			if onPath[next] {
				continue
			}
			e := g.edges[edgeKey{cause: node, effect: next}]
			conf := confidence * e.Confidence
			if best != nil && conf <= best.Confidence {
				continue
			}

			chain = append(chain, next)
			if next == end {
				events := make([]string, len(chain))
				copy(events, chain)
				best = &Path{Events: events, Confidence: conf}
			} else {
				onPath[next] = true
				dfs(next, conf, depth+1)
				delete(onPath, next)
			}
			chain = chain[:len(chain)-1]
		}
	}
	dfs(start, 1, 0)

	return best, nil
}

// Len returns the number of edges in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.edges)
}

// Clear removes all edges.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges = make(map[edgeKey]*Edge)
	g.out = make(map[string][]string)
	g.in = make(map[string][]string)
}
