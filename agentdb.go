// Package agentdb provides an embedded vector-similarity engine for Go.
//
// AgentDB combines an in-memory HNSW approximate-nearest-neighbor index
// over fixed-dimension float32 embeddings with a causal-relationship
// graph over named events:
//
//   - SIMD-dispatched cosine distance kernels (AVX/AVX512 on x86_64,
//     NEON on ARM64, portable fallback elsewhere)
//   - Thread-safe insert/search/delete with true node removal and
//     connectivity repair
//   - Metadata filtering with a Roaring Bitmap inverted index
//   - UUID record identifiers, never reused within a process lifetime
//   - Directed causal edges with sample-size-weighted statistics and
//     confidence-maximizing path discovery
//
// # Quick Start
//
//	ctx := context.Background()
//	db, err := agentdb.New(128,
//	    agentdb.WithM(16),
//	    agentdb.WithEF(100),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	id, err := db.Insert(ctx, embedding, metadata.Metadata{
//	    "kind": "episode",
//	})
//
//	results, err := db.Search(ctx, query, 10)
//
// Filtered search:
//
//	results, err := db.Search(ctx, query, 10, func(o *agentdb.SearchOptions) {
//	    o.Filter = metadata.Eq("kind", "episode")
//	})
//
// Causal reasoning is independent of vector storage:
//
//	_ = db.CausalAddEdge(ctx, "deploy", "latency_spike", 0.4, 0.9, 25)
//	path, _ := db.CausalFindPath("deploy", "incident", 4)
package agentdb

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentdb/causal"
	"github.com/hupe1980/agentdb/distance"
	"github.com/hupe1980/agentdb/internal/hnsw"
	"github.com/hupe1980/agentdb/internal/resource"
	"github.com/hupe1980/agentdb/metadata"
	"github.com/hupe1980/agentdb/model"
)

// record is the stored form of an inserted vector.
type record struct {
	row       model.RowID
	embedding []float32
	metadata  metadata.Metadata
}

// Record is an inserted vector returned by Get.
type Record struct {
	ID        model.ID
	Embedding []float32
	Metadata  metadata.Metadata
}

// SearchResult is a single ranked match.
type SearchResult struct {
	ID         model.ID
	Similarity float32
	Metadata   metadata.Metadata
}

// SearchOptions tune a single search call.
type SearchOptions struct {
	// EF overrides the beam width for this search. Values below k are
	// raised to k. Zero uses the configured default.
	EF int

	// Filter restricts results to records matching the metadata
	// predicate. Filtering happens during graph traversal, so the
	// index still returns up to k matching records when they exist.
	Filter metadata.Filter
}

// Stats is a snapshot of store state and configuration.
type Stats struct {
	VectorCount     int
	CausalEdgeCount int
	Dimension       int
	M               int
	EF              int

	// ActiveISA names the distance kernel instruction set selected at
	// process start.
	ActiveISA string
}

// AgentDB is an embedded vector store with an attached causal graph.
// All methods are safe for concurrent use.
type AgentDB struct {
	mu sync.RWMutex

	opts      options
	dimension int

	index   *hnsw.HNSW
	graph   *causal.Graph
	filters *metadata.Index

	records map[model.ID]*record
	byRow   map[model.RowID]model.ID

	controller *resource.Controller

	metrics MetricsCollector
	logger  *Logger
}

// New creates an AgentDB for embeddings of the given dimension.
func New(dimension int, optFns ...Option) (*AgentDB, error) {
	o := applyOptions(optFns)

	if dimension <= 0 {
		return nil, &ErrInvalidConfig{Reason: "dimension must be positive"}
	}
	if o.m <= 0 {
		return nil, &ErrInvalidConfig{Reason: "m must be positive"}
	}
	if o.ef <= 0 {
		return nil, &ErrInvalidConfig{Reason: "ef must be positive"}
	}
	if o.cacheSize < 0 {
		return nil, &ErrInvalidConfig{Reason: "cache size must not be negative"}
	}

	index, err := newIndex(dimension, o)
	if err != nil {
		return nil, translateError(err)
	}

	return &AgentDB{
		opts:      o,
		dimension: dimension,
		index:     index,
		graph:     causal.New(),
		filters:   metadata.NewIndex(),
		records:   make(map[model.ID]*record, o.cacheSize),
		byRow:     make(map[model.RowID]model.ID, o.cacheSize),
		controller: resource.NewController(resource.Config{
			MaxWorkers:       o.maxWorkers,
			IngestRatePerSec: o.ingestRatePerSec,
		}),
		metrics: o.metricsCollector,
		logger:  o.logger,
	}, nil
}

func newIndex(dimension int, o options) (*hnsw.HNSW, error) {
	return hnsw.New(func(io *hnsw.Options) {
		io.Dimension = dimension
		io.M = o.m
		io.EF = o.ef
		io.RandomSeed = o.randomSeed
	})
}

// Insert stores an embedding with optional metadata and returns the
// newly allocated record ID. IDs are unique for the process lifetime,
// even across delete/insert sequences.
func (db *AgentDB) Insert(ctx context.Context, embedding []float32, md metadata.Metadata) (model.ID, error) {
	start := time.Now()

	id, err := db.insert(ctx, embedding, md)

	db.metrics.RecordInsert(time.Since(start), err)
	db.logger.LogInsert(ctx, id, len(embedding), err)

	return id, err
}

func (db *AgentDB) insert(ctx context.Context, embedding []float32, md metadata.Metadata) (model.ID, error) {
	if len(embedding) != db.dimension {
		return "", &ErrDimensionMismatch{Expected: db.dimension, Actual: len(embedding)}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	row, err := db.index.Insert(ctx, embedding)
	if err != nil {
		return "", translateError(err)
	}

	id := model.ID(uuid.NewString())

	stored := make([]float32, len(embedding))
	copy(stored, embedding)

	db.records[id] = &record{
		row:       row,
		embedding: stored,
		metadata:  md.Clone(),
	}
	db.byRow[row] = id
	db.filters.Add(row, md)

	return id, nil
}

// Search returns the k records most similar to the query, best first.
// Similarity is cosine similarity in [-1, 1]. An empty store yields an
// empty result set, not an error.
func (db *AgentDB) Search(ctx context.Context, query []float32, k int, optFns ...func(o *SearchOptions)) ([]SearchResult, error) {
	start := time.Now()

	results, err := db.search(ctx, query, k, optFns)

	db.metrics.RecordSearch(k, time.Since(start), err)
	db.logger.LogSearch(ctx, k, len(results), err)

	return results, err
}

func (db *AgentDB) search(ctx context.Context, query []float32, k int, optFns []func(o *SearchOptions)) ([]SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(query) != db.dimension {
		return nil, &ErrDimensionMismatch{Expected: db.dimension, Actual: len(query)}
	}

	var opts SearchOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	// Snapshot the pointers so a concurrent Clear cannot swap them
	// mid-search.
	db.mu.RLock()
	index := db.index
	filters := db.filters
	db.mu.RUnlock()

	indexOpts := &hnsw.SearchOptions{EFSearch: opts.EF}
	if opts.Filter != nil {
		bm := filters.Eval(opts.Filter)
		if bm.IsEmpty() {
			return []SearchResult{}, nil
		}
		indexOpts.Filter = bm
	}

	matches, err := index.KNNSearch(ctx, query, k, indexOpts)
	if err != nil {
		return nil, translateError(err)
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		id, ok := db.byRow[m.Row]
		if !ok {
			// Row deleted between traversal and join.
			continue
		}
		results = append(results, SearchResult{
			ID:         id,
			Similarity: 1 - m.Distance,
			Metadata:   db.records[id].metadata.Clone(),
		})
	}

	return results, nil
}

// Get returns the stored embedding and metadata for an ID.
func (db *AgentDB) Get(id model.ID) (Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rec, ok := db.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}

	embedding := make([]float32, len(rec.embedding))
	copy(embedding, rec.embedding)

	return Record{
		ID:        id,
		Embedding: embedding,
		Metadata:  rec.metadata.Clone(),
	}, nil
}

// Delete removes a record from the store and repairs the index graph
// around it.
func (db *AgentDB) Delete(ctx context.Context, id model.ID) error {
	start := time.Now()

	err := db.delete(ctx, id)

	db.metrics.RecordDelete(time.Since(start), err)
	db.logger.LogDelete(ctx, id, err)

	return err
}

func (db *AgentDB) delete(ctx context.Context, id model.ID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.records[id]
	if !ok {
		return ErrNotFound
	}

	if err := db.index.Delete(ctx, rec.row); err != nil {
		return translateError(err)
	}

	db.filters.Remove(rec.row, rec.metadata)
	delete(db.byRow, rec.row)
	delete(db.records, id)

	return nil
}

// UpdateMetadata replaces a record's metadata without touching its
// embedding or graph position.
func (db *AgentDB) UpdateMetadata(ctx context.Context, id model.ID, md metadata.Metadata) error {
	start := time.Now()

	err := db.updateMetadata(id, md)

	db.metrics.RecordUpdate(time.Since(start), err)
	db.logger.LogUpdate(ctx, id, err)

	return err
}

func (db *AgentDB) updateMetadata(id model.ID, md metadata.Metadata) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.records[id]
	if !ok {
		return ErrNotFound
	}

	db.filters.Replace(rec.row, rec.metadata, md)
	rec.metadata = md.Clone()

	return nil
}

// BatchItem is a single entry in a BatchInsert call.
type BatchItem struct {
	Embedding []float32
	Metadata  metadata.Metadata
}

// BatchResult is the outcome for one BatchItem, in input order.
type BatchResult struct {
	ID  model.ID
	Err error
}

// BatchInsert stores many embeddings, bounded by the configured worker
// count and ingest rate. Results are returned in input order; a failed
// item does not abort the rest of the batch.
func (db *AgentDB) BatchInsert(ctx context.Context, items []BatchItem) []BatchResult {
	start := time.Now()

	results := make([]BatchResult, len(items))

	var wg sync.WaitGroup
	for i := range items {
		if err := db.controller.AdmitIngest(ctx, 1); err != nil {
			results[i] = BatchResult{Err: err}
			continue
		}
		if err := db.controller.AcquireWorker(ctx); err != nil {
			results[i] = BatchResult{Err: err}
			continue
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer db.controller.ReleaseWorker()

			id, err := db.insert(ctx, items[i].Embedding, items[i].Metadata)
			results[i] = BatchResult{ID: id, Err: err}
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	db.metrics.RecordBatchInsert(len(items), failed, time.Since(start))
	db.logger.LogBatchInsert(ctx, len(items), failed)

	return results
}

// CausalAddEdge records an observation that cause led to effect.
// Repeated observations of the same pair merge into a single edge
// with sample-size-weighted statistics.
func (db *AgentDB) CausalAddEdge(ctx context.Context, cause, effect string, uplift, confidence float64, sampleSize uint64) error {
	start := time.Now()

	err := translateError(db.graph.AddEdge(cause, effect, uplift, confidence, sampleSize))

	db.metrics.RecordCausalEdge(time.Since(start), err)
	db.logger.LogCausalEdge(ctx, cause, effect, err)

	return err
}

// CausalQueryCauses returns edges leading into the effect, strongest
// first.
func (db *AgentDB) CausalQueryCauses(effect string) []causal.Edge {
	return db.graph.QueryCauses(effect)
}

// CausalQueryEffects returns edges leading out of the cause, strongest
// first.
func (db *AgentDB) CausalQueryEffects(cause string) []causal.Edge {
	return db.graph.QueryEffects(cause)
}

// CausalFindPath returns the causal chain from start to end with the
// highest confidence product within maxDepth edges, or nil if none
// exists.
func (db *AgentDB) CausalFindPath(start, end string, maxDepth int) (*causal.Path, error) {
	path, err := db.graph.FindPath(start, end, maxDepth)
	return path, translateError(err)
}

// Clear removes all vectors, metadata and causal edges, keeping the
// configuration. Record IDs issued before Clear are never reissued.
func (db *AgentDB) Clear(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	vectors := len(db.records)
	edges := db.graph.Len()

	index, err := newIndex(db.dimension, db.opts)
	if err != nil {
		return translateError(err)
	}

	db.index = index
	db.filters = metadata.NewIndex()
	db.records = make(map[model.ID]*record, db.opts.cacheSize)
	db.byRow = make(map[model.RowID]model.ID, db.opts.cacheSize)
	db.graph.Clear()

	db.logger.LogClear(ctx, vectors, edges)

	return nil
}

// Count returns the number of stored vectors.
func (db *AgentDB) Count() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.records)
}

// Stats returns a snapshot of store state and configuration.
func (db *AgentDB) Stats() Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return Stats{
		VectorCount:     len(db.records),
		CausalEdgeCount: db.graph.Len(),
		Dimension:       db.dimension,
		M:               db.opts.m,
		EF:              db.opts.ef,
		ActiveISA:       distance.ActiveISA(),
	}
}
