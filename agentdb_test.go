package agentdb

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentdb/metadata"
	"github.com/hupe1980/agentdb/model"
)

func randomUnitVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)

	var norm float64
	for i := range v {
		v[i] = float32(rng.NormFloat64())
		norm += float64(v[i]) * float64(v[i])
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}

	return v
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		db, err := New(128)
		require.NoError(t, err)

		stats := db.Stats()
		assert.Equal(t, 128, stats.Dimension)
		assert.Equal(t, DefaultM, stats.M)
		assert.Equal(t, DefaultEF, stats.EF)
		assert.NotEmpty(t, stats.ActiveISA)
	})

	t.Run("invalid config", func(t *testing.T) {
		var invalid *ErrInvalidConfig

		_, err := New(0)
		require.ErrorAs(t, err, &invalid)

		_, err = New(128, WithM(0))
		require.ErrorAs(t, err, &invalid)

		_, err = New(128, WithEF(-1))
		assert.ErrorAs(t, err, &invalid)
	})
}

func TestInsertAndSearch(t *testing.T) {
	ctx := context.Background()

	db, err := New(4, WithRandomSeed(42))
	require.NoError(t, err)

	id1, err := db.Insert(ctx, []float32{1, 0, 0, 0}, metadata.Metadata{"name": "x"})
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := db.Insert(ctx, []float32{0, 1, 0, 0}, nil)
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	results, err := db.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, id1, results[0].ID)
	assert.InDelta(t, 1.0, float64(results[0].Similarity), 1e-5)
	assert.Equal(t, "x", results[0].Metadata["name"])
	assert.Equal(t, id2, results[1].ID)
}

func TestSearchSelfRecallAtScale(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	const (
		dim = 128
		n   = 1000
	)

	db, err := New(dim, WithM(16), WithEF(100), WithRandomSeed(7))
	require.NoError(t, err)

	vectors := make([][]float32, n)
	ids := make([]model.ID, n)
	for i := range vectors {
		vectors[i] = randomUnitVector(rng, dim)

		id, err := db.Insert(ctx, vectors[i], nil)
		require.NoError(t, err)
		ids[i] = id
	}

	require.Equal(t, n, db.Count())

	probe := 123
	results, err := db.Search(ctx, vectors[probe], 10)
	require.NoError(t, err)
	require.Len(t, results, 10)

	assert.Equal(t, ids[probe], results[0].ID)
	assert.GreaterOrEqual(t, float64(results[0].Similarity), 0.999)
}

func TestSearchEmptyStore(t *testing.T) {
	db, err := New(8)
	require.NoError(t, err)

	results, err := db.Search(context.Background(), make([]float32, 8), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchInvalidK(t *testing.T) {
	db, err := New(8)
	require.NoError(t, err)

	_, err = db.Search(context.Background(), make([]float32, 8), 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestDimensionMismatchLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()

	db, err := New(8)
	require.NoError(t, err)

	_, err = db.Insert(ctx, make([]float32, 4), nil)

	var mismatch *ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 8, mismatch.Expected)
	assert.Equal(t, 4, mismatch.Actual)
	assert.Equal(t, 0, db.Count())

	_, err = db.Search(ctx, make([]float32, 12), 3)
	assert.ErrorAs(t, err, &mismatch)
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	db, err := New(4)
	require.NoError(t, err)

	embedding := []float32{0.5, 0.5, 0, 0}
	id, err := db.Insert(ctx, embedding, metadata.Metadata{"kind": "note"})
	require.NoError(t, err)

	rec, err := db.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, embedding, rec.Embedding)
	assert.Equal(t, "note", rec.Metadata["kind"])

	// Returned buffers are copies.
	rec.Embedding[0] = 99
	rec.Metadata["kind"] = "task"
	again, err := db.Get(id)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), again.Embedding[0])
	assert.Equal(t, "note", again.Metadata["kind"])

	_, err = db.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	db, err := New(4, WithRandomSeed(1))
	require.NoError(t, err)

	id1, err := db.Insert(ctx, []float32{1, 0, 0, 0}, nil)
	require.NoError(t, err)
	id2, err := db.Insert(ctx, []float32{0, 1, 0, 0}, nil)
	require.NoError(t, err)

	require.NoError(t, db.Delete(ctx, id1))
	assert.Equal(t, 1, db.Count())

	_, err = db.Get(id1)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, db.Delete(ctx, id1), ErrNotFound)

	results, err := db.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id2, results[0].ID)
}

func TestIDsNeverReused(t *testing.T) {
	ctx := context.Background()

	db, err := New(4, WithRandomSeed(1))
	require.NoError(t, err)

	seen := make(map[model.ID]bool)
	for i := 0; i < 50; i++ {
		id, err := db.Insert(ctx, []float32{float32(i), 1, 0, 0}, nil)
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true

		if i%3 == 0 {
			require.NoError(t, db.Delete(ctx, id))
		}
	}
}

func TestUpdateMetadata(t *testing.T) {
	ctx := context.Background()

	db, err := New(4)
	require.NoError(t, err)

	id, err := db.Insert(ctx, []float32{1, 0, 0, 0}, metadata.Metadata{"status": "open"})
	require.NoError(t, err)

	require.NoError(t, db.UpdateMetadata(ctx, id, metadata.Metadata{"status": "closed"}))

	rec, err := db.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "closed", rec.Metadata["status"])

	// Filter index follows the update.
	results, err := db.Search(ctx, []float32{1, 0, 0, 0}, 1, func(o *SearchOptions) {
		o.Filter = metadata.Eq("status", "open")
	})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = db.Search(ctx, []float32{1, 0, 0, 0}, 1, func(o *SearchOptions) {
		o.Filter = metadata.Eq("status", "closed")
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)

	assert.ErrorIs(t, db.UpdateMetadata(ctx, "missing", nil), ErrNotFound)
}

func TestFilteredSearch(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(3))

	db, err := New(16, WithRandomSeed(3))
	require.NoError(t, err)

	kinds := []string{"episode", "skill"}
	byKind := make(map[string]map[model.ID]bool)
	for _, k := range kinds {
		byKind[k] = make(map[model.ID]bool)
	}

	for i := 0; i < 100; i++ {
		kind := kinds[i%2]
		id, err := db.Insert(ctx, randomUnitVector(rng, 16), metadata.Metadata{"kind": kind})
		require.NoError(t, err)
		byKind[kind][id] = true
	}

	results, err := db.Search(ctx, randomUnitVector(rng, 16), 10, func(o *SearchOptions) {
		o.Filter = metadata.Eq("kind", "episode")
	})
	require.NoError(t, err)
	require.Len(t, results, 10)

	for _, r := range results {
		assert.True(t, byKind["episode"][r.ID])
		assert.Equal(t, "episode", r.Metadata["kind"])
	}

	// Filter with no matching rows short-circuits.
	results, err = db.Search(ctx, randomUnitVector(rng, 16), 10, func(o *SearchOptions) {
		o.Filter = metadata.Eq("kind", "unknown")
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBatchInsert(t *testing.T) {
	ctx := context.Background()

	db, err := New(8, WithMaxWorkers(4), WithRandomSeed(9))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(9))

	items := make([]BatchItem, 20)
	for i := range items {
		items[i] = BatchItem{Embedding: randomUnitVector(rng, 8)}
	}
	// One bad item must not abort the rest.
	items[7].Embedding = make([]float32, 3)

	results := db.BatchInsert(ctx, items)
	require.Len(t, results, 20)

	var mismatch *ErrDimensionMismatch
	assert.ErrorAs(t, results[7].Err, &mismatch)

	seen := make(map[model.ID]bool)
	for i, r := range results {
		if i == 7 {
			continue
		}
		require.NoError(t, r.Err)
		require.False(t, seen[r.ID])
		seen[r.ID] = true
	}

	assert.Equal(t, 19, db.Count())
}

func TestCausalOperations(t *testing.T) {
	ctx := context.Background()

	db, err := New(4)
	require.NoError(t, err)

	require.NoError(t, db.CausalAddEdge(ctx, "a", "b", 0.5, 0.9, 10))
	require.NoError(t, db.CausalAddEdge(ctx, "b", "c", 0.5, 0.8, 10))
	require.NoError(t, db.CausalAddEdge(ctx, "a", "b", 0.5, 0.9, 5))

	assert.Equal(t, 2, db.Stats().CausalEdgeCount)

	causes := db.CausalQueryCauses("b")
	require.Len(t, causes, 1)
	assert.Equal(t, uint64(15), causes[0].SampleSize)

	effects := db.CausalQueryEffects("a")
	require.Len(t, effects, 1)
	assert.Equal(t, "b", effects[0].Effect)

	path, err := db.CausalFindPath("a", "c", 2)
	require.NoError(t, err)
	require.NotNil(t, path)
	assert.InDelta(t, 0.72, path.Confidence, 1e-12)

	t.Run("self loop", func(t *testing.T) {
		var selfLoop *ErrSelfLoop
		err := db.CausalAddEdge(ctx, "x", "x", 0.1, 0.5, 1)
		assert.ErrorAs(t, err, &selfLoop)
	})

	t.Run("invalid depth", func(t *testing.T) {
		var invalid *ErrInvalidConfig
		_, err := db.CausalFindPath("a", "c", 0)
		assert.ErrorAs(t, err, &invalid)
	})
}

func TestClear(t *testing.T) {
	ctx := context.Background()

	db, err := New(4, WithRandomSeed(5))
	require.NoError(t, err)

	_, err = db.Insert(ctx, []float32{1, 0, 0, 0}, metadata.Metadata{"kind": "note"})
	require.NoError(t, err)
	require.NoError(t, db.CausalAddEdge(ctx, "a", "b", 0.5, 0.9, 10))

	require.NoError(t, db.Clear(ctx))

	stats := db.Stats()
	assert.Equal(t, 0, stats.VectorCount)
	assert.Equal(t, 0, stats.CausalEdgeCount)

	results, err := db.Search(ctx, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	// Store stays usable after a reset.
	id, err := db.Insert(ctx, []float32{0, 1, 0, 0}, nil)
	require.NoError(t, err)
	rec, err := db.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
}

func TestMetricsAndLogging(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}

	db, err := New(4,
		WithMetricsCollector(metrics),
		WithLogger(NoopLogger()),
	)
	require.NoError(t, err)

	id, err := db.Insert(ctx, []float32{1, 0, 0, 0}, nil)
	require.NoError(t, err)

	_, err = db.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)

	require.NoError(t, db.Delete(ctx, id))
	_ = db.CausalAddEdge(ctx, "a", "b", 0.5, 0.9, 1)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.InsertCount)
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Equal(t, int64(1), stats.DeleteCount)
	assert.Equal(t, int64(1), stats.CausalEdgeCount)
	assert.Zero(t, stats.InsertErrors)
}
