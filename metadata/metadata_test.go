package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentdb/model"
)

func TestIndexAddAndEval(t *testing.T) {
	ix := NewIndex()

	ix.Add(1, Metadata{"kind": "note", "priority": 1})
	ix.Add(2, Metadata{"kind": "note", "priority": 2})
	ix.Add(3, Metadata{"kind": "task", "priority": 1})

	t.Run("eq string", func(t *testing.T) {
		bm := ix.Eval(Eq("kind", "note"))
		assert.Equal(t, uint64(2), bm.Cardinality())
		assert.True(t, bm.Matches(model.RowID(1)))
		assert.True(t, bm.Matches(model.RowID(2)))
		assert.False(t, bm.Matches(model.RowID(3)))
	})

	t.Run("eq numeric", func(t *testing.T) {
		bm := ix.Eval(Eq("priority", 1))
		assert.Equal(t, uint64(2), bm.Cardinality())
		assert.True(t, bm.Matches(model.RowID(3)))
	})

	t.Run("and", func(t *testing.T) {
		bm := ix.Eval(And(Eq("kind", "note"), Eq("priority", 1)))
		assert.Equal(t, uint64(1), bm.Cardinality())
		assert.True(t, bm.Matches(model.RowID(1)))
	})

	t.Run("or", func(t *testing.T) {
		bm := ix.Eval(Or(Eq("kind", "task"), Eq("priority", 2)))
		assert.Equal(t, uint64(2), bm.Cardinality())
	})

	t.Run("miss", func(t *testing.T) {
		bm := ix.Eval(Eq("kind", "missing"))
		assert.True(t, bm.IsEmpty())
	})

	t.Run("nil filter", func(t *testing.T) {
		bm := ix.Eval(nil)
		assert.True(t, bm.IsEmpty())
	})
}

func TestIndexNumericCanonicalization(t *testing.T) {
	ix := NewIndex()
	ix.Add(7, Metadata{"score": 3})

	// int, int64, float64 with the same value hit the same posting list.
	assert.True(t, ix.Eval(Eq("score", 3)).Matches(7))
	assert.True(t, ix.Eval(Eq("score", int64(3))).Matches(7))
	assert.True(t, ix.Eval(Eq("score", 3.0)).Matches(7))
}

func TestIndexRemove(t *testing.T) {
	ix := NewIndex()

	md := Metadata{"kind": "note"}
	ix.Add(1, md)
	ix.Add(2, md)

	ix.Remove(1, md)

	bm := ix.Eval(Eq("kind", "note"))
	require.Equal(t, uint64(1), bm.Cardinality())
	assert.False(t, bm.Matches(model.RowID(1)))
	assert.True(t, bm.Matches(model.RowID(2)))
}

func TestIndexReplace(t *testing.T) {
	ix := NewIndex()

	ix.Add(1, Metadata{"status": "open"})
	ix.Replace(1, Metadata{"status": "open"}, Metadata{"status": "closed"})

	assert.True(t, ix.Eval(Eq("status", "open")).IsEmpty())
	assert.True(t, ix.Eval(Eq("status", "closed")).Matches(1))
}

func TestIndexSkipsNonScalarValues(t *testing.T) {
	ix := NewIndex()
	ix.Add(1, Metadata{"tags": []string{"a", "b"}, "name": "x"})

	assert.True(t, ix.Eval(Eq("tags", []string{"a", "b"})).IsEmpty())
	assert.True(t, ix.Eval(Eq("name", "x")).Matches(1))
}

func TestMetadataClone(t *testing.T) {
	md := Metadata{"a": 1}
	cp := md.Clone()
	cp["a"] = 2

	assert.Equal(t, 1, md["a"])
	assert.Nil(t, Metadata(nil).Clone())
}
