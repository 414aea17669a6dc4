// Package metadata provides the opaque document type attached to stored
// vectors, plus an inverted index over scalar fields using Roaring
// Bitmaps for efficient hybrid vector + metadata search.
package metadata

import (
	"fmt"
	"maps"
	"strconv"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/agentdb/model"
)

// Metadata is a JSON-like document associated with a stored vector.
// The engine treats it as opaque except for scalar fields, which are
// indexed for filtering.
type Metadata map[string]any

// Clone returns a shallow copy of the document.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// valueKey canonicalizes a scalar value for the inverted index.
// Non-scalar values (nested maps, slices) are not indexed.
func valueKey(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return "s:" + val, true
	case bool:
		return "b:" + strconv.FormatBool(val), true
	case int:
		return "f:" + strconv.FormatFloat(float64(val), 'g', -1, 64), true
	case int64:
		return "f:" + strconv.FormatFloat(float64(val), 'g', -1, 64), true
	case float32:
		return "f:" + strconv.FormatFloat(float64(val), 'g', -1, 64), true
	case float64:
		return "f:" + strconv.FormatFloat(val, 'g', -1, 64), true
	case fmt.Stringer:
		return "s:" + val.String(), true
	default:
		return "", false
	}
}

// Index is an inverted index from scalar metadata fields to the rows
// carrying them. Posting lists are Roaring Bitmaps, so filter
// compilation is a handful of compressed set operations.
type Index struct {
	mu sync.RWMutex

	// field -> canonical value -> bitmap of rows
	inverted map[string]map[string]*roaring.Bitmap
}

// NewIndex creates a new empty inverted index.
func NewIndex() *Index {
	return &Index{
		inverted: make(map[string]map[string]*roaring.Bitmap),
	}
}

// Add indexes the scalar fields of the document under the row.
func (ix *Index) Add(row model.RowID, md Metadata) {
	if len(md) == 0 {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for field, v := range md {
		key, ok := valueKey(v)
		if !ok {
			continue
		}
		values := ix.inverted[field]
		if values == nil {
			values = make(map[string]*roaring.Bitmap)
			ix.inverted[field] = values
		}
		bm := values[key]
		if bm == nil {
			bm = roaring.New()
			values[key] = bm
		}
		bm.Add(uint32(row))
	}
}

// Remove drops the row from the posting lists of the document's fields.
func (ix *Index) Remove(row model.RowID, md Metadata) {
	if len(md) == 0 {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for field, v := range md {
		key, ok := valueKey(v)
		if !ok {
			continue
		}
		if values := ix.inverted[field]; values != nil {
			if bm := values[key]; bm != nil {
				bm.Remove(uint32(row))
				if bm.IsEmpty() {
					delete(values, key)
				}
			}
			if len(values) == 0 {
				delete(ix.inverted, field)
			}
		}
	}
}

// Replace atomically swaps the indexed fields of a row.
func (ix *Index) Replace(row model.RowID, old, new Metadata) {
	ix.Remove(row, old)
	ix.Add(row, new)
}

// Eval compiles a filter into a bitmap of matching rows.
// Returns an empty bitmap (never nil) when nothing matches.
func (ix *Index) Eval(f Filter) *Bitmap {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if f == nil {
		return &Bitmap{rb: roaring.New()}
	}
	return &Bitmap{rb: f.eval(ix)}
}

// lookup returns a clone of the posting list for field == value.
// Caller holds at least the read lock.
func (ix *Index) lookup(field string, value any) *roaring.Bitmap {
	key, ok := valueKey(value)
	if !ok {
		return roaring.New()
	}
	if values := ix.inverted[field]; values != nil {
		if bm := values[key]; bm != nil {
			return bm.Clone()
		}
	}
	return roaring.New()
}

// Bitmap is a set of rows produced by filter evaluation. It satisfies
// the index's search filter contract.
type Bitmap struct {
	rb *roaring.Bitmap
}

// Matches reports whether the row is in the set.
func (b *Bitmap) Matches(id model.RowID) bool {
	return b.rb.Contains(uint32(id))
}

// Cardinality returns the number of rows in the set.
func (b *Bitmap) Cardinality() uint64 {
	return b.rb.GetCardinality()
}

// IsEmpty returns true if no rows match.
func (b *Bitmap) IsEmpty() bool {
	return b.rb.IsEmpty()
}
