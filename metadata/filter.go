package metadata

import "github.com/RoaringBitmap/roaring/v2"

// Filter is a predicate over indexed metadata fields. Filters are
// compiled to bitmaps by Index.Eval before a search runs.
type Filter interface {
	eval(ix *Index) *roaring.Bitmap
}

type eqFilter struct {
	field string
	value any
}

func (f eqFilter) eval(ix *Index) *roaring.Bitmap {
	return ix.lookup(f.field, f.value)
}

// Eq matches rows whose field equals the given scalar value.
func Eq(field string, value any) Filter {
	return eqFilter{field: field, value: value}
}

type andFilter struct {
	filters []Filter
}

func (f andFilter) eval(ix *Index) *roaring.Bitmap {
	if len(f.filters) == 0 {
		return roaring.New()
	}
	result := f.filters[0].eval(ix)
	for _, sub := range f.filters[1:] {
		if result.IsEmpty() {
			return result
		}
		result.And(sub.eval(ix))
	}
	return result
}

// And matches rows satisfying all of the given filters.
func And(filters ...Filter) Filter {
	return andFilter{filters: filters}
}

type orFilter struct {
	filters []Filter
}

func (f orFilter) eval(ix *Index) *roaring.Bitmap {
	result := roaring.New()
	for _, sub := range f.filters {
		result.Or(sub.eval(ix))
	}
	return result
}

// Or matches rows satisfying any of the given filters.
func Or(filters ...Filter) Filter {
	return orFilter{filters: filters}
}
