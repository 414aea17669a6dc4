package searcher

import "github.com/hupe1980/agentdb/model"

// VisitedSet tracks visited nodes using a bitset and a dirty list for
// O(visited) reset instead of O(capacity).
type VisitedSet struct {
	bits  []uint64
	dirty []model.RowID
}

// NewVisitedSet creates a new visited set sized for the given number of nodes.
func NewVisitedSet(capacity int) *VisitedSet {
	return &VisitedSet{
		bits:  make([]uint64, (capacity+63)/64),
		dirty: make([]model.RowID, 0, 128),
	}
}

// Visit marks a node as visited.
func (v *VisitedSet) Visit(id model.RowID) {
	wordIdx := int(id >> 6)
	bitMask := uint64(1) << (id & 63)

	if wordIdx >= len(v.bits) {
		v.grow(wordIdx + 1)
	}

	if v.bits[wordIdx]&bitMask == 0 {
		v.bits[wordIdx] |= bitMask
		v.dirty = append(v.dirty, id)
	}
}

// Visited returns true if the node has been visited.
func (v *VisitedSet) Visited(id model.RowID) bool {
	wordIdx := int(id >> 6)
	if wordIdx >= len(v.bits) {
		return false
	}
	return v.bits[wordIdx]&(uint64(1)<<(id&63)) != 0
}

// Reset clears the visited status for all nodes visited in the current session.
func (v *VisitedSet) Reset() {
	for _, id := range v.dirty {
		v.bits[id>>6] &^= uint64(1) << (id & 63)
	}
	v.dirty = v.dirty[:0]
}

func (v *VisitedSet) grow(newLen int) {
	newCap := len(v.bits) * 2
	if newCap < newLen {
		newCap = newLen
	}
	newBits := make([]uint64, newCap)
	copy(newBits, v.bits)
	v.bits = newBits
}
