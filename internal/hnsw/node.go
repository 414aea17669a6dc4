package hnsw

import "github.com/hupe1980/agentdb/model"

// node is a single entry in the flat node arena. Nodes reference each
// other exclusively by RowID (arena index), never by pointer, so removal
// is plain bookkeeping and the graph cannot form ownership cycles.
//
// A nil slot in the arena means the row was deleted (or never existed).
type node struct {
	// vector is the stored embedding, L2-normalized when possible so
	// cosine distance reduces to 1 - dot.
	vector []float32

	// level is the highest layer this node participates in.
	// The node exists in all layers 0..level.
	level int

	// neighbors holds the per-layer connection lists, index 0..level.
	// Layer capacity is maxM (2*M at layer 0, M above).
	neighbors [][]Neighbor
}

func newNode(vector []float32, level, m, m0 int) *node {
	neighbors := make([][]Neighbor, level+1)
	for l := range neighbors {
		capacity := m
		if l == 0 {
			capacity = m0
		}
		neighbors[l] = make([]Neighbor, 0, capacity)
	}
	return &node{
		vector:    vector,
		level:     level,
		neighbors: neighbors,
	}
}

// connected reports whether the node already links to id at the layer.
func (n *node) connected(layer int, id model.RowID) bool {
	for _, c := range n.neighbors[layer] {
		if c.ID == id {
			return true
		}
	}
	return false
}

// disconnect removes id from the node's layer connection list.
// Returns true if a connection was removed.
func (n *node) disconnect(layer int, id model.RowID) bool {
	conns := n.neighbors[layer]
	for i, c := range conns {
		if c.ID == id {
			n.neighbors[layer] = append(conns[:i], conns[i+1:]...)
			return true
		}
	}
	return false
}
