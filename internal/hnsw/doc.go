// Package hnsw implements a Hierarchical Navigable Small World graph
// for approximate nearest neighbor search over cosine distance.
//
// Nodes live in a flat arena and reference each other by RowID (arena
// index), never by pointer. Every node exists at layer 0; higher layers
// are sampled from an exponential distribution with multiplier 1/ln(M).
// Construction and search use a beam of configurable width (ef), and
// neighbor selection prefers diverse candidates over raw proximity.
//
// Deletion is real: the node is removed from every layer, nodes that
// referenced it are repaired from its former neighbor list, and the
// entry point is re-promoted when necessary. RowIDs are never reused.
//
// Mutation is serialized behind a write lock; searches share a read
// lock and may run concurrently with each other.
package hnsw
