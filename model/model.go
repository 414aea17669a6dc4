// Package model defines core types shared across agentdb packages.
//
// # Identity Types
//
//   - ID: user-facing stable identifier (UUID string)
//   - RowID: dense, internal identifier for a vector in the index arena
//
// RowIDs are strictly 32-bit and index into flat arrays (graph adjacency,
// bitsets, heaps). They are never reused within a process lifetime.
package model

// ID is the user-facing stable identifier for a stored record.
type ID = string

// RowID is a dense, internal identifier for a vector within the index.
// Used for all hot-path structures (graph adjacency, bitsets, heaps).
type RowID uint32

// MaxRowID is the maximum possible value for a RowID.
const MaxRowID = ^RowID(0)
