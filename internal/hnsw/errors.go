package hnsw

import (
	"errors"
	"fmt"

	"github.com/hupe1980/agentdb/model"
)

// ErrEmptyVector is returned when an empty vector is inserted or queried.
var ErrEmptyVector = errors.New("hnsw: empty vector")

// ErrGraphCorruption indicates a broken internal invariant (e.g. the
// entry point is missing while nodes remain). It signals a violated
// concurrency discipline and is not recoverable for this index instance.
var ErrGraphCorruption = errors.New("hnsw: graph corruption detected")

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrNodeNotFound indicates the referenced node does not exist.
type ErrNodeNotFound struct {
	ID model.RowID
}

func (e *ErrNodeNotFound) Error() string {
	return fmt.Sprintf("node not found: %d", e.ID)
}
