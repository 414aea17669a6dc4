package agentdb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/agentdb/causal"
	"github.com/hupe1980/agentdb/internal/hnsw"
)

var (
	// ErrNotFound is returned when an item is not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrGraphCorruption indicates a broken index invariant. It is not
	// recoverable for the affected instance.
	ErrGraphCorruption = errors.New("graph corruption")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidConfig indicates an invalid construction or query option.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidConfig struct {
	Reason string
	cause  error
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config: %s", e.Reason)
}

func (e *ErrInvalidConfig) Unwrap() error { return e.cause }

// ErrSelfLoop indicates a causal edge whose cause and effect are the
// same event.
type ErrSelfLoop struct {
	Event string
	cause error
}

func (e *ErrSelfLoop) Error() string {
	return fmt.Sprintf("self loop not allowed on event %q", e.Event)
}

func (e *ErrSelfLoop) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	var nnf *hnsw.ErrNodeNotFound
	if errors.As(err, &nnf) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Dimension and argument normalization.
	var dm *hnsw.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var id *hnsw.ErrInvalidDimension
	if errors.As(err, &id) {
		return &ErrInvalidConfig{Reason: fmt.Sprintf("invalid dimension %d", id.Dimension), cause: err}
	}

	// Causal graph normalization.
	var sl *causal.ErrSelfLoop
	if errors.As(err, &sl) {
		return &ErrSelfLoop{Event: sl.Event, cause: err}
	}
	var depth *causal.ErrInvalidDepth
	if errors.As(err, &depth) {
		return &ErrInvalidConfig{Reason: err.Error(), cause: err}
	}
	var sample *causal.ErrInvalidSample
	if errors.As(err, &sample) {
		return &ErrInvalidConfig{Reason: err.Error(), cause: err}
	}
	var conf *causal.ErrInvalidConfidence
	if errors.As(err, &conf) {
		return &ErrInvalidConfig{Reason: err.Error(), cause: err}
	}

	// Invariant violations stay fatal for the instance.
	if errors.Is(err, hnsw.ErrGraphCorruption) {
		return fmt.Errorf("%w: %w", ErrGraphCorruption, err)
	}

	return err
}
