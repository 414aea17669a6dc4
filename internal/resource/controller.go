// Package resource provides admission control for bulk ingest:
// a bounded worker pool plus an optional vectors-per-second throttle.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds ingest limits.
type Config struct {
	// MaxWorkers is the maximum number of concurrent ingest workers.
	// If 0, defaults to 1.
	MaxWorkers int64

	// IngestRatePerSec is the maximum number of vectors admitted per
	// second. If 0, unlimited.
	IngestRatePerSec int
}

// Controller gates concurrent ingest work.
type Controller struct {
	workerSem *semaphore.Weighted

	ingestLimiter *rate.Limiter // nil if unlimited
}

// NewController creates a new ingest controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}

	c := &Controller{
		workerSem: semaphore.NewWeighted(cfg.MaxWorkers),
	}

	if cfg.IngestRatePerSec > 0 {
		c.ingestLimiter = rate.NewLimiter(rate.Limit(cfg.IngestRatePerSec), cfg.IngestRatePerSec)
	}

	return c
}

// AcquireWorker reserves a worker slot. Blocks if all slots are busy.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workerSem.Acquire(ctx, 1)
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workerSem.Release(1)
}

// AdmitIngest waits until the rate limit allows n more vectors.
func (c *Controller) AdmitIngest(ctx context.Context, n int) error {
	if c == nil || c.ingestLimiter == nil {
		return nil
	}
	return c.ingestLimiter.WaitN(ctx, n)
}
