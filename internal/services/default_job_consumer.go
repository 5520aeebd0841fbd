package services

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrentScans bounds scans running at once.
const DefaultMaxConcurrentScans = 4

// Consumer runs dispatched jobs in the background, at most limit at a
// time. Dispatch never blocks; excess jobs wait on the semaphore in their
// own goroutine and stay queued until a slot frees up.
type Consumer struct {
	ctx context.Context
	sem *semaphore.Weighted
	wg  sync.WaitGroup
	log *zap.SugaredLogger
}

// NewConsumer returns a Consumer whose jobs run under ctx. Cancelling ctx
// cancels running jobs and makes waiting ones start with a done context.
func NewConsumer(ctx context.Context, limit int, log *zap.SugaredLogger) *Consumer {
	if limit <= 0 {
		limit = DefaultMaxConcurrentScans
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Consumer{ctx: ctx, sem: semaphore.NewWeighted(int64(limit)), log: log}
}

// Dispatch schedules fn for jobID.
func (c *Consumer) Dispatch(jobID string, fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.sem.Acquire(c.ctx, 1); err != nil {
			// fn still runs so the job reaches a terminal state
			c.log.Warnw("consumer stopping before scan started", "scan_id", jobID, "error", err)
			fn(c.ctx)
			return
		}
		defer c.sem.Release(1)
		c.log.Debugw("scan started", "scan_id", jobID)
		fn(c.ctx)
		c.log.Debugw("scan finished", "scan_id", jobID)
	}()
}

// Wait blocks until every dispatched job has returned.
func (c *Consumer) Wait() {
	c.wg.Wait()
}
