package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConsumerLimitsConcurrency(t *testing.T) {
	c := NewConsumer(context.Background(), 2, nil)

	var running, peak atomic.Int32
	release := make(chan struct{})
	for range 6 {
		c.Dispatch("job", func(context.Context) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
		})
	}

	assert.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, time.Millisecond)
	close(release)
	c.Wait()
	assert.Equal(t, int32(2), peak.Load())
}

func TestConsumerDispatchDoesNotBlock(t *testing.T) {
	c := NewConsumer(context.Background(), 1, nil)
	block := make(chan struct{})

	start := time.Now()
	for range 10 {
		c.Dispatch("job", func(context.Context) { <-block })
	}
	assert.Less(t, time.Since(start), time.Second)
	close(block)
	c.Wait()
}

func TestConsumerCancelRunsWaitingJobsWithDoneContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewConsumer(ctx, 1, nil)

	started := make(chan struct{})
	c.Dispatch("first", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	<-started

	var mu sync.Mutex
	var errs []error
	c.Dispatch("second", func(ctx context.Context) {
		mu.Lock()
		errs = append(errs, ctx.Err())
		mu.Unlock()
	})

	cancel()
	c.Wait()
	assert.Equal(t, []error{context.Canceled}, errs)
}

func TestNewConsumerDefaultLimit(t *testing.T) {
	c := NewConsumer(context.Background(), 0, nil)
	assert.True(t, c.sem.TryAcquire(DefaultMaxConcurrentScans))
	assert.False(t, c.sem.TryAcquire(1))
}
