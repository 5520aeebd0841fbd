package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RunJanitor calls EvictExpired every interval until ctx is done, then
// returns nil. A non-positive interval is an error.
func RunJanitor(ctx context.Context, store JobStore, interval time.Duration, log *zap.SugaredLogger) error {
	if interval <= 0 {
		return fmt.Errorf("janitor interval must be positive, got %s", interval)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := store.EvictExpired(now); n > 0 {
				log.Infow("evicted expired scans", "count", n)
			}
		}
	}
}
