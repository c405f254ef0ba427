package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Pruner deletes report versions
type Pruner interface {
	PruneReports(ctx context.Context, before time.Time, keep int) (int64, error)
}

// Policy decides which report versions survive a prune
type Policy struct {
	// Retention is the age after which a report may be pruned
	Retention time.Duration
	// Keep is the number of newest versions per survey never pruned
	Keep int
}

// Cleaner periodically applies report retention
type Cleaner struct {
	pruner   Pruner
	policy   Policy
	interval time.Duration
	now      func() time.Time
	done     chan struct{}
}

// NewCleaner creates a new retention worker
func NewCleaner(pruner Pruner, policy Policy, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = time.Hour
	}
	if policy.Keep < 1 {
		policy.Keep = 1
	}

	return &Cleaner{
		pruner:   pruner,
		policy:   policy,
		interval: interval,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start begins the retention worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// Done is closed once the worker has stopped
func (c *Cleaner) Done() <-chan struct{} {
	return c.done
}

// run is the main loop for the retention worker
func (c *Cleaner) run(ctx context.Context) {
	defer close(c.done)
	slog.Info("report retention worker started",
		"interval", c.interval,
		"retention", c.policy.Retention,
		"keep", c.policy.Keep,
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("report retention worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup prunes reports older than the retention window
func (c *Cleaner) cleanup(ctx context.Context) {
	if c.policy.Retention <= 0 {
		return
	}

	before := c.now().Add(-c.policy.Retention)
	slog.Debug("running retention cycle", "before", before)

	n, err := c.pruner.PruneReports(ctx, before, c.policy.Keep)
	if err != nil {
		slog.Error("failed to prune reports", "error", err)
		return
	}

	if n > 0 {
		slog.Info("pruned old report versions", "count", n, "before", before)
	}
}
