package ratelimit

import (
	"context"
	"time"

	"ghboard/internal/logger"
)

// DefaultProbeInterval is how often the budget is refreshed proactively.
const DefaultProbeInterval = 60 * time.Second

// ProbeFunc fetches the current budget; it is expected to feed the limiter
// itself (through the transport observer or Update).
type ProbeFunc func(ctx context.Context) error

// RunProbe calls probe on every tick until ctx ends. Each tick also
// re-evaluates expiry so a Blocked banner clears on time without traffic.
func (l *Limiter) RunProbe(ctx context.Context, interval time.Duration, probe ProbeFunc) {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Guard()
			if probe == nil {
				continue
			}
			if err := probe(ctx); err != nil && ctx.Err() == nil {
				logger.GitHub("rate limit probe failed: %v", err)
			}
		}
	}
}
