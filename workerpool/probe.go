package workerpool

import (
	"context"
	"time"
)

// defaultPollInterval is used when WaitUntilRunning is given a
// non-positive poll interval.
const defaultPollInterval = time.Second

// WaitUntilRunning polls Status(instanceId) until it reports running, ctx
// is cancelled, or deadline elapses, whichever comes first. This replaces
// the fixed 200s settle sleep with a bounded polling loop, per the worker
// probe gap noted for the pool's Start contract. A non-positive
// pollInterval is replaced by defaultPollInterval.
func WaitUntilRunning(ctx context.Context, p Pool, instanceID string, deadline, pollInterval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		running, err := p.Status(ctx, instanceID)
		if err == nil && running {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
