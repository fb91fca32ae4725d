// Package backoff provides the reconnect delay policy shared by all push
// adapters.
package backoff

import (
	"context"
	"time"
)

// Policy is an exponential backoff: Initial, Initial*Factor, ... capped at
// Max. The zero value is unusable; use Default or fill all fields.
type Policy struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

// Default returns the standard reconnect policy: 1s doubling up to 30s.
func Default() Policy {
	return Policy{
		Initial: 1 * time.Second,
		Max:     30 * time.Second,
		Factor:  2,
	}
}

// Delay returns the wait before the given attempt. Attempt 0 waits Initial.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.Initial)
	for i := 0; i < attempt; i++ {
		d *= p.Factor
		if d >= float64(p.Max) {
			return p.Max
		}
	}
	if d > float64(p.Max) {
		return p.Max
	}
	return time.Duration(d)
}

// Wait sleeps for the attempt's delay or until the context is canceled.
func (p Policy) Wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.Delay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
