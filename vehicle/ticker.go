package vehicle

import (
	"context"
	"time"
)

// RunTicker drives Tick at interval until ctx is cancelled, matching spec
// §5's "one vehicle-simulation tick task" — the Simulator's sole writer.
// interval is expected to be within Tick's bounded-step ceiling; larger
// intervals are simply clamped by Tick itself.
func (s *Simulator) RunTicker(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			dt := now.Sub(last)
			last = now
			s.Tick(dt)
		}
	}
}
