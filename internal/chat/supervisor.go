package chat

import (
	"context"
	"time"
)

// runSupervisor ticks on supCfg.Interval, warning once and then evicting a
// session that's gone idle. It keeps its own "warned" flag local to this
// goroutine rather than storing it on Session, since nothing else ever
// needs to read it — sending warnTickEvent at most once per session is
// entirely this loop's own concern.
//
// On a tick where both thresholds are crossed at once, eviction wins: the
// warn case is checked only when the evict case didn't already fire.
func (s *Session) runSupervisor(ctx context.Context) {
	ticker := time.NewTicker(s.supCfg.Interval)
	defer ticker.Stop()

	warned := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			idle := time.Since(s.lastActiveAt())
			switch {
			case idle > s.supCfg.EvictAfter:
				s.send(evictTickEvent{})
				return
			case idle > s.supCfg.WarnAfter && !warned:
				warned = true
				s.send(warnTickEvent{})
			}
		}
	}
}
