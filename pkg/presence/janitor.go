package presence

import (
	"context"
	"time"
)

// SweepStats reports what one janitor pass removed.
type SweepStats struct {
	LiveStates int
	Codes      int
	Invites    int
}

// Sweep removes stale live state, verification codes well past expiry, and
// expired invites. Each category is swept independently so a surprise in one
// entry cannot abort the rest of the pass.
func (s *Service) Sweep() SweepStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var stats SweepStats

	for session, state := range s.live {
		if now.Sub(state.UpdatedAt) > s.liveTTL {
			delete(s.live, session)
			stats.LiveStates++
		}
	}
	// Codes are reaped only once they are a full slack window past expiry;
	// the redeem path enforces the tighter per-request check.
	for code, rec := range s.codes {
		if now.Sub(rec.ExpiresAt) > s.codeReapSlack {
			delete(s.codes, code)
			stats.Codes++
		}
	}
	for id, inv := range s.invites {
		if now.After(inv.CreatedAt.Add(s.inviteTTL)) {
			delete(s.invites, id)
			stats.Invites++
		}
	}
	return stats
}

// RunJanitor sweeps on a fixed interval until ctx is cancelled. It never
// blocks request handling beyond the duration of one sweep's lock hold.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := s.Sweep()
			if stats.LiveStates > 0 || stats.Codes > 0 || stats.Invites > 0 {
				s.logger.Debug("janitor sweep",
					"live_states", stats.LiveStates,
					"codes", stats.Codes,
					"invites", stats.Invites)
			}
		}
	}
}
