package presence

import (
	"context"
	"time"
)

// Snapshot is the durable subset of presence state: the session registry and
// the consent graph. Codes, invites, and live state are ephemeral by design
// and are not persisted.
type Snapshot struct {
	// Sessions maps session id to identity.
	Sessions map[string]string
	// Allowed maps viewer session to publisher sessions, grant order.
	Allowed map[string][]string
}

// Store is the durable persistence collaborator. Implementations must
// round-trip a Snapshot with full fidelity.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Export copies the durable state out of the service.
func (s *Service) Export() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Sessions: make(map[string]string, len(s.sessions)),
		Allowed:  make(map[string][]string, len(s.allowed)),
	}
	for id, identity := range s.sessions {
		snap.Sessions[id] = identity
	}
	for viewer, list := range s.allowed {
		if len(list) == 0 {
			continue
		}
		granted := make([]string, len(list))
		copy(granted, list)
		snap.Allowed[viewer] = granted
	}
	return snap
}

// Restore replaces the session registry and consent graph with snap,
// rebuilding the identity index. Intended for startup, before any
// connections are served.
func (s *Service) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]string, len(snap.Sessions))
	s.byIdentity = make(map[string]string, len(snap.Sessions))
	for id, identity := range snap.Sessions {
		s.sessions[id] = identity
		s.byIdentity[identity] = id
	}
	s.allowed = make(map[string][]string, len(snap.Allowed))
	for viewer, list := range snap.Allowed {
		granted := make([]string, len(list))
		copy(granted, list)
		s.allowed[viewer] = granted
	}
}

// RunPersistence saves the durable state through store on a fixed interval
// until ctx is cancelled, then writes one final snapshot so a clean shutdown
// never loses more than in-flight mutations.
func (s *Service) RunPersistence(ctx context.Context, store Store, interval time.Duration) {
	if store == nil {
		return
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := store.Save(saveCtx, s.Export()); err != nil {
				s.logger.Error("final presence snapshot failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := store.Save(ctx, s.Export()); err != nil {
				s.logger.Error("presence snapshot failed", "error", err)
			}
		}
	}
}
