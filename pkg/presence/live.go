package presence

import (
	"math"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/core"
)

// Publish overwrites the live state record for sessionID, stamping the current
// time. Values are stored verbatim; the relay rounds on emission.
func (s *Service) Publish(sessionID string, voiceActivity float64, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return core.NewInvalidSessionError("invalid session id")
	}
	s.live[sessionID] = LiveState{
		VoiceActivity: voiceActivity,
		Action:        action,
		UpdatedAt:     s.now(),
	}
	return nil
}

// Get returns the live state for sessionID. Entries past the inactivity
// window are reported as absent even before the janitor removes them.
func (s *Service) Get(sessionID string) (LiveState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.live[sessionID]
	if !ok || s.staleLocked(state) {
		return LiveState{}, false
	}
	return state, true
}

// Snapshot assembles the authorized view for viewerSession. With no target
// identities the whole allow-list is walked in grant order; unauthorized or
// unknown targets are simply absent. With explicit targetIdentities the walk
// is restricted to them and each target that is unknown or not covered by a
// consent edge is returned in unauthorized. Entries carry voice activity
// rounded to 6 decimals.
func (s *Service) Snapshot(viewerSession string, targetIdentities []string) (entries []Entry, unauthorized []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[viewerSession]; !ok {
		return nil, nil, core.NewInvalidSessionError("invalid session id")
	}

	granted := s.allowed[viewerSession]

	if len(targetIdentities) == 0 {
		for _, publisher := range granted {
			if entry, ok := s.entryLocked(publisher); ok {
				entries = append(entries, entry)
			}
		}
		return entries, nil, nil
	}

	grantedSet := make(map[string]struct{}, len(granted))
	for _, publisher := range granted {
		grantedSet[publisher] = struct{}{}
	}
	for _, identity := range targetIdentities {
		publisher, ok := s.byIdentity[identity]
		if !ok {
			unauthorized = append(unauthorized, identity)
			continue
		}
		if _, ok := grantedSet[publisher]; !ok {
			unauthorized = append(unauthorized, identity)
			continue
		}
		if entry, ok := s.entryLocked(publisher); ok {
			entries = append(entries, entry)
		}
	}
	return entries, unauthorized, nil
}

func (s *Service) entryLocked(publisherSession string) (Entry, bool) {
	state, ok := s.live[publisherSession]
	if !ok || s.staleLocked(state) {
		return Entry{}, false
	}
	identity, ok := s.sessions[publisherSession]
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Identity:      identity,
		VoiceActivity: round6(state.VoiceActivity),
		Action:        state.Action,
	}, true
}

func (s *Service) staleLocked(state LiveState) bool {
	return s.now().Sub(state.UpdatedAt) > s.liveTTL
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
