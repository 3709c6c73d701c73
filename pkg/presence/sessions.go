package presence

// bindLocked binds identity to sessionID, revoking any session previously
// bound to the identity. Consent edges and pending invites referencing the
// revoked session are pruned so a dangling id can never be reused as an
// authorization target. Callers must hold s.mu.
func (s *Service) bindLocked(identity, sessionID string) {
	if old, ok := s.byIdentity[identity]; ok {
		delete(s.sessions, old)
		s.pruneSessionLocked(old)
	}
	s.sessions[sessionID] = identity
	s.byIdentity[identity] = sessionID
}

// pruneSessionLocked removes every reference to a revoked session id: its own
// allow-list, its membership in other allow-lists, pending invites on either
// side of the handshake, and its live state.
func (s *Service) pruneSessionLocked(sessionID string) {
	delete(s.allowed, sessionID)
	for viewer, list := range s.allowed {
		s.allowed[viewer] = removeString(list, sessionID)
	}
	for id, inv := range s.invites {
		if inv.RequestingSession == sessionID || inv.TargetSession == sessionID {
			delete(s.invites, id)
		}
	}
	delete(s.live, sessionID)
}

// IsValid reports whether sessionID is currently bound.
func (s *Service) IsValid(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	return ok
}

// IdentityExists reports whether some active session is bound to identity.
func (s *Service) IdentityExists(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byIdentity[identity]
	return ok
}

// SessionOf returns the session id bound to identity, if any.
func (s *Service) SessionOf(identity string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byIdentity[identity]
	return id, ok
}

func removeString(list []string, value string) []string {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}
