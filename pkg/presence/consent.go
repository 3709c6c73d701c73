package presence

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/core"
)

// RequestAccess starts the consent handshake: the owner of sourceSession asks
// the identity bound to targetIdentity for read access to that identity's
// live data. A 10-digit invite id is recorded and an invite link is sent to
// the target out of band. The returned bool is the delivery status of that
// notification.
func (s *Service) RequestAccess(ctx context.Context, sourceSession, targetIdentity string) (inviteID string, delivered bool, err error) {
	s.mu.Lock()
	requesterIdentity, ok := s.sessions[sourceSession]
	if !ok {
		s.mu.Unlock()
		return "", false, core.NewInvalidSessionError("invalid session id")
	}
	targetSession, ok := s.byIdentity[targetIdentity]
	if !ok {
		s.mu.Unlock()
		return "", false, core.NewInvalidIdentityError("invalid identity")
	}
	inviteID = uniqueDigits(10, func(id string) bool {
		_, exists := s.invites[id]
		return exists
	})
	s.invites[inviteID] = invite{
		RequestingSession: sourceSession,
		TargetSession:     targetSession,
		CreatedAt:         s.now(),
	}
	s.mu.Unlock()

	name := requesterIdentity
	if s.msg != nil {
		if resolved, err := s.msg.DisplayName(ctx, requesterIdentity); err == nil && strings.TrimSpace(resolved) != "" {
			name = resolved
		}
	}
	text := fmt.Sprintf("User <@%s> is requesting access to your session. Open this link to allow access: %s/?username=%s&inviteid=%s",
		requesterIdentity, strings.TrimRight(s.inviteBaseURL, "/"), url.QueryEscape(name), inviteID)
	return inviteID, s.notify(ctx, targetIdentity, text), nil
}

// Allow consumes an invite and grants the requesting session read access to
// the target session's live data. The grant is idempotent: allowing an
// already-present edge is a no-op success. Both recorded sessions must still
// be bound, guarding against a session superseded between invite and accept.
func (s *Service) Allow(inviteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.takeInviteLocked(inviteID)
	if err != nil {
		return err
	}
	list := s.allowed[inv.RequestingSession]
	for _, existing := range list {
		if existing == inv.TargetSession {
			return nil
		}
	}
	s.allowed[inv.RequestingSession] = append(list, inv.TargetSession)
	return nil
}

// Deny consumes an invite and removes the corresponding consent edge if one
// exists. Denying when no edge was ever granted is an error, not a silent
// no-op.
func (s *Service) Deny(inviteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.takeInviteLocked(inviteID)
	if err != nil {
		return err
	}
	list, ok := s.allowed[inv.RequestingSession]
	if !ok {
		return core.NewNotAuthorizedError("no consent edge to revoke")
	}
	trimmed := removeString(list, inv.TargetSession)
	if len(trimmed) == len(list) {
		return core.NewNotAuthorizedError("no consent edge to revoke")
	}
	s.allowed[inv.RequestingSession] = trimmed
	return nil
}

// takeInviteLocked validates and consumes an invite token. Invites are
// single-use: the token is deleted whether the handshake ends in allow or
// deny. Expired tokens are deleted on sight.
func (s *Service) takeInviteLocked(inviteID string) (invite, error) {
	inv, ok := s.invites[inviteID]
	if !ok {
		return invite{}, core.NewInvalidInviteError("invalid invite id")
	}
	if s.now().After(inv.CreatedAt.Add(s.inviteTTL)) {
		delete(s.invites, inviteID)
		return invite{}, core.NewInvalidInviteError("invite expired")
	}
	if _, ok := s.sessions[inv.RequestingSession]; !ok {
		return invite{}, core.NewInvalidSessionError("requesting session is no longer valid")
	}
	if _, ok := s.sessions[inv.TargetSession]; !ok {
		return invite{}, core.NewInvalidSessionError("target session is no longer valid")
	}
	delete(s.invites, inviteID)
	return inv, nil
}

// Allowed returns the publisher sessions viewerSession may read, in grant
// order.
func (s *Service) Allowed(viewerSession string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.allowed[viewerSession]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// IsAllowed reports whether viewerSession holds a consent edge to read
// publisherSession's live data.
func (s *Service) IsAllowed(viewerSession, publisherSession string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, granted := range s.allowed[viewerSession] {
		if granted == publisherSession {
			return true
		}
	}
	return false
}
