package presence

import (
	"context"
	"fmt"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/core"
)

// RequestCode issues a 6-digit verification code for identity and delivers it
// out of band. Prior outstanding codes for the same identity stay valid.
// The returned bool reports whether the notification reached the recipient;
// delivery failure never fails the request itself.
func (s *Service) RequestCode(ctx context.Context, identity string) (delivered bool, err error) {
	if identity == "" {
		return false, core.NewInvalidRequestErrorWithParam("identity is required", "identity")
	}

	code := randDigits(6)
	s.mu.Lock()
	s.codes[code] = verificationCode{
		Identity:  identity,
		ExpiresAt: s.now().Add(s.codeTTL),
	}
	s.mu.Unlock()

	text := fmt.Sprintf("Please verify your identity by entering this code in the software: %s\n\n"+
		"The code will expire in 5 minutes. If you did not request this verification code, please ignore this message.", code)
	return s.notify(ctx, identity, text), nil
}

// Verify redeems a code for identity. On success a fresh 10-digit session id
// is bound to identity, revoking any previous session. Every path sends a
// status notification; its delivery result is secondary.
func (s *Service) Verify(ctx context.Context, identity, code string) (sessionID string, delivered bool, err error) {
	s.mu.Lock()
	rec, ok := s.codes[code]
	switch {
	case !ok:
		s.mu.Unlock()
		delivered = s.notify(ctx, identity, "Verification code incorrect! Please try again.")
		return "", delivered, core.NewCodeIncorrectError("verification code incorrect")
	case rec.Identity != identity:
		s.mu.Unlock()
		delivered = s.notify(ctx, identity, "Verification code incorrect! Please try again.")
		return "", delivered, core.NewCodeIncorrectError("verification code does not match this identity")
	case !s.now().Before(rec.ExpiresAt):
		s.mu.Unlock()
		delivered = s.notify(ctx, identity, "Verification expired! Please try again.")
		return "", delivered, core.NewCodeExpiredError("verification code expired")
	}

	delete(s.codes, code)
	sessionID = uniqueDigits(10, func(id string) bool {
		_, exists := s.sessions[id]
		return exists
	})
	s.bindLocked(identity, sessionID)
	s.mu.Unlock()

	delivered = s.notify(ctx, identity, "Verification successful! Have fun!")
	return sessionID, delivered, nil
}

// notify sends text to identity and swallows delivery failure into a boolean
// secondary status.
func (s *Service) notify(ctx context.Context, identity, text string) bool {
	if s.msg == nil {
		return false
	}
	if err := s.msg.SendDirectMessage(ctx, identity, text); err != nil {
		s.logger.Warn("notification delivery failed", "identity", identity, "error", err)
		return false
	}
	return true
}
