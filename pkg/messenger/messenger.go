// Package messenger defines the out-of-band messaging collaborator used to
// deliver verification codes, invite links, and status notices. Delivery
// failure is never fatal to the operation that triggered the send; callers
// report it as a secondary status.
package messenger

import (
	"context"
	"errors"
)

// ErrUnreachable indicates the recipient cannot receive direct messages.
// Implementations wrap their provider-specific failure with this sentinel.
var ErrUnreachable = errors.New("recipient unreachable")

// Messenger sends direct messages keyed by the identity provider's user id.
type Messenger interface {
	// SendDirectMessage delivers text to identity. Returns an error wrapping
	// ErrUnreachable when the recipient cannot be messaged.
	SendDirectMessage(ctx context.Context, identity, text string) error

	// DisplayName resolves a human-readable name for identity, used in
	// invite links. Implementations may fall back to the raw identity.
	DisplayName(ctx context.Context, identity string) (string, error)
}
