// Package presence owns the authorization-gated session and relay core: the
// verification code table, the session registry, the directed consent graph
// with its invite handshake, and the per-session live state store. All state
// lives behind one mutex; the operations exported here are the only access
// path.
package presence

import (
	"log/slog"
	"sync"
	"time"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/messenger"
)

const (
	// DefaultCodeTTL is how long a verification code stays redeemable.
	DefaultCodeTTL = 300 * time.Second
	// DefaultCodeReapSlack is how far past expiry the janitor lets an
	// unredeemed code linger before deleting it. Expiry is still enforced
	// on every redeem attempt.
	DefaultCodeReapSlack = 300 * time.Second
	// DefaultInviteTTL bounds how long a pending invite can be accepted.
	DefaultInviteTTL = 24 * time.Hour
	// DefaultLiveStateTTL is the inactivity window after which a session's
	// live state stops being served and becomes eligible for reaping.
	DefaultLiveStateTTL = 60 * time.Second
)

type verificationCode struct {
	Identity  string
	ExpiresAt time.Time
}

type invite struct {
	// RequestingSession is the session whose owner wants read access.
	RequestingSession string
	// TargetSession is the session being asked to grant it.
	TargetSession string
	CreatedAt     time.Time
}

// LiveState is the most recent telemetry published by a session.
type LiveState struct {
	VoiceActivity float64
	Action        string
	UpdatedAt     time.Time
}

// Entry is one row of an authorized snapshot, keyed by the publisher's
// external identity.
type Entry struct {
	Identity      string
	VoiceActivity float64
	Action        string
}

// Options configures a Service. Zero-value durations fall back to the
// defaults above.
type Options struct {
	Messenger messenger.Messenger
	Logger    *slog.Logger

	// InviteBaseURL is the public URL embedded in invite notifications.
	InviteBaseURL string

	CodeTTL       time.Duration
	CodeReapSlack time.Duration
	InviteTTL     time.Duration
	LiveStateTTL  time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service is the coordinating object owning all shared presence state.
type Service struct {
	mu sync.Mutex

	codes      map[string]verificationCode // code -> issued record
	sessions   map[string]string           // session id -> identity
	byIdentity map[string]string           // identity -> session id
	invites    map[string]invite           // invite id -> pending handshake
	allowed    map[string][]string         // viewer session -> publisher sessions, grant order
	live       map[string]LiveState        // publisher session -> last published state

	msg    messenger.Messenger
	logger *slog.Logger
	now    func() time.Time

	inviteBaseURL string
	codeTTL       time.Duration
	codeReapSlack time.Duration
	inviteTTL     time.Duration
	liveTTL       time.Duration
}

// New creates an empty Service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	codeTTL := opts.CodeTTL
	if codeTTL <= 0 {
		codeTTL = DefaultCodeTTL
	}
	codeReapSlack := opts.CodeReapSlack
	if codeReapSlack <= 0 {
		codeReapSlack = DefaultCodeReapSlack
	}
	inviteTTL := opts.InviteTTL
	if inviteTTL <= 0 {
		inviteTTL = DefaultInviteTTL
	}
	liveTTL := opts.LiveStateTTL
	if liveTTL <= 0 {
		liveTTL = DefaultLiveStateTTL
	}

	return &Service{
		codes:         make(map[string]verificationCode),
		sessions:      make(map[string]string),
		byIdentity:    make(map[string]string),
		invites:       make(map[string]invite),
		allowed:       make(map[string][]string),
		live:          make(map[string]LiveState),
		msg:           opts.Messenger,
		logger:        logger,
		now:           now,
		inviteBaseURL: opts.InviteBaseURL,
		codeTTL:       codeTTL,
		codeReapSlack: codeReapSlack,
		inviteTTL:     inviteTTL,
		liveTTL:       liveTTL,
	}
}
