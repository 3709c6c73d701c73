package presence

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/core"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/messenger"
)

type fakeMessenger struct {
	mu          sync.Mutex
	sent        []sentMessage
	unreachable map[string]bool
	names       map[string]string
}

type sentMessage struct {
	identity string
	text     string
}

func (f *fakeMessenger) SendDirectMessage(_ context.Context, identity, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable[identity] {
		return messenger.ErrUnreachable
	}
	f.sent = append(f.sent, sentMessage{identity: identity, text: text})
	return nil
}

func (f *fakeMessenger) DisplayName(_ context.Context, identity string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, ok := f.names[identity]; ok {
		return name, nil
	}
	return identity, errors.New("unknown user")
}

func (f *fakeMessenger) lastTo(identity string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].identity == identity {
			return f.sent[i].text, true
		}
	}
	return "", false
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T) (*Service, *fakeMessenger, *fakeClock) {
	t.Helper()
	msg := &fakeMessenger{unreachable: make(map[string]bool), names: make(map[string]string)}
	clock := newFakeClock()
	svc := New(Options{
		Messenger:     msg,
		Now:           clock.Now,
		InviteBaseURL: "https://auth.example.test",
	})
	return svc, msg, clock
}

var codeRe = regexp.MustCompile(`software: (\d{6})`)

// issueCode requests a verification code for identity and extracts it from
// the delivered notification.
func issueCode(t *testing.T, svc *Service, msg *fakeMessenger, identity string) string {
	t.Helper()
	delivered, err := svc.RequestCode(context.Background(), identity)
	if err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	if !delivered {
		t.Fatalf("code notification not delivered")
	}
	text, ok := msg.lastTo(identity)
	if !ok {
		t.Fatalf("no message sent to %s", identity)
	}
	m := codeRe.FindStringSubmatch(text)
	if m == nil {
		t.Fatalf("no code in message %q", text)
	}
	return m[1]
}

// verifiedSession walks identity through the full code flow and returns the
// bound session id.
func verifiedSession(t *testing.T, svc *Service, msg *fakeMessenger, identity string) string {
	t.Helper()
	code := issueCode(t, svc, msg, identity)
	sessionID, _, err := svc.Verify(context.Background(), identity, code)
	if err != nil {
		t.Fatalf("Verify(%s): %v", identity, err)
	}
	if len(sessionID) != 10 {
		t.Fatalf("session id %q is not 10 digits", sessionID)
	}
	return sessionID
}

// grant runs the invite handshake so viewer may read publisher's data.
func grant(t *testing.T, svc *Service, viewerSession, publisherIdentity string) {
	t.Helper()
	inviteID, _, err := svc.RequestAccess(context.Background(), viewerSession, publisherIdentity)
	if err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	if err := svc.Allow(inviteID); err != nil {
		t.Fatalf("Allow: %v", err)
	}
}

func wantErrType(t *testing.T, err error, typ core.ErrorType) {
	t.Helper()
	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		t.Fatalf("error %v is not a *core.Error", err)
	}
	if coreErr.Type != typ {
		t.Fatalf("error type=%s want %s", coreErr.Type, typ)
	}
}
