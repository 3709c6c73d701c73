package presence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/core"
)

func TestRequestAccess_SendsInviteLink(t *testing.T) {
	svc, msg, _ := newTestService(t)
	msg.names["U1"] = "cool viewer"

	viewer := verifiedSession(t, svc, msg, "U1")
	verifiedSession(t, svc, msg, "U2")

	inviteID, delivered, err := svc.RequestAccess(context.Background(), viewer, "U2")
	if err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	if !delivered {
		t.Fatalf("invite notification not delivered")
	}
	if len(inviteID) != 10 {
		t.Fatalf("invite id %q, want 10 digits", inviteID)
	}
	text, _ := msg.lastTo("U2")
	if !strings.Contains(text, "inviteid="+inviteID) {
		t.Fatalf("invite link missing invite id: %q", text)
	}
	if !strings.Contains(text, "username=cool+viewer") {
		t.Fatalf("display name not URL-escaped: %q", text)
	}
}

func TestRequestAccess_InvalidSourceSession(t *testing.T) {
	svc, msg, _ := newTestService(t)
	verifiedSession(t, svc, msg, "U2")

	_, _, err := svc.RequestAccess(context.Background(), "0000000000", "U2")
	wantErrType(t, err, core.ErrInvalidSession)
}

func TestRequestAccess_InvalidTargetIdentity(t *testing.T) {
	svc, msg, _ := newTestService(t)
	viewer := verifiedSession(t, svc, msg, "U1")

	_, _, err := svc.RequestAccess(context.Background(), viewer, "nobody")
	wantErrType(t, err, core.ErrInvalidIdentity)
}

func TestConsent_IsStrictlyDirectional(t *testing.T) {
	svc, msg, _ := newTestService(t)

	viewer := verifiedSession(t, svc, msg, "U1")
	publisher := verifiedSession(t, svc, msg, "U2")
	grant(t, svc, viewer, "U2")

	if !svc.IsAllowed(viewer, publisher) {
		t.Fatalf("granted edge missing")
	}
	if svc.IsAllowed(publisher, viewer) {
		t.Fatalf("reverse edge exists without a symmetric grant")
	}
}

func TestAllow_Idempotent(t *testing.T) {
	svc, msg, _ := newTestService(t)

	viewer := verifiedSession(t, svc, msg, "U1")
	verifiedSession(t, svc, msg, "U2")
	grant(t, svc, viewer, "U2")
	grant(t, svc, viewer, "U2")

	if got := svc.Allowed(viewer); len(got) != 1 {
		t.Fatalf("allow-list=%v want exactly one edge", got)
	}
}

func TestAllow_InviteIsSingleUse(t *testing.T) {
	svc, msg, _ := newTestService(t)

	viewer := verifiedSession(t, svc, msg, "U1")
	verifiedSession(t, svc, msg, "U2")
	inviteID, _, err := svc.RequestAccess(context.Background(), viewer, "U2")
	if err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	if err := svc.Allow(inviteID); err != nil {
		t.Fatalf("first Allow: %v", err)
	}
	wantErrType(t, svc.Allow(inviteID), core.ErrInvalidInvite)
}

func TestAllow_ExpiredInvite(t *testing.T) {
	svc, msg, clock := newTestService(t)

	viewer := verifiedSession(t, svc, msg, "U1")
	verifiedSession(t, svc, msg, "U2")
	inviteID, _, err := svc.RequestAccess(context.Background(), viewer, "U2")
	if err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	clock.Advance(DefaultInviteTTL + time.Second)
	wantErrType(t, svc.Allow(inviteID), core.ErrInvalidInvite)
}

func TestAllow_SupersededSessionRejected(t *testing.T) {
	svc, msg, _ := newTestService(t)

	viewer := verifiedSession(t, svc, msg, "U1")
	verifiedSession(t, svc, msg, "U2")
	inviteID, _, err := svc.RequestAccess(context.Background(), viewer, "U2")
	if err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}

	// Rebinding U1 revokes the requesting session between invite and accept,
	// which also prunes the pending invite.
	verifiedSession(t, svc, msg, "U1")
	wantErrType(t, svc.Allow(inviteID), core.ErrInvalidInvite)
}

func TestDeny_RemovesExistingEdge(t *testing.T) {
	svc, msg, _ := newTestService(t)

	viewer := verifiedSession(t, svc, msg, "U1")
	publisher := verifiedSession(t, svc, msg, "U2")
	grant(t, svc, viewer, "U2")

	inviteID, _, err := svc.RequestAccess(context.Background(), viewer, "U2")
	if err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	if err := svc.Deny(inviteID); err != nil {
		t.Fatalf("Deny: %v", err)
	}
	if svc.IsAllowed(viewer, publisher) {
		t.Fatalf("edge survived deny")
	}
}

func TestDeny_WithoutPriorAllowFails(t *testing.T) {
	svc, msg, _ := newTestService(t)

	viewer := verifiedSession(t, svc, msg, "U1")
	verifiedSession(t, svc, msg, "U2")
	inviteID, _, err := svc.RequestAccess(context.Background(), viewer, "U2")
	if err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	wantErrType(t, svc.Deny(inviteID), core.ErrNotAuthorized)
}

func TestDeny_UnknownInvite(t *testing.T) {
	svc, _, _ := newTestService(t)
	wantErrType(t, svc.Deny("1234567890"), core.ErrInvalidInvite)
}
