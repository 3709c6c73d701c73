package presence

import (
	"testing"
	"time"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/core"
)

func TestPublish_OverwritesAndStamps(t *testing.T) {
	svc, msg, clock := newTestService(t)
	publisher := verifiedSession(t, svc, msg, "U2")

	if err := svc.Publish(publisher, 0.1, "idle"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	clock.Advance(time.Second)
	if err := svc.Publish(publisher, 0.9, "smile"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	state, ok := svc.Get(publisher)
	if !ok {
		t.Fatalf("live state missing")
	}
	if state.VoiceActivity != 0.9 || state.Action != "smile" {
		t.Fatalf("state=%+v, overwrite lost", state)
	}
	if !state.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("UpdatedAt=%v want %v", state.UpdatedAt, clock.Now())
	}
}

func TestPublish_InvalidSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	wantErrType(t, svc.Publish("0000000000", 0.5, "wave"), core.ErrInvalidSession)
}

func TestGet_StaleEntryUnavailable(t *testing.T) {
	svc, msg, clock := newTestService(t)
	publisher := verifiedSession(t, svc, msg, "U2")

	if err := svc.Publish(publisher, 0.5, "wave"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	clock.Advance(DefaultLiveStateTTL + time.Second)
	if _, ok := svc.Get(publisher); ok {
		t.Fatalf("stale entry served even though session is still valid")
	}
	if !svc.IsValid(publisher) {
		t.Fatalf("session must remain valid after live state goes stale")
	}
}

func TestSnapshot_AuthorizedViewRoundsToSixDecimals(t *testing.T) {
	svc, msg, _ := newTestService(t)

	viewer := verifiedSession(t, svc, msg, "U1")
	publisher := verifiedSession(t, svc, msg, "U2")
	grant(t, svc, viewer, "U2")

	if err := svc.Publish(publisher, 0.4200000004, "smile"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	entries, unauthorized, err := svc.Snapshot(viewer, nil)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(unauthorized) != 0 {
		t.Fatalf("unauthorized=%v on broad snapshot", unauthorized)
	}
	if len(entries) != 1 {
		t.Fatalf("entries=%v want one", entries)
	}
	if entries[0].Identity != "U2" || entries[0].VoiceActivity != 0.42 || entries[0].Action != "smile" {
		t.Fatalf("entry=%+v", entries[0])
	}
}

func TestSnapshot_FollowsGrantOrder(t *testing.T) {
	svc, msg, _ := newTestService(t)

	viewer := verifiedSession(t, svc, msg, "U1")
	b := verifiedSession(t, svc, msg, "B")
	a := verifiedSession(t, svc, msg, "A")
	grant(t, svc, viewer, "B")
	grant(t, svc, viewer, "A")

	if err := svc.Publish(a, 0.1, "x"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := svc.Publish(b, 0.2, "y"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	entries, _, err := svc.Snapshot(viewer, nil)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(entries) != 2 || entries[0].Identity != "B" || entries[1].Identity != "A" {
		t.Fatalf("entries=%v, want grant order B,A", entries)
	}
}

func TestSnapshot_ScopedReportsUnauthorized(t *testing.T) {
	svc, msg, _ := newTestService(t)

	viewer := verifiedSession(t, svc, msg, "U1")
	publisher := verifiedSession(t, svc, msg, "U2")
	verifiedSession(t, svc, msg, "U3")
	grant(t, svc, viewer, "U2")

	if err := svc.Publish(publisher, 0.3, "wave"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	entries, unauthorized, err := svc.Snapshot(viewer, []string{"U2", "U3", "ghost"})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(entries) != 1 || entries[0].Identity != "U2" {
		t.Fatalf("entries=%v", entries)
	}
	if len(unauthorized) != 2 || unauthorized[0] != "U3" || unauthorized[1] != "ghost" {
		t.Fatalf("unauthorized=%v", unauthorized)
	}
}

func TestSnapshot_InvalidViewer(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, _, err := svc.Snapshot("0000000000", nil)
	wantErrType(t, err, core.ErrInvalidSession)
}

func TestSnapshot_SkipsStaleEntries(t *testing.T) {
	svc, msg, clock := newTestService(t)

	viewer := verifiedSession(t, svc, msg, "U1")
	publisher := verifiedSession(t, svc, msg, "U2")
	grant(t, svc, viewer, "U2")

	if err := svc.Publish(publisher, 0.5, "wave"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	clock.Advance(DefaultLiveStateTTL + time.Second)

	entries, _, err := svc.Snapshot(viewer, nil)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("stale entries leaked into snapshot: %v", entries)
	}
}
