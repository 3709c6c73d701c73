package handlers

import (
	"net/http"
	"strings"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/core"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/metrics"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/presence"
)

// RequestSessionHandler opens a consent invite from the caller's session to
// another identity.
type RequestSessionHandler struct {
	Presence *presence.Service
	Metrics  *metrics.Metrics
}

func (h RequestSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.PathValue("session"))
	identity := strings.TrimSpace(r.PathValue("identity"))
	if sessionID == "" || identity == "" {
		writeError(w, r, core.NewInvalidRequestError("session and identity are required"))
		return
	}

	inviteID, delivered, err := h.Presence.RequestAccess(r.Context(), sessionID, identity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordInvite("requested")
		h.Metrics.RecordMessengerSend(delivered)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"invite_id": inviteID,
		"delivered": delivered,
	})
}

// AllowSessionHandler redeems an invite, granting the requester read access.
type AllowSessionHandler struct {
	Presence *presence.Service
	Metrics  *metrics.Metrics
}

func (h AllowSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	inviteID := strings.TrimSpace(r.PathValue("invite"))
	if inviteID == "" {
		writeError(w, r, core.NewInvalidRequestErrorWithParam("invite is required", "invite"))
		return
	}

	if err := h.Presence.Allow(inviteID); err != nil {
		writeError(w, r, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordInvite("allowed")
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "session allowed"})
}

// DenySessionHandler consumes an invite and revokes the consent edge it
// refers to.
type DenySessionHandler struct {
	Presence *presence.Service
	Metrics  *metrics.Metrics
}

func (h DenySessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	inviteID := strings.TrimSpace(r.PathValue("invite"))
	if inviteID == "" {
		writeError(w, r, core.NewInvalidRequestErrorWithParam("invite is required", "invite"))
		return
	}

	if err := h.Presence.Deny(inviteID); err != nil {
		writeError(w, r, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordInvite("denied")
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "session denied"})
}
