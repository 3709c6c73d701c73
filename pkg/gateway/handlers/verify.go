package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/core"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/metrics"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/presence"
)

// VerifyRequestHandler issues a verification code to an identity through the
// messenger.
type VerifyRequestHandler struct {
	Presence *presence.Service
	Metrics  *metrics.Metrics
}

func (h VerifyRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(r.PathValue("identity"))
	if identity == "" {
		writeError(w, r, core.NewInvalidRequestErrorWithParam("identity is required", "identity"))
		return
	}

	delivered, err := h.Presence.RequestCode(r.Context(), identity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordMessengerSend(delivered)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "verification code sent",
		"delivered": delivered,
	})
}

// VerifyRedeemHandler exchanges a verification code for a fresh session id.
type VerifyRedeemHandler struct {
	Presence *presence.Service
	Metrics  *metrics.Metrics
}

func (h VerifyRedeemHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(r.PathValue("identity"))
	code := strings.TrimSpace(r.PathValue("code"))
	if identity == "" || code == "" {
		writeError(w, r, core.NewInvalidRequestError("identity and code are required"))
		return
	}

	sessionID, delivered, err := h.Presence.Verify(r.Context(), identity, code)
	if err != nil {
		h.recordOutcome(err)
		writeError(w, r, err)
		return
	}
	h.recordOutcome(nil)
	if h.Metrics != nil {
		h.Metrics.RecordMessengerSend(delivered)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"delivered":  delivered,
	})
}

func (h VerifyRedeemHandler) recordOutcome(err error) {
	if h.Metrics == nil {
		return
	}
	if err == nil {
		h.Metrics.RecordVerification("success")
		return
	}
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr.Type == core.ErrCodeExpired {
		h.Metrics.RecordVerification("expired")
		return
	}
	h.Metrics.RecordVerification("incorrect")
}
