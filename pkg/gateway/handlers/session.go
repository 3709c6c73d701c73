package handlers

import (
	"net/http"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/core"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/presence"
)

// ValidSessionHandler answers whether a session id is currently bound.
type ValidSessionHandler struct {
	Presence *presence.Service
}

func (h ValidSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	if !h.Presence.IsValid(sessionID) {
		writeError(w, r, core.NewInvalidSessionError("unknown session id"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "valid session"})
}
