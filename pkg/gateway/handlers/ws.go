package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/core"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/live/relay"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/live/sessions"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/metrics"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/presence"
)

// LiveDeps is shared by the websocket handlers.
type LiveDeps struct {
	Presence        *presence.Service
	Relay           *relay.Relay
	Tracker         *sessions.Tracker
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	MaxMessageBytes int64
}

// open validates the session, upgrades the connection and registers it with
// the tracker. The returned cleanup must run when the loop ends.
func (d LiveDeps) open(w http.ResponseWriter, r *http.Request, sessionID string) (*websocket.Conn, func(), bool) {
	if !d.Presence.IsValid(sessionID) {
		writeError(w, r, core.NewInvalidSessionError("unknown session id"))
		return nil, nil, false
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, nil, false
	}
	if d.MaxMessageBytes > 0 {
		conn.SetReadLimit(d.MaxMessageBytes)
	}

	unregister := func() {}
	if d.Tracker != nil {
		unregister = d.Tracker.Register(sessions.Handle{
			SessionID: sessionID,
			// Control frames may be written concurrently with the loop's
			// data writes.
			Notify: func(message string) error {
				return conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, message),
					time.Now().Add(2*time.Second))
			},
			Close: func() { _ = conn.Close() },
		})
	}
	connClosed := func() {}
	if d.Metrics != nil {
		connClosed = d.Metrics.ConnectionOpened()
	}

	cleanup := func() {
		_ = conn.Close()
		unregister()
		connClosed()
	}
	return conn, cleanup, true
}

func splitIdentities(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SendDataHandler runs the publish-only websocket.
type SendDataHandler struct {
	LiveDeps
}

func (h SendDataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	conn, cleanup, ok := h.open(w, r, sessionID)
	if !ok {
		return
	}
	defer cleanup()
	h.Relay.RunPublisher(conn, sessionID)
}

// ReceiveDataHandler runs the subscriber websocket, broad when no target
// identities are supplied and scoped otherwise.
type ReceiveDataHandler struct {
	LiveDeps
}

func (h ReceiveDataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	targets := splitIdentities(r.PathValue("identities"))
	conn, cleanup, ok := h.open(w, r, sessionID)
	if !ok {
		return
	}
	defer cleanup()
	h.Relay.RunSubscriber(conn, sessionID, targets)
}

// CombinedHandler runs the publish+subscribe websocket.
type CombinedHandler struct {
	LiveDeps
}

func (h CombinedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	targets := splitIdentities(r.PathValue("identities"))
	if len(targets) == 0 {
		writeError(w, r, core.NewInvalidRequestErrorWithParam("at least one target identity is required", "identities"))
		return
	}
	conn, cleanup, ok := h.open(w, r, sessionID)
	if !ok {
		return
	}
	defer cleanup()
	h.Relay.RunCombined(conn, sessionID, targets)
}
