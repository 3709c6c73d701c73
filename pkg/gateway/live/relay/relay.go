// Package relay runs the per-connection loops of the live data protocol:
// publishers push state updates, subscribers receive authorized snapshots on
// a fixed poll tick, and the combined loop does both. Each connection is one
// independent goroutine-driven loop; a slow connection never stalls another.
package relay

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/live/protocol"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/metrics"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/presence"
)

// State is the slice of the presence core the relay needs.
type State interface {
	Publish(sessionID string, voiceActivity float64, action string) error
	Snapshot(viewerSession string, targetIdentities []string) (entries []presence.Entry, unauthorized []string, err error)
}

// Config tunes the connection loops.
type Config struct {
	// PollInterval is the snapshot recompute tick.
	PollInterval time.Duration
	// InertTimeout closes a connection whose authorized view has been empty
	// (and, on the combined loop, which has not published) for this long.
	InertTimeout time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 50 * time.Millisecond
	}
	if c.InertTimeout <= 0 {
		c.InertTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	return c
}

// Relay serves the live data loops against a shared State.
type Relay struct {
	State   State
	Logger  *slog.Logger
	Config  Config
	Metrics *metrics.Metrics
}

func (r *Relay) countPublish() {
	if r.Metrics != nil {
		r.Metrics.UpdatesPublishedTotal.Inc()
	}
}

func (r *Relay) countSnapshot() {
	if r.Metrics != nil {
		r.Metrics.SnapshotsEmittedTotal.Inc()
	}
}

// RunPublisher ingests update frames from a pre-validated session until the
// client disconnects. Malformed frames are rejected with an error frame but
// do not end the connection; a session invalidated mid-stream does.
func (r *Relay) RunPublisher(conn *websocket.Conn, sessionID string) {
	cfg := r.Config.withDefaults()
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			r.writeError(conn, cfg, protocol.ServerError{
				Type: protocol.TypeError, Code: protocol.CodeBadRequest,
				Message: "frames must be text",
			})
			continue
		}
		if fatal := r.handleUpdate(conn, cfg, sessionID, data); fatal {
			return
		}
	}
}

// handleUpdate decodes and stores one publish frame, acknowledging it on
// success. Returns true when the connection must end.
func (r *Relay) handleUpdate(conn *websocket.Conn, cfg Config, sessionID string, data []byte) (fatal bool) {
	decoded, err := protocol.DecodeClientMessage(data)
	if err != nil {
		r.writeError(conn, cfg, protocol.ServerError{
			Type: protocol.TypeError, Code: protocol.CodeBadRequest,
			Message: err.Error(),
		})
		return false
	}
	update := decoded.(protocol.ClientUpdate)
	if err := r.State.Publish(sessionID, *update.VoiceActivity, update.Action); err != nil {
		r.writeError(conn, cfg, protocol.ServerError{
			Type: protocol.TypeError, Code: protocol.CodeInvalidSession,
			Message: "session is no longer valid", Close: true,
		})
		r.writeClose(conn, cfg, websocket.ClosePolicyViolation, "invalid session")
		return true
	}
	r.countPublish()
	r.writeJSON(conn, cfg, protocol.ServerAck{Type: protocol.TypeAck})
	return false
}

// RunSubscriber emits authorized snapshots for viewerSession on every poll
// tick, suppressing empty and unchanged views. With explicit target
// identities the subscription is scoped: any unknown or unauthorized target
// terminates the connection with a not_authorized notice. A view that stays
// empty past the inert timeout ends with a single no_data frame and a clean
// close.
func (r *Relay) RunSubscriber(conn *websocket.Conn, viewerSession string, targetIdentities []string) {
	cfg := r.Config.withDefaults()
	readerDone := readUntilClose(conn)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	pings := time.NewTicker(cfg.PingInterval)
	defer pings.Stop()

	var prev []presence.Entry
	lastActive := time.Now()

	for {
		select {
		case <-readerDone:
			return
		case <-pings.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(cfg.WriteTimeout)); err != nil {
				return
			}
		case <-ticker.C:
			entries, unauthorized, err := r.State.Snapshot(viewerSession, targetIdentities)
			if err != nil {
				r.writeError(conn, cfg, protocol.ServerError{
					Type: protocol.TypeError, Code: protocol.CodeInvalidSession,
					Message: "session is no longer valid", Close: true,
				})
				r.writeClose(conn, cfg, websocket.ClosePolicyViolation, "invalid session")
				return
			}
			if len(targetIdentities) > 0 && len(unauthorized) > 0 {
				r.writeError(conn, cfg, protocol.ServerError{
					Type: protocol.TypeError, Code: protocol.CodeNotAuthorized,
					Message: "not allowed to read: " + strings.Join(unauthorized, ","),
					Close:   true,
				})
				r.writeClose(conn, cfg, websocket.ClosePolicyViolation, "not authorized")
				return
			}
			if len(entries) == 0 {
				if time.Since(lastActive) >= cfg.InertTimeout {
					r.writeJSON(conn, cfg, protocol.ServerNoData{Type: protocol.TypeNoData, Message: "No data available!"})
					r.writeClose(conn, cfg, websocket.CloseNormalClosure, "no data")
					return
				}
				continue
			}
			lastActive = time.Now()
			if slices.Equal(entries, prev) {
				continue
			}
			r.writeJSON(conn, cfg, protocol.ServerSnapshot{Type: protocol.TypeSnapshot, Data: toProtocol(entries)})
			r.countSnapshot()
			prev = entries
		}
	}
}

// RunCombined interleaves publisher ingestion and a scoped subscription on a
// single connection. Unauthorized targets are reported once each but do not
// end the connection; publishing counts as activity for the inert timeout.
func (r *Relay) RunCombined(conn *websocket.Conn, sessionID string, targetIdentities []string) {
	cfg := r.Config.withDefaults()
	quit := make(chan struct{})
	defer close(quit)
	inbound, readerDone := readFrames(conn, quit)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	var prev []presence.Entry
	lastActive := time.Now()
	reported := make(map[string]struct{})

	for {
		select {
		case <-readerDone:
			return
		case data := <-inbound:
			if fatal := r.handleUpdate(conn, cfg, sessionID, data); fatal {
				return
			}
			lastActive = time.Now()
		case <-ticker.C:
			entries, unauthorized, err := r.State.Snapshot(sessionID, targetIdentities)
			if err != nil {
				r.writeError(conn, cfg, protocol.ServerError{
					Type: protocol.TypeError, Code: protocol.CodeInvalidSession,
					Message: "session is no longer valid", Close: true,
				})
				r.writeClose(conn, cfg, websocket.ClosePolicyViolation, "invalid session")
				return
			}
			for _, identity := range unauthorized {
				if _, seen := reported[identity]; seen {
					continue
				}
				reported[identity] = struct{}{}
				r.writeError(conn, cfg, protocol.ServerError{
					Type: protocol.TypeError, Code: protocol.CodeNotAuthorized,
					Message: "not allowed to read: " + identity, Param: identity,
				})
			}
			if len(entries) == 0 {
				if time.Since(lastActive) >= cfg.InertTimeout {
					r.writeJSON(conn, cfg, protocol.ServerNoData{Type: protocol.TypeNoData, Message: "No data available!"})
					r.writeClose(conn, cfg, websocket.CloseNormalClosure, "no data")
					return
				}
				continue
			}
			lastActive = time.Now()
			if slices.Equal(entries, prev) {
				continue
			}
			r.writeJSON(conn, cfg, protocol.ServerSnapshot{Type: protocol.TypeSnapshot, Data: toProtocol(entries)})
			r.countSnapshot()
			prev = entries
		}
	}
}

// readUntilClose drains inbound frames so client closes are noticed promptly.
func readUntilClose(conn *websocket.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return done
}

// readFrames forwards inbound text frames to a channel until the client
// disconnects or quit closes. The loop goroutine owns all writes; this one
// never writes. quit keeps the goroutine from parking on a full channel after
// the consuming loop has stopped.
func readFrames(conn *websocket.Conn, quit <-chan struct{}) (<-chan []byte, <-chan struct{}) {
	frames := make(chan []byte, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			select {
			case frames <- data:
			case <-quit:
				return
			}
		}
	}()
	return frames, done
}

func toProtocol(entries []presence.Entry) []protocol.SnapshotEntry {
	out := make([]protocol.SnapshotEntry, len(entries))
	for i, e := range entries {
		out[i] = protocol.SnapshotEntry{
			Identity:      e.Identity,
			VoiceActivity: e.VoiceActivity,
			Action:        e.Action,
		}
	}
	return out
}

func (r *Relay) writeJSON(conn *websocket.Conn, cfg Config, v any) {
	_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
	if err := conn.WriteJSON(v); err != nil && r.Logger != nil {
		r.Logger.Debug("relay write failed", "error", err)
	}
}

func (r *Relay) writeError(conn *websocket.Conn, cfg Config, frame protocol.ServerError) {
	r.writeJSON(conn, cfg, frame)
}

func (r *Relay) writeClose(conn *websocket.Conn, cfg Config, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(cfg.WriteTimeout))
}
