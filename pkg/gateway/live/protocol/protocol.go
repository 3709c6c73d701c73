// Package protocol defines the typed websocket frames exchanged on the relay
// endpoints. Client input is decoded against a fixed schema and rejected on
// any mismatch; nothing client-sent is ever interpreted beyond these shapes.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Frame type tags.
const (
	TypeUpdate   = "update"
	TypeAck      = "ack"
	TypeSnapshot = "snapshot"
	TypeNoData   = "no_data"
	TypeError    = "error"
)

// Error codes carried on error frames.
const (
	CodeBadRequest     = "bad_request"
	CodeNotAuthorized  = "not_authorized"
	CodeInvalidSession = "invalid_session"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: CodeBadRequest, Message: message, Param: param}
}

// ClientUpdate is one live-state publish from a client. VoiceActivity is a
// pointer so a missing field is distinguishable from zero.
type ClientUpdate struct {
	Type          string   `json:"type"`
	VoiceActivity *float64 `json:"voice_activity"`
	Action        string   `json:"action"`
}

// DecodeClientMessage parses one inbound text frame.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case TypeUpdate:
		var msg ClientUpdate
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid update frame", "")
		}
		if msg.VoiceActivity == nil {
			return nil, badRequest("update.voice_activity is required", "voice_activity")
		}
		return msg, nil
	default:
		return nil, badRequest("unsupported message type", "type")
	}
}

// ServerAck confirms one stored update.
type ServerAck struct {
	Type string `json:"type"`
}

// SnapshotEntry is one publisher's row in an authorized snapshot.
type SnapshotEntry struct {
	Identity      string  `json:"identity"`
	VoiceActivity float64 `json:"voice_activity"`
	Action        string  `json:"action"`
}

// ServerSnapshot carries the authorized view for one poll tick.
type ServerSnapshot struct {
	Type string          `json:"type"`
	Data []SnapshotEntry `json:"data"`
}

// ServerNoData is the terminal notice sent before closing an inert
// subscriber.
type ServerNoData struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ServerError reports a failure on the connection. Close signals that the
// server will terminate the connection after this frame.
type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
	Close   bool   `json:"close,omitempty"`
}
