// Package protocol defines the JSON envelopes exchanged with clients over
// the signaling WebSocket. Inbound envelopes carry a cmd discriminator,
// outbound envelopes a type discriminator. Negotiation payloads are opaque
// and relayed verbatim.
package protocol

import (
	"encoding/json"
	"errors"
	"strings"
)

// Inbound command names.
const (
	CmdRegister      = "register"
	CmdCall          = "call"
	CmdAnswer        = "answer"
	CmdReject        = "reject"
	CmdSignal        = "signal"
	CmdHangup        = "hangup"
	CmdFriendRequest = "friend-request"
	CmdFriendAccept  = "friend-accept"
	CmdFriendReject  = "friend-reject"
	CmdFriendsList   = "friends-list"
	CmdMessage       = "message"
)

// Outbound event types.
const (
	EventRegistered     = "registered"
	EventError          = "error"
	EventFriendsList    = "friends-list"
	EventCallPlaced     = "call-placed"
	EventIncomingCall   = "incoming-call"
	EventCallAccepted   = "call-accepted"
	EventCallRejected   = "call-rejected"
	EventCallEnded      = "call-ended"
	EventSignal         = "signal"
	EventFriendRequest  = "friend-request"
	EventFriendAccepted = "friend-accepted"
	EventFriendRejected = "friend-rejected"
	EventMessage        = "message"
)

// ErrMalformed marks input that could not be decoded or names no command.
// Callers drop such input without replying; there is no reliable return
// address before registration.
var ErrMalformed = errors.New("malformed envelope")

// Command is a decoded client envelope. Code, Target and From are
// whitespace-trimmed; Payload is kept verbatim.
type Command struct {
	Cmd     string          `json:"cmd"`
	Code    string          `json:"code,omitempty"`
	Target  string          `json:"target,omitempty"`
	From    string          `json:"from,omitempty"`
	Message string          `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ParseCommand decodes one inbound envelope. A decode failure or a missing
// cmd field yields ErrMalformed.
func ParseCommand(raw []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return Command{}, ErrMalformed
	}
	cmd.Cmd = strings.TrimSpace(cmd.Cmd)
	if cmd.Cmd == "" {
		return Command{}, ErrMalformed
	}
	cmd.Code = strings.TrimSpace(cmd.Code)
	cmd.Target = strings.TrimSpace(cmd.Target)
	cmd.From = strings.TrimSpace(cmd.From)
	return cmd, nil
}

// Event is a server-to-client envelope.
type Event struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Target  string `json:"target,omitempty"`
	From    string `json:"from,omitempty"`
	With    string `json:"with,omitempty"`
	Message string `json:"message,omitempty"`
	// Friends is a pointer so an empty roster still marshals as "friends": [].
	Friends *[]string       `json:"friends,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func Registered(code string) Event {
	return Event{Type: EventRegistered, Code: code}
}

func Error(message string) Event {
	return Event{Type: EventError, Message: message}
}

// FriendsList always carries a friends array, even when empty.
func FriendsList(friends []string) Event {
	if friends == nil {
		friends = []string{}
	}
	return Event{Type: EventFriendsList, Friends: &friends}
}

func CallPlaced(target string) Event {
	return Event{Type: EventCallPlaced, Target: target}
}

func IncomingCall(from string) Event {
	return Event{Type: EventIncomingCall, From: from}
}

func CallAccepted(with string) Event {
	return Event{Type: EventCallAccepted, With: with}
}

func CallRejected(from string) Event {
	return Event{Type: EventCallRejected, From: from}
}

func CallEnded(from string) Event {
	return Event{Type: EventCallEnded, From: from}
}

func Signal(payload json.RawMessage, from string) Event {
	return Event{Type: EventSignal, Payload: payload, From: from}
}

func FriendRequest(from string) Event {
	return Event{Type: EventFriendRequest, From: from}
}

func FriendAccepted(from string) Event {
	return Event{Type: EventFriendAccepted, From: from}
}

func FriendRejected(from string) Event {
	return Event{Type: EventFriendRejected, From: from}
}

func Message(from, message string) Event {
	return Event{Type: EventMessage, From: from, Message: message}
}
