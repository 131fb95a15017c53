package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseCommandTrimsFields(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"cmd":"call","target":"  bob ","from":" alice "}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Cmd != CmdCall {
		t.Fatalf("expected cmd %q, got %q", CmdCall, cmd.Cmd)
	}
	if cmd.Target != "bob" {
		t.Fatalf("expected trimmed target, got %q", cmd.Target)
	}
	if cmd.From != "alice" {
		t.Fatalf("expected trimmed from, got %q", cmd.From)
	}
}

func TestParseCommandMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "hello"},
		{"truncated", `{"cmd":"call"`},
		{"no cmd", `{"target":"bob"}`},
		{"blank cmd", `{"cmd":"  "}`},
		{"wrong type", `{"cmd":42}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseCommand([]byte(tc.raw)); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestParseCommandKeepsPayloadVerbatim(t *testing.T) {
	payload := `{"sdp":"v=0...","kind":"offer","nested":{"a":[1,2,3]}}`
	cmd, err := ParseCommand([]byte(`{"cmd":"signal","target":"bob","payload":` + payload + `}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(cmd.Payload) != payload {
		t.Fatalf("payload was not preserved verbatim: %s", cmd.Payload)
	}
}

func TestFriendsListMarshalsEmptyRoster(t *testing.T) {
	raw, err := json.Marshal(FriendsList(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"friends":[]`) {
		t.Fatalf("expected empty friends array, got %s", raw)
	}
}

func TestEventOmitsUnsetFields(t *testing.T) {
	raw, err := json.Marshal(CallEnded("alice"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(raw)
	if got != `{"type":"call-ended","from":"alice"}` {
		t.Fatalf("unexpected encoding: %s", got)
	}
}
