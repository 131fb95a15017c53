// callprobe is a scriptable WebSocket client for poking a running ultracall
// server: it registers a code, optionally fires one command, then waits for
// an expected sequence of event types and prints everything it receives.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/R1ien/ultracall/internal/protocol"
)

type probeConfig struct {
	serverURL string
	code      string
	command   string
	target    string
	from      string
	message   string
	payload   string
	wait      []string
	timeout   time.Duration
}

func main() {
	cfg := parseConfig()
	if err := run(cfg); err != nil {
		log.Fatalf("callprobe failed: %v", err)
	}
	log.Printf("callprobe completed for code %s", cfg.code)
}

func parseConfig() probeConfig {
	var cfg probeConfig
	var wait string
	flag.StringVar(&cfg.serverURL, "server", "ws://127.0.0.1:3000/ws", "WebSocket URL of the signaling server")
	flag.StringVar(&cfg.code, "code", "probe", "Code to register under")
	flag.StringVar(&cfg.command, "cmd", "", "Optional command to send after registering (call, answer, reject, signal, hangup, friend-request, friend-accept, friend-reject, friends-list, message)")
	flag.StringVar(&cfg.target, "target", "", "Target code for the command")
	flag.StringVar(&cfg.from, "from", "", "Explicit from field for the command")
	flag.StringVar(&cfg.message, "message", "", "Message body for the message command")
	flag.StringVar(&cfg.payload, "payload", "", "Raw JSON payload for the signal command")
	flag.StringVar(&wait, "wait", "", "Comma-separated event types to wait for before exiting")
	flag.DurationVar(&cfg.timeout, "timeout", 15*time.Second, "Overall timeout for the probe")
	flag.Parse()

	if wait != "" {
		for _, ev := range strings.Split(wait, ",") {
			if ev = strings.TrimSpace(ev); ev != "" {
				cfg.wait = append(cfg.wait, ev)
			}
		}
	}
	return cfg
}

func run(cfg probeConfig) error {
	deadline := time.Now().Add(cfg.timeout)

	dialer := websocket.Dialer{HandshakeTimeout: cfg.timeout}
	conn, _, err := dialer.Dial(cfg.serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.serverURL, err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(deadline)

	if err := send(conn, protocol.Command{Cmd: protocol.CmdRegister, Code: cfg.code}); err != nil {
		return err
	}
	ev, err := waitFor(conn, protocol.EventRegistered)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if ev.Code != cfg.code {
		return fmt.Errorf("registered under %q, expected %q", ev.Code, cfg.code)
	}

	if cfg.command != "" {
		cmd := protocol.Command{
			Cmd:     cfg.command,
			Target:  cfg.target,
			From:    cfg.from,
			Message: cfg.message,
		}
		if cfg.payload != "" {
			cmd.Payload = json.RawMessage(cfg.payload)
		}
		if err := send(conn, cmd); err != nil {
			return err
		}
	}

	for _, want := range cfg.wait {
		if _, err := waitFor(conn, want); err != nil {
			return fmt.Errorf("waiting for %s: %w", want, err)
		}
	}
	return nil
}

func send(conn *websocket.Conn, cmd protocol.Command) error {
	raw, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Cmd, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Cmd, err)
	}
	return nil
}

// waitFor reads events, printing each one, until the wanted type arrives.
func waitFor(conn *websocket.Conn, want string) (protocol.Event, error) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return protocol.Event{}, fmt.Errorf("read: %w", err)
		}

		var ev protocol.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return protocol.Event{}, fmt.Errorf("decode event: %w", err)
		}
		log.Printf("<- %s", raw)

		if ev.Type == protocol.EventError && want != protocol.EventError {
			return ev, fmt.Errorf("server error: %s", ev.Message)
		}
		if ev.Type == want {
			return ev, nil
		}
	}
}
