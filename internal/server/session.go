package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/R1ien/ultracall/internal/protocol"
)

var errSendBufferFull = errors.New("session send buffer full")

// session wraps one client WebSocket. Outbound events go through sendCh and
// a dedicated writer goroutine so no handler ever blocks on a peer's I/O.
type session struct {
	log          *zap.Logger
	conn         *websocket.Conn
	sendCh       chan protocol.Event
	ctx          context.Context
	cancel       context.CancelFunc
	writeTimeout time.Duration
	connectedAt  time.Time

	// code is the identifier bound at register time; empty until then.
	// Guarded by Router.mu, never touched by the session's own goroutines.
	code string
}

func newSession(parent context.Context, log *zap.Logger, conn *websocket.Conn, sendBuffer int, writeTimeout time.Duration) *session {
	ctx, cancel := context.WithCancel(parent)
	return &session{
		log:          log,
		conn:         conn,
		sendCh:       make(chan protocol.Event, sendBuffer),
		ctx:          ctx,
		cancel:       cancel,
		writeTimeout: writeTimeout,
		connectedAt:  time.Now(),
	}
}

// Send queues an event for delivery. It never blocks: a full buffer means
// the peer stopped draining, so the session is cancelled instead of stalling
// the router. Failures are the caller's to ignore; delivery is best effort.
func (s *session) Send(ev protocol.Event) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case s.sendCh <- ev:
		return nil
	default:
		s.cancel()
		return errSendBufferFull
	}
}

// writer drains sendCh onto the socket until the session is cancelled.
func (s *session) writer() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.sendCh:
			raw, err := json.Marshal(ev)
			if err != nil {
				s.log.Warn("encode event", zap.Error(err), zap.String("type", ev.Type))
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				s.cancel()
				return
			}
		}
	}
}

// close tears the session down; safe to call more than once.
func (s *session) close() {
	s.cancel()
	_ = s.conn.Close()
}
