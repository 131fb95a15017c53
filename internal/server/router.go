package server

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/R1ien/ultracall/internal/calls"
	"github.com/R1ien/ultracall/internal/friends"
	"github.com/R1ien/ultracall/internal/protocol"
	"github.com/R1ien/ultracall/internal/registry"
)

// routeError maps command-level validation to error envelopes. The code
// labels metrics; the message is what the client sees.
type routeError struct {
	code string
	msg  string
}

func (e *routeError) Error() string {
	return e.msg
}

var (
	errCodeRequired  = &routeError{code: "INVALID_CODE", msg: "code required"}
	errNotRegistered = &routeError{code: "NOT_REGISTERED", msg: "register first"}
	errTargetMissing = &routeError{code: "MISSING_TARGET", msg: "target missing"}
	errTargetOffline = &routeError{code: "TARGET_OFFLINE", msg: "target not connected"}
	errCallNotFound  = &routeError{code: "CALL_NOT_FOUND", msg: "call not found"}
	errCallerGone    = &routeError{code: "CALLER_GONE", msg: "caller disconnected"}
	errMissingFields = &routeError{code: "MISSING_FIELDS", msg: "target and message required"}
	errNotFriends    = &routeError{code: "NOT_FRIENDS", msg: "not friends with target"}
)

// Router dispatches client commands to the registry, friend graph and call
// tracker, and queues the resulting events. A single mutex serializes every
// read-then-write sequence across the shared state; critical sections hold
// no I/O, since session sends are buffered enqueues.
type Router struct {
	log      *zap.Logger
	registry registry.Registry
	friends  *friends.Graph
	calls    *calls.Tracker
	metrics  *routerMetrics

	mu sync.Mutex
}

// NewRouter wires the router's dependencies. Nil components default to
// fresh in-memory ones.
func NewRouter(log *zap.Logger, reg registry.Registry, graph *friends.Graph, tracker *calls.Tracker, metrics *routerMetrics) *Router {
	if reg == nil {
		reg = registry.NewInMemory()
	}
	if graph == nil {
		graph = friends.NewGraph()
	}
	if tracker == nil {
		tracker = calls.NewTracker()
	}
	return &Router{
		log:      log,
		registry: reg,
		friends:  graph,
		calls:    tracker,
		metrics:  metrics,
	}
}

// Dispatch routes one raw inbound envelope from sess. Malformed input and
// unknown commands are dropped without a reply; there is no reliable return
// address before registration, so silence is the contract.
func (r *Router) Dispatch(sess *session, raw []byte) {
	cmd, err := protocol.ParseCommand(raw)
	if err != nil {
		r.metrics.recordDrop()
		r.log.Debug("dropped malformed envelope", zap.Int("bytes", len(raw)))
		return
	}

	start := time.Now()
	err = r.route(sess, cmd)
	r.metrics.observeLatency(cmd.Cmd, time.Since(start))

	if err != nil {
		rerr, ok := err.(*routeError)
		if !ok {
			rerr = &routeError{code: "internal", msg: "internal error"}
			r.log.Warn("route command", zap.String("cmd", cmd.Cmd), zap.Error(err))
		}
		r.metrics.recordError(rerr.code)
		r.send(sess, protocol.Error(rerr.msg))
	}
}

func (r *Router) route(sess *session, cmd protocol.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch cmd.Cmd {
	case protocol.CmdRegister:
		return r.handleRegister(sess, cmd)
	case protocol.CmdCall:
		return r.handleCall(sess, cmd)
	case protocol.CmdAnswer:
		return r.handleAnswer(sess, cmd)
	case protocol.CmdReject:
		return r.handleReject(sess, cmd)
	case protocol.CmdSignal:
		return r.handleSignal(sess, cmd)
	case protocol.CmdHangup:
		return r.handleHangup(sess, cmd)
	case protocol.CmdFriendRequest:
		return r.handleFriendRequest(sess, cmd)
	case protocol.CmdFriendAccept:
		return r.handleFriendAccept(sess, cmd)
	case protocol.CmdFriendReject:
		return r.handleFriendReject(sess, cmd)
	case protocol.CmdFriendsList:
		return r.handleFriendsList(sess)
	case protocol.CmdMessage:
		return r.handleMessage(sess, cmd)
	default:
		// Unrecognized commands are dropped, deliberately without an error
		// reply, matching the malformed-input contract.
		r.metrics.recordDrop()
		r.log.Debug("dropped unknown command", zap.String("cmd", cmd.Cmd))
		return nil
	}
}

// sender resolves the acting identity: an explicit from field wins over the
// connection's bound code. Codes are unauthenticated; a client may claim
// any identity it likes.
func (r *Router) sender(sess *session, cmd protocol.Command) string {
	if cmd.From != "" {
		return cmd.From
	}
	return sess.code
}

func (r *Router) handleRegister(sess *session, cmd protocol.Command) error {
	if cmd.Code == "" {
		return errCodeRequired
	}

	// Release the previous binding when a session re-registers under a new
	// code, but only if it still owns it.
	if sess.code != "" && sess.code != cmd.Code {
		r.registry.Unbind(sess.code, sess)
	}

	prev := r.registry.Bind(cmd.Code, sess)
	sess.code = cmd.Code

	if prev != nil {
		// The displaced connection stays open but is unreachable by code.
		// See DESIGN.md for the choice to keep (and log) this behavior.
		r.metrics.recordDisplacement()
		r.log.Warn("registration displaced an older connection", zap.String("code", cmd.Code))
	}

	r.send(sess, protocol.Registered(cmd.Code))
	r.send(sess, protocol.FriendsList(r.friends.Friends(cmd.Code)))
	r.syncStateGauges()

	r.log.Info("client registered", zap.String("code", cmd.Code))
	return nil
}

func (r *Router) handleCall(sess *session, cmd protocol.Command) error {
	caller := r.sender(sess, cmd)
	if caller == "" {
		return errNotRegistered
	}
	if cmd.Target == "" {
		return errTargetMissing
	}

	callee, ok := r.registry.Lookup(cmd.Target)
	if !ok {
		return errTargetOffline
	}

	if displaced := r.calls.Place(caller, cmd.Target); displaced != "" {
		// Single-flight per callee: the superseded caller keeps ringing and
		// is never told. Logged so the displacement is at least visible.
		r.log.Info("pending call displaced",
			zap.String("callee", cmd.Target),
			zap.String("displaced_caller", displaced),
			zap.String("caller", caller))
	}

	r.send(callee, protocol.IncomingCall(caller))
	r.send(sess, protocol.CallPlaced(cmd.Target))
	r.syncStateGauges()
	return nil
}

func (r *Router) handleAnswer(sess *session, cmd protocol.Command) error {
	// The callee is strictly the connection's own code; the from field names
	// the caller being answered, not the sender.
	callee := sess.code
	if callee == "" {
		return errNotRegistered
	}

	caller, ok := r.calls.Take(callee, cmd.From)
	if !ok {
		return errCallNotFound
	}
	r.syncStateGauges()

	callerConn, ok := r.registry.Lookup(caller)
	if !ok {
		// The pending entry is already consumed; answering a vanished caller
		// must not leave a ring behind.
		return errCallerGone
	}

	r.send(callerConn, protocol.CallAccepted(callee))
	r.send(sess, protocol.CallAccepted(caller))
	return nil
}

func (r *Router) handleReject(sess *session, cmd protocol.Command) error {
	callee := sess.code
	if callee == "" {
		return errNotRegistered
	}

	caller, ok := r.calls.Take(callee, cmd.From)
	r.syncStateGauges()
	if !ok {
		return errCallNotFound
	}

	if callerConn, online := r.registry.Lookup(caller); online {
		r.send(callerConn, protocol.CallRejected(callee))
	}
	return nil
}

func (r *Router) handleSignal(sess *session, cmd protocol.Command) error {
	// Signaling is fire-and-forget: a missing target, missing payload,
	// offline target or unregistered sender all drop the envelope silently.
	from := r.sender(sess, cmd)
	if from == "" || cmd.Target == "" || len(cmd.Payload) == 0 {
		return nil
	}

	target, ok := r.registry.Lookup(cmd.Target)
	if !ok {
		return nil
	}

	// The payload is opaque: forwarded verbatim, never inspected.
	r.send(target, protocol.Signal(cmd.Payload, from))
	return nil
}

func (r *Router) handleHangup(sess *session, cmd protocol.Command) error {
	from := r.sender(sess, cmd)
	if from == "" {
		return errNotRegistered
	}
	if cmd.Target == "" {
		// Matches the observed relay: hangup with no target is dropped
		// rather than surfaced.
		return nil
	}

	if target, ok := r.registry.Lookup(cmd.Target); ok {
		r.send(target, protocol.CallEnded(from))
	}
	// Echo to the initiator as well; both sides see the same event.
	r.send(sess, protocol.CallEnded(from))

	r.calls.Sweep(cmd.Target, from)
	r.syncStateGauges()
	return nil
}

func (r *Router) handleFriendRequest(sess *session, cmd protocol.Command) error {
	from := r.sender(sess, cmd)
	if from == "" {
		return errNotRegistered
	}
	if cmd.Target == "" {
		return errTargetMissing
	}

	r.friends.Request(from, cmd.Target)
	if target, ok := r.registry.Lookup(cmd.Target); ok {
		r.send(target, protocol.FriendRequest(from))
	}
	r.syncStateGauges()
	return nil
}

func (r *Router) handleFriendAccept(sess *session, cmd protocol.Command) error {
	accepter := r.sender(sess, cmd)
	if accepter == "" {
		return errNotRegistered
	}
	requester := cmd.Target
	if requester == "" {
		return errTargetMissing
	}

	r.friends.Accept(requester, accepter)

	requesterConn, online := r.registry.Lookup(requester)
	if online {
		r.send(requesterConn, protocol.FriendAccepted(accepter))
		r.send(requesterConn, protocol.FriendsList(r.friends.Friends(requester)))
	}
	// The accepter always gets a refreshed roster, online by definition.
	r.send(sess, protocol.FriendsList(r.friends.Friends(accepter)))
	r.syncStateGauges()

	r.log.Info("friendship established",
		zap.String("requester", requester),
		zap.String("accepter", accepter))
	return nil
}

func (r *Router) handleFriendReject(sess *session, cmd protocol.Command) error {
	rejecter := r.sender(sess, cmd)
	if rejecter == "" {
		return errNotRegistered
	}
	requester := cmd.Target
	if requester == "" {
		return errTargetMissing
	}

	r.friends.Reject(requester, rejecter)
	if requesterConn, online := r.registry.Lookup(requester); online {
		r.send(requesterConn, protocol.FriendRejected(rejecter))
	}
	r.syncStateGauges()
	return nil
}

func (r *Router) handleFriendsList(sess *session) error {
	code := sess.code
	if code == "" {
		return errNotRegistered
	}
	r.send(sess, protocol.FriendsList(r.friends.Friends(code)))
	return nil
}

func (r *Router) handleMessage(sess *session, cmd protocol.Command) error {
	from := r.sender(sess, cmd)
	if cmd.Target == "" || cmd.Message == "" {
		return errMissingFields
	}
	if !r.friends.IsFriend(from, cmd.Target) {
		return errNotFriends
	}

	// Delivery is best effort: an offline friend simply misses the message.
	if target, ok := r.registry.Lookup(cmd.Target); ok {
		r.send(target, protocol.Message(from, cmd.Message))
	}
	return nil
}

// HandleDisconnect purges all state owned by the departing session: its
// registry binding (unless a newer connection took the code over), every
// pending call it appears in, and the friend requests it had received.
// Established friendships survive; they are presence-independent.
func (r *Router) HandleDisconnect(sess *session) {
	sess.close()
	r.metrics.decConn()

	r.mu.Lock()
	defer r.mu.Unlock()

	if sess.code == "" {
		return
	}

	owned := r.registry.Unbind(sess.code, sess)
	if owned {
		r.calls.Sweep(sess.code)
		r.friends.DropRequests(sess.code)
	}
	r.syncStateGauges()

	r.log.Info("client disconnected",
		zap.String("code", sess.code),
		zap.Bool("owned_binding", owned),
		zap.Duration("session_age", time.Since(sess.connectedAt)))
}

// HandleConnect registers a brand-new, not-yet-identified connection.
func (r *Router) HandleConnect() {
	r.metrics.incConn()
}

// send queues ev on conn, swallowing failures: a slow or dying peer must
// never surface as an error on someone else's command.
func (r *Router) send(conn registry.Conn, ev protocol.Event) {
	if err := conn.Send(ev); err != nil {
		r.metrics.recordSendFailure()
		r.log.Debug("drop outbound event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	r.metrics.recordEvent(ev.Type)
}

func (r *Router) syncStateGauges() {
	requests, edges := r.friends.Counts()
	r.metrics.setState(r.registry.Len(), r.calls.Len(), requests, edges)
}
