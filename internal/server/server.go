package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/R1ien/ultracall/internal/calls"
	"github.com/R1ien/ultracall/internal/config"
	"github.com/R1ien/ultracall/internal/friends"
	"github.com/R1ien/ultracall/internal/registry"
)

// Server hosts the signaling WebSocket endpoint, the static assets and an
// optional admin surface with metrics and health probes.
type Server struct {
	cfg      config.Config
	log      *zap.Logger
	router   *Router
	promReg  *prometheus.Registry
	upgrader websocket.Upgrader

	httpServer *http.Server
	adminHTTP  *http.Server
	ready      atomic.Bool

	mu       sync.Mutex
	sessions map[*session]struct{}
	baseCtx  context.Context
	cancel   context.CancelFunc
}

// NewServer wires the router and its stateful components. Nil components
// default to fresh in-memory ones.
func NewServer(cfg config.Config, logger *zap.Logger, reg registry.Registry, graph *friends.Graph, tracker *calls.Tracker) *Server {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	metrics := newRouterMetrics(promReg)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		log:     logger,
		router:  NewRouter(logger, reg, graph, tracker, metrics),
		promReg: promReg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[*session]struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Router exposes the message router, mainly for tests.
func (s *Server) Router() *Router {
	return s.router
}

// Routes builds the public mux: the WebSocket endpoint plus the static
// asset directory at the root.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.WSPath, s.handleWS)
	if s.cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sess := newSession(s.baseCtx, s.log, conn, s.cfg.SendBuffer, s.cfg.WriteTimeout)
	conn.SetReadLimit(s.cfg.MaxMessageBytes)

	s.trackSession(sess, true)
	s.router.HandleConnect()
	defer func() {
		s.router.HandleDisconnect(sess)
		s.trackSession(sess, false)
	}()

	go sess.writer()

	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		s.router.Dispatch(sess, raw)
	}
}

func (s *Server) trackSession(sess *session, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.sessions[sess] = struct{}{}
	} else {
		delete(s.sessions, sess)
	}
}

// Start boots the public and admin HTTP servers and blocks until ctx is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddress, err)
	}

	s.startAdminServer()

	s.httpServer = &http.Server{
		Handler:     s.Routes(),
		BaseContext: func(net.Listener) context.Context { return s.baseCtx },
	}

	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGracePeriod)
		defer cancel()
		s.Shutdown(stopCtx)
	}()

	s.log.Info("signaling server listening",
		zap.String("address", s.cfg.ListenAddress),
		zap.String("ws_path", s.cfg.WSPath))
	s.ready.Store(true)

	err = s.httpServer.Serve(lis)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

func (s *Server) startAdminServer() {
	if s.cfg.AdminAddress == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if s.ready.Load() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not_ready"))
	})

	s.adminHTTP = &http.Server{
		Addr:    s.cfg.AdminAddress,
		Handler: mux,
	}

	go func() {
		if err := s.adminHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("admin server stopped", zap.Error(err))
		}
	}()
	s.log.Info("admin server listening", zap.String("address", s.cfg.AdminAddress))
}

// Shutdown stops accepting connections and tears down live sessions.
// WebSocket connections are hijacked, so http.Server.Shutdown alone would
// wait on them forever; sessions are closed explicitly instead.
func (s *Server) Shutdown(ctx context.Context) {
	s.ready.Store(false)

	if s.adminHTTP != nil {
		if err := s.adminHTTP.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("admin server shutdown", zap.Error(err))
		}
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.DeadlineExceeded) {
			s.log.Warn("http server shutdown", zap.Error(err))
		}
	}

	s.cancel()
	s.mu.Lock()
	open := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()
	for _, sess := range open {
		sess.close()
	}

	s.log.Info("signaling server stopped", zap.Int("sessions_closed", len(open)))
}
