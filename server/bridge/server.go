// Package bridge serves workflow navigators over WebSocket so a remote
// presentation layer can drive a run and render its events.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/AltairaLabs/stepflow/runtime/definition"
	"github.com/AltairaLabs/stepflow/runtime/events"
	"github.com/AltairaLabs/stepflow/runtime/logger"
	"github.com/AltairaLabs/stepflow/runtime/statestore"
	"github.com/AltairaLabs/stepflow/runtime/validators"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

const (
	// defaultReadHeaderTimeout prevents Slowloris attacks.
	defaultReadHeaderTimeout = 10 * time.Second

	// defaultIdleTimeout is the maximum amount of time to wait for the
	// next request when keep-alives are enabled.
	defaultIdleTimeout = 120 * time.Second

	// defaultCommandRate is the sustained number of commands per second a
	// connection may send.
	defaultCommandRate = 20

	// defaultCommandBurst is the number of commands a connection may send
	// back to back.
	defaultCommandBurst = 40

	defaultWriteWait      = 10 * time.Second
	defaultMaxMessageSize = 64 * 1024
)

// ErrRateLimited is reported on result frames for commands over the
// connection's rate.
var ErrRateLimited = errors.New("command rate exceeded")

// SessionHook observes the lifecycle of bridge sessions. Opened runs before
// the navigator is built, so subscribers see the run's first event.
type SessionHook interface {
	Opened(ctx context.Context, runID string, bus *events.EventBus)
	Closed(runID string)
}

// Option configures a [Server].
type Option func(*Server)

// WithAddr sets the listen address for ListenAndServe. Default ":8080".
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithStore enables checkpointing and resuming runs through store.
func WithStore(store statestore.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithRegistry sets the rule registry used to build step validators.
func WithRegistry(reg *validators.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithCommandRate sets the per-connection command rate limit.
func WithCommandRate(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.commandRate = rate.Limit(perSecond)
		s.commandBurst = burst
	}
}

// WithSessionHook registers a hook called for every session.
func WithSessionHook(h SessionHook) Option {
	return func(s *Server) { s.hooks = append(s.hooks, h) }
}

// WithCheckOrigin sets the WebSocket origin check. By default every origin
// is accepted.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

// WithNavigatorOptions appends options to every navigator the server builds.
func WithNavigatorOptions(opts ...workflow.Option) Option {
	return func(s *Server) { s.navOpts = append(s.navOpts, opts...) }
}

// Server exposes the workflows of a catalog over WebSocket.
type Server struct {
	catalog  *definition.Catalog
	store    statestore.Store
	registry *validators.Registry
	hooks    []SessionHook
	navOpts  []workflow.Option
	addr     string
	upgrader websocket.Upgrader

	commandRate  rate.Limit
	commandBurst int

	httpSrv   *http.Server
	httpSrvMu sync.Mutex

	sessionsMu sync.Mutex
	sessions   map[*session]struct{}
	runs       map[string]struct{}
}

// NewServer creates a bridge server for the workflows in catalog.
func NewServer(catalog *definition.Catalog, opts ...Option) *Server {
	s := &Server{
		catalog:      catalog,
		registry:     validators.DefaultRegistry,
		addr:         ":8080",
		commandRate:  defaultCommandRate,
		commandBurst: defaultCommandBurst,
		sessions:     make(map[*session]struct{}),
		runs:         make(map[string]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the bridge's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /workflows", s.handleWorkflows)
	return otelhttp.NewHandler(mux, "stepflow-bridge")
}

// ListenAndServe starts the HTTP server on the configured address.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve starts the HTTP server on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}

	s.httpSrvMu.Lock()
	s.httpSrv = srv
	s.httpSrvMu.Unlock()

	logger.Info("bridge listening", "addr", ln.Addr().String())
	return srv.Serve(ln)
}

// Shutdown stops accepting connections and closes every open session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpSrvMu.Lock()
	srv := s.httpSrv
	s.httpSrvMu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	s.sessionsMu.Lock()
	open := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		open = append(open, sess)
	}
	s.sessionsMu.Unlock()

	for _, sess := range open {
		sess.close(websocket.CloseGoingAway, "server shutting down")
	}
	return err
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleWorkflows(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string][]string{"workflows": s.catalog.Names()})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("workflow")
	runID := r.URL.Query().Get("run")

	def, err := s.catalog.Get(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	resume := runID != ""
	if resume && s.store == nil {
		http.Error(w, "run resumption requires a state store", http.StatusBadRequest)
		return
	}
	if !resume {
		runID = uuid.NewString()
	}
	if !s.claim(runID) {
		http.Error(w, fmt.Sprintf("run %q already has an open session", runID), http.StatusConflict)
		return
	}

	var snap *workflow.Snapshot
	if resume {
		var status int
		snap, status, err = s.loadRun(r.Context(), def, runID)
		if err != nil {
			s.release(runID)
			http.Error(w, err.Error(), status)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.release(runID)
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx := logger.WithRunID(logger.WithWorkflow(r.Context(), def.Name()), runID)
	sess := newSession(conn, s.commandRate, s.commandBurst)
	if err := s.open(ctx, sess, def, runID, snap); err != nil {
		logger.WarnContext(ctx, "bridge session failed to start", "error", err)
		sess.close(websocket.CloseInternalServerErr, err.Error())
		s.release(runID)
		return
	}

	s.track(sess)
	defer s.untrack(sess, runID)
	defer s.closed(runID)

	logger.InfoContext(ctx, "bridge session opened", "resumed", snap != nil)
	sess.serve(ctx)
	logger.InfoContext(ctx, "bridge session closed")
}

// open builds the session's navigator, fresh or restored from snap.
func (s *Server) open(ctx context.Context, sess *session, def *definition.Workflow, runID string, snap *workflow.Snapshot) error {
	bus := events.NewEventBus()
	bus.SubscribeAll(sess.onEvent)
	for _, h := range s.hooks {
		h.Opened(ctx, runID, bus)
	}

	opts := append([]workflow.Option{
		workflow.WithEventBus(bus),
		workflow.WithRunID(runID),
		workflow.WithAnnouncer(workflow.AnnouncerFunc(sess.announce)),
		workflow.WithFocusPort(sess),
	}, s.navOpts...)

	var (
		nav *workflow.Navigator
		err error
	)
	if snap != nil {
		nav, err = def.Restore(snap, sess.data, s.registry, opts...)
	} else {
		nav, err = def.Build(sess.data, s.registry, opts...)
	}
	if err != nil {
		s.closed(runID)
		return err
	}
	sess.nav = nav

	if s.store != nil {
		cp := statestore.NewCheckpointer(s.store, nav)
		cp.Attach(bus)
		if snap == nil {
			if err := cp.Save(ctx); err != nil {
				logger.WarnContext(ctx, "initial checkpoint failed", "error", err)
			}
		}
	}
	return nil
}

func (s *Server) closed(runID string) {
	for _, h := range s.hooks {
		h.Closed(runID)
	}
}

// loadRun loads the snapshot of a run being resumed and reports the HTTP
// status to answer with when it cannot be used.
func (s *Server) loadRun(ctx context.Context, def *definition.Workflow, runID string) (*workflow.Snapshot, int, error) {
	snap, err := s.store.Load(ctx, runID)
	if err != nil {
		if errors.Is(err, statestore.ErrNotFound) || errors.Is(err, statestore.ErrInvalidID) {
			return nil, http.StatusNotFound, err
		}
		return nil, http.StatusInternalServerError, err
	}
	if snap.Workflow != def.Name() {
		return nil, http.StatusConflict, fmt.Errorf("run %q belongs to workflow %q", runID, snap.Workflow)
	}
	return snap, http.StatusOK, nil
}

// claim reserves runID for one session. It reports false when another
// session already drives the run.
func (s *Server) claim(runID string) bool {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if _, busy := s.runs[runID]; busy {
		return false
	}
	s.runs[runID] = struct{}{}
	return true
}

func (s *Server) release(runID string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.runs, runID)
}

func (s *Server) track(sess *session) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[sess] = struct{}{}
}

// untrack forgets sess and frees its run for the next session.
func (s *Server) untrack(sess *session, runID string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, sess)
	delete(s.runs, runID)
}
