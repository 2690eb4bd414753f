// Package server serves the to-do list UI over HTTP. Each browser session
// owns one list controller; the page talks to it over a websocket and falls
// back to plain form posts when scripting is unavailable.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/todos/internal/logging"
	"github.com/mesh-intelligence/todos/internal/metrics"
	"github.com/mesh-intelligence/todos/internal/session"
	"github.com/mesh-intelligence/todos/internal/todo"
	"github.com/mesh-intelligence/todos/internal/view"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// SessionCookie names the cookie carrying the UI session id.
const SessionCookie = "todos_session"

// Route paths.
const (
	PathRoot    = "/"
	PathView    = "/view"
	PathActions = "/actions"
	PathSocket  = "/ws"
	PathHealth  = "/health"
	PathMetrics = "/metrics"
)

const (
	writeTimeout = 5 * time.Second

	// DefaultSessionIdle is how long a session without requests or open
	// websockets is kept.
	DefaultSessionIdle = 30 * time.Minute
)

// Config holds server configuration.
type Config struct {
	// Addr to listen on (default 127.0.0.1:8080). Use port 0 for a random port.
	Addr string

	// CacheKey is the session storage key for the list snapshot.
	CacheKey string

	// Logger for server activity (default: discard).
	Logger *log.Logger

	// Metrics, when set, records operations and is served on /metrics.
	Metrics *metrics.Metrics

	// SessionIdle is the idle time after which a session is dropped
	// (default DefaultSessionIdle).
	SessionIdle time.Duration
}

// Server routes UI events from browser sessions to their controllers.
type Server struct {
	addr     string
	store    types.Store
	cacheKey string
	logger   *log.Logger
	metrics  *metrics.Metrics
	renderer *view.HTMLRenderer
	idle     time.Duration

	listener net.Listener
	server   *http.Server

	sessions   map[string]*uiSession
	sessionsMu sync.RWMutex

	conns   map[*websocket.Conn]struct{}
	connsMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// uiSession is one browser session. mu serializes its events.
type uiSession struct {
	mu     sync.Mutex
	ctrl   *todo.Controller
	loaded bool

	lastSeen atomic.Int64 // unix nanos of the latest request or message
	sockets  atomic.Int32 // open websockets
}

func (sess *uiSession) touch() {
	sess.lastSeen.Store(time.Now().UnixNano())
}

// New returns a server over store. Call Start to listen, or mount Handler.
func New(store types.Store, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = DefaultSessionIdle
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:     cfg.Addr,
		store:    store,
		cacheKey: cfg.CacheKey,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		renderer: view.NewHTMLRenderer(),
		idle:     cfg.SessionIdle,
		sessions: make(map[string]*uiSession),
		conns:    make(map[*websocket.Conn]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathRoot+"{$}", s.handleRoot)
	mux.HandleFunc("GET "+PathView, s.handleView)
	mux.HandleFunc("POST "+PathActions, s.handleActions)
	mux.HandleFunc("GET "+PathSocket, s.handleWebSocket)
	mux.HandleFunc("GET "+PathHealth, s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET "+PathMetrics, s.metrics.Handler())
	}
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "err", err)
		}
	}()

	s.wg.Add(1)
	go s.expireLoop()
	return nil
}

// expireLoop drops idle sessions until the server stops.
func (s *Server) expireLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.expireSessions(now.Add(-s.idle))
		}
	}
}

// expireSessions removes sessions last seen before cutoff that have no open
// websocket, and returns how many it removed.
func (s *Server) expireSessions(cutoff time.Time) int {
	s.sessionsMu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.sockets.Load() > 0 || sess.lastSeen.Load() >= cutoff.UnixNano() {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	count := len(s.sessions)
	s.sessionsMu.Unlock()

	if removed > 0 {
		s.metrics.SetSessions(count)
		s.logger.Debug("sessions expired", "removed", removed, "remaining", count)
	}
	return removed
}

// Stop closes every websocket and shuts the HTTP server down.
func (s *Server) Stop() error {
	s.cancel()

	s.connsMu.Lock()
	for conn := range s.conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.conns, conn)
	}
	s.connsMu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.wg.Wait()
	s.logger.Info("server stopped")
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// SessionCount returns the number of live UI sessions.
func (s *Server) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}

// session returns the caller's session, creating one (and its cookie) when
// the request carries none or an unknown id.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *uiSession {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.sessionsMu.RLock()
		sess, ok := s.sessions[c.Value]
		s.sessionsMu.RUnlock()
		if ok {
			sess.touch()
			return sess
		}
	}

	id := uuid.NewString()
	sess := &uiSession{
		ctrl: todo.New(s.store,
			session.NewMirror(session.NewMemory(), s.cacheKey),
			todo.WithLogger(s.logger.With("session", id)),
			todo.WithMetrics(s.metrics),
		),
	}
	sess.touch()
	s.sessionsMu.Lock()
	s.sessions[id] = sess
	count := len(s.sessions)
	s.sessionsMu.Unlock()
	s.metrics.SetSessions(count)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Debug("session created", "session", id)
	return sess
}

// load runs the startup load. Errors are logged by the controller and the
// page renders the empty list.
func (sess *uiSession) load(ctx context.Context) {
	_ = sess.ctrl.Load(ctx)
	sess.loaded = true
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.load(r.Context())
	if q := r.URL.Query().Get("q"); q != "" {
		sess.ctrl.Search(q)
	}
	s.renderPage(w, sess.ctrl)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.loaded {
		sess.load(r.Context())
	}
	if r.URL.Query().Has("q") {
		sess.ctrl.Search(r.URL.Query().Get("q"))
	}
	s.renderPage(w, sess.ctrl)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	kind, err := types.ParseActionKind(r.PostForm.Get("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	action := types.Action{Kind: kind, ID: r.PostForm.Get("id"), Text: r.PostForm.Get("text")}

	sess := s.session(w, r)
	sess.mu.Lock()
	if !sess.loaded {
		sess.load(r.Context())
	}
	if err := sess.ctrl.Dispatch(r.Context(), action); err != nil {
		s.logger.Warn("action failed", "type", kind, "id", action.ID, "err", err)
	}
	sess.mu.Unlock()

	http.Redirect(w, r, PathView, http.StatusSeeOther)
}

func (s *Server) renderPage(w http.ResponseWriter, ctrl *todo.Controller) {
	var buf bytes.Buffer
	err := s.renderer.RenderPage(&buf, view.Page{
		Input:      ctrl.Input(),
		Query:      ctrl.Query(),
		Items:      ctrl.Items(),
		SocketPath: PathSocket,
		ActionPath: PathActions,
	})
	if err != nil {
		s.logger.Error("error rendering page", "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.SessionCount(),
	})
}
