// Package dashboard serves the management dashboard: a status API, the
// uplink settings API and a websocket feed of telemetry samples. It runs only
// while the node is attached upstream.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/linkkeeper/internal/lifecycle"
	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
	smw "git.home.luguber.info/inful/linkkeeper/internal/server/middleware"
	"git.home.luguber.info/inful/linkkeeper/internal/server/responses"
	"git.home.luguber.info/inful/linkkeeper/internal/supervisor"
	"git.home.luguber.info/inful/linkkeeper/internal/uplink"
)

// ServiceName is the lifecycle name of the dashboard.
const ServiceName = "dashboard"

const writeTimeout = 5 * time.Second

var _ lifecycle.Service = (*Server)(nil)

// StatusProvider exposes the supervisor's read-only status.
type StatusProvider interface {
	Status() supervisor.Status
}

// UplinkController is the part of the uplink the dashboard edits.
type UplinkController interface {
	Settings() uplink.Settings
	UpdateSettings(ctx context.Context, update uplink.Settings) (uplink.Settings, error)
	Status() uplink.Status
}

// StatusResponse is returned by /api/status.
type StatusResponse struct {
	Connectivity supervisor.Status       `json:"connectivity"`
	Services     []lifecycle.ServiceInfo `json:"services,omitempty"`
	Clients      int                     `json:"clients"`
}

// Server is the dashboard service.
type Server struct {
	addr     string
	status   StatusProvider
	uplink   UplinkController
	services func() []lifecycle.ServiceInfo
	adapter  *ferrors.HTTPErrorAdapter
	mchain   func(http.Handler) http.Handler

	mu      sync.Mutex
	srv     *http.Server
	ln      net.Listener
	running bool
	stopped bool
	conns   map[*websocket.Conn]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithServices lists lifecycle services in /api/status.
func WithServices(fn func() []lifecycle.ServiceInfo) Option {
	return func(s *Server) { s.services = fn }
}

// New returns a stopped dashboard listening on addr once started.
func New(addr string, status StatusProvider, up UplinkController, opts ...Option) *Server {
	adapter := ferrors.NewHTTPErrorAdapter(slog.Default())
	s := &Server{
		addr:    addr,
		status:  status,
		uplink:  up,
		adapter: adapter,
		mchain:  smw.Chain(slog.Default(), adapter),
		conns:   make(map[*websocket.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Name() string           { return ServiceName }
func (s *Server) Dependencies() []string { return nil }

// Handler returns the routed handler, wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/uplink/config", s.handleGetUplinkConfig)
	mux.HandleFunc("POST /api/uplink/config", s.handleSetUplinkConfig)
	mux.HandleFunc("GET /api/uplink/status", s.handleUplinkStatus)
	mux.Handle("/ws", websocket.Handler(s.serveWS))
	return s.mchain(mux)
}

// Start binds the listener and serves in the background.
func (s *Server) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return ferrors.RuntimeError("dashboard listen").
			WithCause(err).
			WithContext("addr", s.addr).
			Retryable().
			Build()
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.srv, s.ln, s.running, s.stopped = srv, ln, true, false

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Dashboard server error", logfields.Error(err))
		}
	}()
	slog.Info("Dashboard started", logfields.Addr(ln.Addr().String()))
	return nil
}

// Stop closes every websocket and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	conns := s.conns
	s.conns = make(map[*websocket.Conn]struct{})
	s.srv, s.ln, s.running, s.stopped = nil, nil, false, true
	s.mu.Unlock()

	for c := range conns {
		_ = c.Close()
	}
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("dashboard shutdown: %w", err)
	}
	slog.Info("Dashboard stopped", logfields.Clients(len(conns)))
	return nil
}

// IsRunning reports whether the server is listening.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the bound address, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) Health() lifecycle.HealthStatus {
	if !s.IsRunning() {
		return lifecycle.Stopped()
	}
	return lifecycle.Healthy()
}

// Clients returns the number of open websocket connections.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Broadcast sends v as JSON to every websocket client and returns how many
// received it. Clients that fail the write are dropped.
func (s *Server) Broadcast(v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Dashboard broadcast encode failed", logfields.Error(err))
		return 0
	}

	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	sent := 0
	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := websocket.Message.Send(c, string(data)); err != nil {
			slog.Debug("Dropping dashboard client", logfields.Error(err))
			s.drop(c)
			continue
		}
		sent++
	}
	return sent
}

func (s *Server) serveWS(c *websocket.Conn) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		_ = c.Close()
		return
	}
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	defer s.drop(c)

	if s.status != nil {
		if err := websocket.JSON.Send(c, s.status.Status()); err != nil {
			return
		}
	}
	// Inbound frames are ignored; the read loop only detects closure.
	var msg string
	for {
		if err := websocket.Message.Receive(c, &msg); err != nil {
			return
		}
	}
}

func (s *Server) drop(c *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	_ = c.Close()
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{Clients: s.Clients()}
	if s.status != nil {
		resp.Connectivity = s.status.Status()
	}
	if s.services != nil {
		resp.Services = s.services()
	}
	responses.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetUplinkConfig(w http.ResponseWriter, r *http.Request) {
	if s.uplink == nil {
		s.adapter.WriteErrorResponse(w, r, ferrors.UplinkError("uplink not configured").Build())
		return
	}
	responses.WriteJSON(w, http.StatusOK, s.uplink.Settings())
}

func (s *Server) handleSetUplinkConfig(w http.ResponseWriter, r *http.Request) {
	if s.uplink == nil {
		s.adapter.WriteErrorResponse(w, r, ferrors.UplinkError("uplink not configured").Build())
		return
	}
	var update uplink.Settings
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&update); err != nil {
		s.adapter.WriteErrorResponse(w, r, ferrors.ValidationError("malformed uplink settings").WithCause(err).Build())
		return
	}
	saved, err := s.uplink.UpdateSettings(r.Context(), update)
	if err != nil && ferrors.HasCategory(err, ferrors.CategoryUplink) {
		// Saved, but the reconnect failed; report both.
		responses.WriteJSON(w, http.StatusAccepted, struct {
			uplink.Settings
			Warning string `json:"warning"`
		}{saved, err.Error()})
		return
	}
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}
	responses.WriteJSON(w, http.StatusOK, saved)
}

func (s *Server) handleUplinkStatus(w http.ResponseWriter, r *http.Request) {
	if s.uplink == nil {
		s.adapter.WriteErrorResponse(w, r, ferrors.UplinkError("uplink not configured").Build())
		return
	}
	responses.WriteJSON(w, http.StatusOK, s.uplink.Status())
}
