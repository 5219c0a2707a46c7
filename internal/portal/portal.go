// Package portal serves the HTTP endpoints reachable from the local access
// point: credential entry, AP configuration, network scan, status, health and
// metrics. It runs for the whole process lifetime, independent of the attach
// outcome.
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
	"git.home.luguber.info/inful/linkkeeper/internal/radio"
	smw "git.home.luguber.info/inful/linkkeeper/internal/server/middleware"
	"git.home.luguber.info/inful/linkkeeper/internal/server/responses"
	"git.home.luguber.info/inful/linkkeeper/internal/supervisor"
	"git.home.luguber.info/inful/linkkeeper/internal/telemetry"
	"git.home.luguber.info/inful/linkkeeper/internal/version"
)

// Supervisor is the subset of the connectivity supervisor the portal may use.
type Supervisor interface {
	SetCredentials(ctx context.Context, ssid, secret string) error
	AttemptAttach(ctx context.Context) error
	SetAccessPointConfig(ctx context.Context, name, secret string) error
	Scan(ctx context.Context) ([]radio.Network, error)
	Status() supervisor.Status
}

// Server is the access-point side HTTP server.
type Server struct {
	addr    string
	sup     Supervisor
	metrics http.Handler
	sensors telemetry.Source
	started time.Time
	adapter *ferrors.HTTPErrorAdapter
	mchain  func(http.Handler) http.Handler

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler exposes h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithSensors exposes the readings of src at /sensor.
func WithSensors(src telemetry.Source) Option {
	return func(s *Server) { s.sensors = src }
}

// New returns a portal bound to addr once started.
func New(addr string, sup Supervisor, opts ...Option) *Server {
	adapter := ferrors.NewHTTPErrorAdapter(slog.Default())
	s := &Server{
		addr:    addr,
		sup:     sup,
		started: time.Now(),
		adapter: adapter,
		mchain:  smw.Chain(slog.Default(), adapter),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("/connect", s.handleConnect)
	mux.HandleFunc("/apconfig", s.handleAPConfig)
	mux.HandleFunc("GET /scan", s.handleScan)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /sensor", s.handleSensor)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return s.mchain(mux)
}

// Start binds addr and serves in the background.
func (s *Server) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return ferrors.RuntimeError("portal listen").
			WithCause(err).
			WithContext("addr", s.addr).
			Fatal().
			Build()
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.srv, s.ln = srv, ln
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Portal server error", logfields.Error(err))
		}
	}()
	slog.Info("Portal started", logfields.Addr(ln.Addr().String()))
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv, s.ln = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
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

type connectRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"pass"`
}

// handleConnect stores the credentials, answers the client and only then
// starts the attach, since the attach may take the AP-side link away.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req connectRequest
	if err := decodeRequest(w, r, &req, formField{"ssid", &req.SSID}, formField{"pass", &req.Password}); err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}
	if err := s.sup.SetCredentials(r.Context(), req.SSID, req.Password); err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}

	responses.WriteJSON(w, http.StatusAccepted, responses.AcceptedResponse{
		Status:  "connecting",
		Message: "Connecting to: " + strings.TrimSpace(req.SSID),
	})
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	if err := s.sup.AttemptAttach(context.WithoutCancel(r.Context())); err != nil {
		slog.Warn("Attach after credential update not started",
			logfields.SSID(req.SSID),
			logfields.Error(err),
			logfields.RequestID(smw.RequestID(r.Context())))
	}
}

type apConfigRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

func (s *Server) handleAPConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req apConfigRequest
	err := decodeRequest(w, r, &req,
		formField{"ssid", &req.Name}, formField{"name", &req.Name},
		formField{"pass", &req.Secret}, formField{"secret", &req.Secret})
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}
	if err := s.sup.SetAccessPointConfig(r.Context(), req.Name, req.Secret); err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}
	responses.WriteJSON(w, http.StatusOK, responses.AcceptedResponse{
		Status:  "saved",
		Message: "Access point settings saved",
	})
}

type scanResponse struct {
	Networks []radio.Network `json:"networks"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	nets, err := s.sup.Scan(r.Context())
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}
	if nets == nil {
		nets = []radio.Network{}
	}
	responses.WriteJSON(w, http.StatusOK, scanResponse{Networks: nets})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	responses.WriteJSON(w, http.StatusOK, s.sup.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	responses.WriteJSON(w, http.StatusOK, responses.HealthResponse{
		Status:    "ok",
		Version:   version.Version,
		Uptime:    time.Since(s.started).Seconds(),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	if s.sensors == nil {
		responses.WriteJSON(w, http.StatusOK, map[string]float64{})
		return
	}
	readings, err := s.sensors.Readings(r.Context())
	if err != nil && len(readings) == 0 {
		s.adapter.WriteErrorResponse(w, r, ferrors.RuntimeError("read sensors").WithCause(err).Build())
		return
	}
	responses.WriteJSON(w, http.StatusOK, readings)
}

type formField struct {
	name string
	dst  *string
}

// decodeRequest reads a JSON body into v, or form and query values into
// fields. Later fields win when several names are present.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any, fields ...formField) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(v); err != nil {
			return ferrors.ValidationError("malformed request body").WithCause(err).Build()
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return ferrors.ValidationError("malformed form").WithCause(err).Build()
	}
	for _, f := range fields {
		if val := r.Form.Get(f.name); val != "" {
			*f.dst = val
		}
	}
	return nil
}
