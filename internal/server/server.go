// Package server serves overlay subscribers over WebSocket and the overlay
// page over HTTP, on loopback addresses only.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"keyoverlay/internal/broadcast"
	"keyoverlay/internal/protocol"
	"keyoverlay/internal/settings"
)

//go:embed static/*
var staticFiles embed.FS

// Status is reported by GET /api/status.
type Status struct {
	Capture string `json:"capture"`
	Clients int    `json:"clients"`
	Trusted bool   `json:"trusted"`
}

// Backend supplies what the server reports but does not own.
type Backend interface {
	// Greeting returns the messages a new subscriber receives first.
	Greeting() []protocol.Message
	Status() Status
	// Settings returns the current overlay settings document, nil if none.
	Settings() json.RawMessage
	// UpdateSettings merges a JSON object over the current settings.
	UpdateSettings(patch []byte)
}

// maxSettingsSize bounds PUT /api/settings bodies.
const maxSettingsSize = 1 << 20

// Server provides the subscriber endpoint and the overlay page
type Server struct {
	hub     *broadcast.Hub
	backend Backend

	mu      sync.Mutex
	servers []*http.Server
}

// New creates a server publishing from hub.
func New(hub *broadcast.Hub, backend Backend) *Server {
	return &Server{hub: hub, backend: backend}
}

// WSHandler accepts subscribers on any path.
func (s *Server) WSHandler() http.Handler {
	return s.recoverMiddleware(s.localOnly(http.HandlerFunc(s.handleWebSocket)))
}

// HTTPHandler serves the overlay page, /api/status, /api/settings and
// /health.
func (s *Server) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticFS)))

	return s.recoverMiddleware(s.localOnly(mux))
}

// Start listens on both addresses and serves in the background. It fails
// if either address cannot be bound.
func (s *Server) Start(wsAddr, httpAddr string) error {
	wsLn, err := net.Listen("tcp", wsAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", wsAddr, err)
	}
	httpLn, err := net.Listen("tcp", httpAddr)
	if err != nil {
		wsLn.Close()
		return fmt.Errorf("listen %s: %w", httpAddr, err)
	}

	s.serve("websocket", wsLn, s.WSHandler())
	s.serve("http", httpLn, s.HTTPHandler())
	return nil
}

func (s *Server) serve(name string, ln net.Listener, h http.Handler) {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.servers = append(s.servers, srv)
	s.mu.Unlock()

	log.Info().Str("component", "server").Str("listener", name).Str("addr", ln.Addr().String()).Msg("Listening")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Str("component", "server").Str("listener", name).Err(err).Msg("Server stopped")
		}
	}()
}

// Shutdown stops accepting connections and closes the listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	servers := s.servers
	s.servers = nil
	s.mu.Unlock()

	var errs []error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Str("component", "server").Interface("panic", err).Str("path", r.URL.Path).Msg("Recovered panic")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// localOnly rejects peers that are not on the loopback interface
func (s *Server) localOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackHost(r.RemoteAddr) {
			log.Warn().Str("component", "server").Str("remote", r.RemoteAddr).Msg("Rejected non-local peer")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLoopbackHost(hostport string) bool {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		host = hostport
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// allowOrigin lets through non-browser clients (no Origin) and pages served
// from a loopback host.
func allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.backend.Status())
}

// handleSettings handles GET and PUT /api/settings
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		raw := s.backend.Settings()
		if raw == nil {
			raw = json.RawMessage("{}")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(raw)

	case http.MethodPut, http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSettingsSize))
		if err != nil {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		if !settings.IsObject(body) {
			http.Error(w, "Settings must be a JSON object", http.StatusBadRequest)
			return
		}
		s.backend.UpdateSettings(body)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
