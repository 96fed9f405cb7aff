// Package server exposes the machine inventory, the neighbor table and the
// wake broadcaster over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/projectdiscovery/gologger"

	"github.com/projectdiscovery/wol-agent/pkg/macaddr"
	"github.com/projectdiscovery/wol-agent/pkg/neighbor"
	"github.com/projectdiscovery/wol-agent/pkg/store"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Inventory is the machine store used by the handlers.
type Inventory interface {
	List(ctx context.Context) ([]store.Machine, error)
	Get(ctx context.Context, id string) (store.Machine, error)
	Add(ctx context.Context, m store.Machine) error
	Delete(ctx context.Context, id string) error
}

// Waker broadcasts magic packets.
type Waker interface {
	WakeAll(ctx context.Context, macs []macaddr.Addr) error
}

// Options configures a Server.
type Options struct {
	Inventory Inventory
	Neighbors neighbor.Reader
	Waker     Waker
	// FrontendDir, when set, is served at / with index.html as fallback.
	FrontendDir string
	Version     string
}

// Server is the HTTP API.
type Server struct {
	options *Options
	handler http.Handler
	started time.Time
}

// New creates a new server instance
func New(options *Options) *Server {
	s := &Server{
		options: options,
		started: time.Now(),
	}
	s.handler = s.withRequestLog(withCORS(s.routes()))
	return s
}

// Handler returns the root handler, request logging and CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/machines", s.listMachines)
	mux.HandleFunc("POST /api/machines", s.addMachine)
	mux.HandleFunc("DELETE /api/machines", s.deleteMachine)
	mux.HandleFunc("POST /api/machines/wake", s.wake)
	mux.HandleFunc("GET /api/arp", s.neighbors)
	mux.HandleFunc("GET /api/arp/me", s.neighborsForCaller)
	mux.HandleFunc("GET /api/status", s.status)
	mux.HandleFunc("GET /api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s", r.URL.Path))
	})

	if s.options.FrontendDir != "" {
		mux.Handle("GET /", frontend(s.options.FrontendDir))
	}
	return mux
}

// Serve accepts connections on l until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()
	gologger.Info().Msgf("listening on http://%s", l.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	gologger.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}
