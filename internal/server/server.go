package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Server wraps an *http.Server to provide start/shutdown lifecycle.
type Server struct {
	mu           sync.Mutex
	httpServer   *http.Server
	writeTimeout time.Duration
}

const (
	maxHeaderBytes      = 1 << 20 // 1 MB
	readHeaderTimeout   = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	idleTimeout         = 60 * time.Second
)

// New returns a server whose write timeout leaves headroom over the
// per-request deadline, so timed-out handlers can still answer.
func New(requestTimeout time.Duration) *Server {
	wt := defaultWriteTimeout
	if requestTimeout > 0 && requestTimeout+5*time.Second > wt {
		wt = requestTimeout + 5*time.Second
	}
	return &Server{writeTimeout: wt}
}

func (s *Server) newHTTPServer(addr string, handler http.Handler) *http.Server {
	wt := s.writeTimeout
	if wt <= 0 {
		wt = defaultWriteTimeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      wt,
		IdleTimeout:       idleTimeout,
	}
}

// normalizeAddr accepts "3000" or ":3000".
func normalizeAddr(port string) string {
	if port == "" || strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// Run listens on port and serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Run(port string, handler http.Handler) error {
	hs := s.install(normalizeAddr(port), handler)
	return ignoreClosed(hs.ListenAndServe())
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ln net.Listener, handler http.Handler) error {
	hs := s.install(ln.Addr().String(), handler)
	return ignoreClosed(hs.Serve(ln))
}

func (s *Server) install(addr string, handler http.Handler) *http.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.httpServer = s.newHTTPServer(addr, handler)
	return s.httpServer
}

// Shutdown gracefully stops the server, allowing in-flight requests to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	hs := s.httpServer
	s.mu.Unlock()
	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
