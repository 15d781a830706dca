// Package lab runs a deliberately timing-leaky login endpoint to practice
// against and to test the attack end to end.
package lab

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// DefaultParam is the query parameter the password is read from
const DefaultParam = "password"

// Server is a local HTTP target that compares the submitted password one
// byte at a time, sleeping after each matching byte
type Server struct {
	secret string
	delay  time.Duration
	param  string
	addr   string

	listener   net.Listener
	httpServer *http.Server
}

// NewServer creates a lab target for secret. Each matching byte, and a
// matching length, costs delay.
func NewServer(secret string, delay time.Duration) *Server {
	return &Server{
		secret: secret,
		delay:  delay,
		param:  DefaultParam,
		addr:   "127.0.0.1:0",
	}
}

// Listen sets the listen address, "127.0.0.1:0" by default
func (s *Server) Listen(addr string) *Server {
	s.addr = addr
	return s
}

// Start starts serving in the background
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/login", s.handleLogin)

	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go s.httpServer.Serve(listener)

	return nil
}

// Stop shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown lab server: %w", err)
	}
	return nil
}

// URL returns the login endpoint, e.g. http://127.0.0.1:4242/login
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s/login", s.listener.Addr().String())
}

// Template returns the prefix and suffix around the password slot
func (s *Server) Template() (prefix, suffix string) {
	return s.URL() + "?" + s.param + "=", "&user=admin"
}

// handleLogin answers 200 for the right password and 403 otherwise
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	guess := r.URL.Query().Get(s.param)

	if !s.insecureCompare(guess) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprintln(w, "access denied")
		return
	}

	fmt.Fprintln(w, "welcome")
}

// insecureCompare does extra work for a guess of the right length, then
// compares byte by byte and returns at the first mismatch
func (s *Server) insecureCompare(guess string) bool {
	lengthOK := len(guess) == len(s.secret)
	if lengthOK {
		time.Sleep(s.delay)
	}

	for i := 0; i < len(guess) && i < len(s.secret); i++ {
		if guess[i] != s.secret[i] {
			return false
		}
		time.Sleep(s.delay)
	}
	return lengthOK
}
