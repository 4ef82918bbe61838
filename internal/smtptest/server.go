// Package smtptest provides an in-process SMTP server that accepts mail over
// loopback and records every delivered message. It supports AUTH PLAIN/LOGIN,
// STARTTLS and implicit TLS.
package smtptest

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"
)

// shutdownTimeout bounds how long Close waits for in-flight sessions.
const shutdownTimeout = 5 * time.Second

// Config configures a test server.
type Config struct {
	// Hostname is announced in the greeting and EHLO response.
	Hostname string

	// Username and Password enable AUTH when either is set.
	Username string
	Password string

	// TLSConfig enables STARTTLS, or wraps the listener when ImplicitTLS is set.
	TLSConfig   *tls.Config
	ImplicitTLS bool

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// Envelope is one accepted message.
type Envelope struct {
	From string
	To   []string
	// Helo is the name the client greeted with.
	Helo string
	// TLS reports whether the message was sent over an encrypted connection.
	TLS  bool
	Data []byte
}

// Server is a running capture server.
type Server struct {
	config   Config
	auth     authenticator
	listener net.Listener
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	messages []Envelope
}

// Start listens on an ephemeral loopback port and serves in the background.
func Start(cfg Config) (*Server, error) {
	if cfg.Hostname == "" {
		cfg.Hostname = "localhost"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	if cfg.ImplicitTLS && cfg.TLSConfig != nil {
		ln = tls.NewListener(ln, cfg.TLSConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   cfg,
		auth:     authenticator{username: cfg.Username, password: cfg.Password},
		listener: ln,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	logger.Info("SMTP test server listening",
		"addr", ln.Addr().String(),
		"auth_enabled", s.auth.enabled(),
		"tls_enabled", cfg.TLSConfig != nil,
		"implicit_tls", cfg.ImplicitTLS,
	)

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Error("accept error", "error", err)
				return
			}
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			newSession(s, conn).handle(s.ctx)
		}()
	}
}

// Close stops accepting connections and waits for in-flight sessions.
func (s *Server) Close() error {
	s.cancel()
	err := s.listener.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		s.logger.Warn("shutdown timeout reached, abandoning sessions")
	}
	return err
}

// Addr returns the listener address as host:port.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Host returns the listener IP.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr())
	return host
}

// Port returns the listener port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.Addr())
	n, _ := strconv.Atoi(port)
	return n
}

// Messages returns a copy of the messages accepted so far.
func (s *Server) Messages() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Server) record(env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, env)
}
