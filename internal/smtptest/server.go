// Package smtptest runs an in-process SMTP submission server that records
// every recipient attempt and every delivered message.
package smtptest

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/shineum/photoreport/internal/email"
	"github.com/shineum/photoreport/internal/parser"
	tlsutil "github.com/shineum/photoreport/internal/tls"
)

// shutdownTimeout bounds how long Close waits for open sessions.
const shutdownTimeout = 5 * time.Second

// Config controls the behavior of a test server.
type Config struct {
	// Hostname is announced in the greeting and EHLO reply.
	Hostname string

	// Username and Password enable AUTH PLAIN/LOGIN. When both are empty
	// clients may submit without logging in.
	Username string
	Password string

	// StartTLS advertises STARTTLS using a fresh self-signed certificate.
	StartTLS bool

	// Reject lists recipients that are refused at RCPT with a 550 reply.
	Reject []string
}

// Envelope is one accepted message together with its SMTP envelope.
type Envelope struct {
	From    string
	To      []string
	User    string
	Data    []byte
	Message *email.Message
}

// Login is one successful AUTH exchange.
type Login struct {
	User string
	TLS  bool
}

// Server is a listening test server. Create it with NewServer and stop it
// with Close.
type Server struct {
	config    Config
	creds     credentials
	tlsConfig *tls.Config
	certPEM   []byte
	reject    map[string]bool
	listener  net.Listener
	cancel    context.CancelFunc

	// wg tracks in-flight session goroutines.
	wg sync.WaitGroup

	mu        sync.Mutex
	attempts  []string
	logins    []Login
	envelopes []Envelope
}

// NewServer starts a server on a random loopback port.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Hostname == "" {
		cfg.Hostname = "localhost"
	}

	s := &Server{
		config: cfg,
		creds:  credentials{username: cfg.Username, password: cfg.Password},
		reject: make(map[string]bool, len(cfg.Reject)),
	}
	for _, addr := range cfg.Reject {
		s.reject[addr] = true
	}

	if cfg.StartTLS {
		tlsConfig, certPEM, err := tlsutil.ServerConfig()
		if err != nil {
			return nil, err
		}
		s.tlsConfig = tlsConfig
		s.certPEM = certPEM
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s.listener = ln

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	slog.Debug("test SMTP server listening",
		"addr", ln.Addr().String(),
		"auth_enabled", s.creds.required(),
		"tls_enabled", s.tlsConfig != nil,
	)

	go s.serve(ctx)
	return s, nil
}

func (s *Server) serve(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Error("accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			newSession(conn, s).handle(ctx)
		}()
	}
}

// Close stops accepting connections and waits for open sessions to end.
func (s *Server) Close() error {
	err := s.listener.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		slog.Warn("shutdown timeout reached, abandoning sessions")
	}
	s.cancel()
	return err
}

// Addr returns the listener address in host:port form.
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

// CertPEM returns the server certificate when StartTLS is enabled.
func (s *Server) CertPEM() []byte {
	return s.certPEM
}

// Attempts returns every RCPT address received, accepted or not, in order.
func (s *Server) Attempts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.attempts...)
}

// Logins returns every successful AUTH in order.
func (s *Server) Logins() []Login {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Login(nil), s.logins...)
}

func (s *Server) login(l Login) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins = append(s.logins, l)
}

// Envelopes returns the accepted messages in order of arrival.
func (s *Server) Envelopes() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Envelope(nil), s.envelopes...)
}

// recipient records an RCPT attempt and reports whether it is accepted.
func (s *Server) recipient(addr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, addr)
	return !s.reject[addr]
}

func (s *Server) deliver(env Envelope) error {
	msg, err := parser.Parse(env.Data)
	if err != nil {
		return err
	}
	env.Message = msg

	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = append(s.envelopes, env)
	return nil
}
