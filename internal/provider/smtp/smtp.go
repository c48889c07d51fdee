// Package smtp implements a Provider that submits mail to an SMTP server
// using STARTTLS and plain authentication. A server that does not offer
// STARTTLS is refused before any credential is sent.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"gopkg.in/mail.v2"

	"github.com/shineum/photoreport/internal/email"
	"github.com/shineum/photoreport/internal/provider"
)

// Config holds the submission server settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// TLSConfig is used for the STARTTLS upgrade. When nil the host's
	// system roots are trusted.
	TLSConfig *tls.Config
}

// Dialer opens an authenticated connection ready to send messages.
type Dialer interface {
	Dial() (mail.SendCloser, error)
}

// Provider delivers messages through an SMTP submission server.
type Provider struct {
	dialer Dialer
	addr   string
}

// New creates a Provider dialing cfg.Host:cfg.Port.
func New(cfg Config) *Provider {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = cfg.TLSConfig
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.RetryFailure = false
	return NewWithDialer(d, fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
}

// NewWithDialer creates a Provider with a custom Dialer.
// This is primarily used for testing.
func NewWithDialer(d Dialer, addr string) *Provider {
	return &Provider{dialer: d, addr: addr}
}

// Open connects, upgrades to TLS and logs in.
func (p *Provider) Open(ctx context.Context) (provider.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sc, err := p.dialer.Dial()
	if err != nil {
		return nil, fmt.Errorf("smtp: connect to %s: %w", p.addr, err)
	}

	slog.Debug("smtp session opened", "addr", p.addr)
	return &session{sender: sc, addr: p.addr}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "smtp"
}

type session struct {
	sender mail.SendCloser
	addr   string
}

// Submit runs one MAIL/RCPT/DATA transaction addressed to a single recipient.
func (s *session) Submit(ctx context.Context, from, to string, msg *email.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.sender.Send(from, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp: send to %s: %w", to, err)
	}
	return nil
}

func (s *session) Close() error {
	if err := s.sender.Close(); err != nil {
		return fmt.Errorf("smtp: close %s: %w", s.addr, err)
	}
	return nil
}
