// Package mbox implements a Provider that appends every submission to a
// local mbox file instead of sending it.
package mbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"os"
	"time"

	"github.com/emersion/go-mbox"

	"github.com/shineum/photoreport/internal/email"
	"github.com/shineum/photoreport/internal/parser"
	"github.com/shineum/photoreport/internal/provider"
)

// deliveredTo is prepended to each stored copy to keep the envelope recipient.
const deliveredTo = "Delivered-To"

// Provider writes submissions to an mbox file.
type Provider struct {
	path string
	now  func() time.Time
}

// New creates a Provider appending to path. The file is created on first use.
func New(path string) *Provider {
	return &Provider{path: path, now: time.Now}
}

// Open opens the mailbox for appending.
func (p *Provider) Open(ctx context.Context) (provider.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0660)
	if err != nil {
		return nil, fmt.Errorf("mbox: open %s: %w", p.path, err)
	}

	slog.Debug("mbox session opened", "path", p.path)
	return &session{file: f, writer: mbox.NewWriter(f), now: p.now}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mbox"
}

type session struct {
	file   *os.File
	writer *mbox.Writer
	now    func() time.Time
}

// Submit stores one copy of msg addressed to to.
func (s *session) Submit(ctx context.Context, from, to string, msg *email.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w, err := s.writer.CreateMessage(from, s.now())
	if err != nil {
		return fmt.Errorf("mbox: start message for %s: %w", to, err)
	}
	if _, err := fmt.Fprintf(w, "%s: %s\r\n", deliveredTo, to); err != nil {
		return fmt.Errorf("mbox: write message for %s: %w", to, err)
	}
	if _, err := msg.WriteTo(w); err != nil {
		return fmt.Errorf("mbox: write message for %s: %w", to, err)
	}
	return nil
}

func (s *session) Close() error {
	return errors.Join(s.writer.Close(), s.file.Close())
}

// Delivery is one stored submission.
type Delivery struct {
	To      string
	Message *email.Message
}

// Read returns every submission stored in the mbox file at path, oldest first.
func Read(path string) ([]Delivery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mbox: open %s: %w", path, err)
	}
	defer f.Close()

	var deliveries []Delivery
	reader := mbox.NewReader(f)
	for {
		r, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return deliveries, fmt.Errorf("mbox: read %s: %w", path, err)
		}

		raw, err := io.ReadAll(r)
		if err != nil {
			return deliveries, fmt.Errorf("mbox: read %s: %w", path, err)
		}
		d, err := parseDelivery(raw)
		if err != nil {
			slog.Warn("skipping unreadable message", "path", path, "index", len(deliveries), "error", err)
			continue
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

func parseDelivery(raw []byte) (Delivery, error) {
	header, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return Delivery{}, err
	}
	msg, err := parser.Parse(raw)
	if err != nil {
		return Delivery{}, err
	}
	return Delivery{To: header.Header.Get(deliveredTo), Message: msg}, nil
}
