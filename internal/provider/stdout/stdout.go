// Package stdout implements a Provider that prints submissions instead of sending them.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shineum/photoreport/internal/email"
	"github.com/shineum/photoreport/internal/provider"
)

// Provider prints email messages in a human-readable format.
type Provider struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Open returns a session bound to the provider's writer.
func (p *Provider) Open(_ context.Context) (provider.Session, error) {
	return &session{writer: p.writer}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

type session struct {
	writer io.Writer
}

// Submit prints the envelope and a summary of the message.
func (s *session) Submit(_ context.Context, from, to string, msg *email.Message) error {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString(fmt.Sprintf("Envelope: %s -> %s\n", from, to))
	b.WriteString(fmt.Sprintf("From: %s\n", msg.From))
	b.WriteString(fmt.Sprintf("To: %s\n", msg.ToHeader()))
	b.WriteString(fmt.Sprintf("Subject: %s\n", msg.Subject))
	b.WriteString("Body:\n")
	b.WriteString(msg.TextBody + "\n")

	if len(msg.Attachments) > 0 {
		attachments := make([]string, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			attachments = append(attachments, fmt.Sprintf("%s (%s, %s)", att.Filename, att.ContentType, formatSize(len(att.Content))))
		}
		b.WriteString(fmt.Sprintf("Attachments: %s\n", strings.Join(attachments, ", ")))
	}

	b.WriteString("========================================\n")

	if _, err := fmt.Fprint(s.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write submission: %w", err)
	}
	return nil
}

func (s *session) Close() error {
	return nil
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
