// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"

	"github.com/shineum/photoreport/internal/email"
)

// Provider is the interface that email delivery backends must implement.
// A provider opens one Session per run; the session submits the same
// prebuilt message once per recipient.
type Provider interface {
	// Open establishes an authenticated session with the backend.
	Open(ctx context.Context) (Session, error)

	// Name returns the human-readable name of this provider.
	Name() string
}

// Session is an open connection to a delivery backend.
type Session interface {
	// Submit delivers msg to the single address to, using from as the
	// envelope sender.
	Submit(ctx context.Context, from, to string, msg *email.Message) error

	// Close releases the session. It must be called on every exit path.
	Close() error
}
