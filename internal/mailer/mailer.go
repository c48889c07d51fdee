// Package mailer delivers one prebuilt message to a list of recipients.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shineum/photoreport/internal/email"
	"github.com/shineum/photoreport/internal/provider"
)

// Transmit opens a single session on prov and submits msg to each recipient
// in order, printing "Send to: <addr>" to out after every success. It stops
// at the first failure and returns the addresses already sent. The session
// is closed on every path.
func Transmit(ctx context.Context, prov provider.Provider, from string, recipients []string, msg *email.Message, out io.Writer) (sent []string, err error) {
	sess, err := prov.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: open session: %w", prov.Name(), err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			slog.Warn("failed to close session", "provider", prov.Name(), "error", cerr)
			err = errors.Join(err, cerr)
		}
	}()

	for _, to := range recipients {
		if err := sess.Submit(ctx, from, to, msg); err != nil {
			slog.Error("submission failed",
				"provider", prov.Name(),
				"recipient", to,
				"error", err,
			)
			return sent, fmt.Errorf("send to %s: %w", to, err)
		}
		sent = append(sent, to)
		slog.Debug("submission accepted", "provider", prov.Name(), "recipient", to)
		fmt.Fprintf(out, "Send to: %s\n", to)
	}
	return sent, nil
}
