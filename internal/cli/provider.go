package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shineum/photoreport/internal/config"
	"github.com/shineum/photoreport/internal/provider"
	"github.com/shineum/photoreport/internal/provider/graph"
	"github.com/shineum/photoreport/internal/provider/mbox"
	"github.com/shineum/photoreport/internal/provider/ses"
	"github.com/shineum/photoreport/internal/provider/smtp"
	"github.com/shineum/photoreport/internal/provider/stdout"
	"github.com/shineum/photoreport/internal/tls"
)

// errMissingPassword is returned when SMTP delivery has no credential.
var errMissingPassword = errors.New("smtp provider requires a password (--password or SMTP_PASSWORD)")

// selectProvider builds the delivery backend named by cfg.Provider.
func selectProvider(ctx context.Context, cfg *config.Config, sender string, out io.Writer) (provider.Provider, error) {
	switch cfg.Provider {
	case "smtp":
		if cfg.SMTP.Password == "" {
			return nil, errMissingPassword
		}
		tlsConfig, err := tls.ClientConfig(cfg.SMTP.Host, cfg.SMTP.CAFile, cfg.SMTP.InsecureSkipVerify)
		if err != nil {
			return nil, fmt.Errorf("failed to setup TLS: %w", err)
		}
		slog.Info("using SMTP provider",
			"host", cfg.SMTP.Host,
			"port", cfg.SMTP.Port,
			"insecure_skip_verify", cfg.SMTP.InsecureSkipVerify,
		)
		return smtp.New(smtp.Config{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTPUsername(sender),
			Password:  cfg.SMTP.Password,
			TLSConfig: tlsConfig,
		}), nil

	case "ses":
		slog.Info("using AWS SES provider", "region", cfg.SES.Region)
		p, err := ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, nil

	case "graph":
		slog.Info("using Microsoft Graph provider", "tenant_id", cfg.Graph.TenantID)
		return graph.New(graph.Config{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
		}), nil

	case "mbox":
		slog.Info("using mbox provider", "path", cfg.Mbox.Path)
		return mbox.New(cfg.Mbox.Path), nil

	case "stdout":
		slog.Info("using stdout provider")
		return stdout.NewWithWriter(out), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
