// Package ses implements a Provider that submits messages through AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/photoreport/internal/email"
	"github.com/shineum/photoreport/internal/provider"
)

// Config holds the settings for creating a Provider.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Provider sends raw MIME messages via the SES v2 API.
type Provider struct {
	client SendEmailAPI
}

// New creates a Provider. Static credentials are used when both keys are
// set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(sesv2.NewFromConfig(awsCfg)), nil
}

// NewWithClient creates a Provider with a custom client, used for testing.
func NewWithClient(client SendEmailAPI) *Provider {
	return &Provider{client: client}
}

// Open returns a session. SES is stateless so no connection is made.
func (p *Provider) Open(ctx context.Context) (provider.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &session{client: p.client}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "ses"
}

type session struct {
	client SendEmailAPI
}

// Submit makes one SendEmail call whose only destination is to.
func (s *session) Submit(ctx context.Context, from, to string, msg *email.Message) error {
	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("failed to render message: %w", err)
	}

	out, err := s.client.SendEmail(ctx, buildInput(from, to, raw))
	if err != nil {
		return fmt.Errorf("SES send to %s: %w", to, err)
	}

	slog.Debug("SES accepted message", "recipient", to, "message_id", aws.ToString(out.MessageId))
	return nil
}

func (s *session) Close() error {
	return nil
}

// buildInput wraps a rendered message. The To header inside raw lists every
// recipient; Destination restricts delivery to the one address.
func buildInput(from, to string, raw []byte) *sesv2.SendEmailInput {
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{
				Data: raw,
			},
		},
	}
}
