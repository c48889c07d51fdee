package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shineum/photoreport/internal/email"
	"github.com/shineum/photoreport/internal/provider"
)

const (
	defaultGraphURL = "https://graph.microsoft.com/v1.0"
	requestTimeout  = 30 * time.Second
)

// Config holds the app registration used for client-credentials login.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Provider sends mail as the sender's mailbox through the sendMail action.
type Provider struct {
	graphURL   string
	httpClient *http.Client
	token      *tokenCache
}

// New creates a Provider for the given tenant and app registration.
func New(cfg Config) *Provider {
	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", url.PathEscape(cfg.TenantID))
	return newWithOverrides(cfg, defaultGraphURL, tokenURL, &http.Client{Timeout: requestTimeout})
}

// newWithOverrides creates a Provider with custom endpoints, used for testing.
func newWithOverrides(cfg Config, graphURL, tokenURL string, client *http.Client) *Provider {
	return &Provider{
		graphURL:   graphURL,
		httpClient: client,
		token:      newTokenCache(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
	}
}

// Open acquires an access token so that credential problems surface before
// the first recipient is attempted.
func (p *Provider) Open(ctx context.Context) (provider.Session, error) {
	if _, err := p.token.Token(ctx); err != nil {
		return nil, fmt.Errorf("graph: failed to get access token: %w", err)
	}
	return &session{provider: p}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "graph"
}

type session struct {
	provider *Provider
}

// Submit posts one sendMail request whose only recipient is to.
func (s *session) Submit(ctx context.Context, from, to string, msg *email.Message) error {
	body, err := json.Marshal(buildSendMailRequest(to, msg))
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	if err := s.provider.post(ctx, from, body); err != nil {
		return fmt.Errorf("graph: send to %s: %w", to, err)
	}
	slog.Debug("Graph accepted message", "recipient", to)
	return nil
}

func (s *session) Close() error {
	return nil
}

func (p *Provider) post(ctx context.Context, from string, body []byte) error {
	token, err := p.token.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", p.graphURL, url.PathEscape(from))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	// sendMail answers 202 Accepted.
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return nil
	}

	raw, _ := io.ReadAll(resp.Body)
	return newAPIError(resp.StatusCode, raw)
}

// APIError is a non-success response from the Graph API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("Graph API error (HTTP %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.StatusCode, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		return &APIError{StatusCode: status, Code: er.Error.Code, Message: er.Error.Message}
	}
	return &APIError{StatusCode: status, Message: string(body)}
}
