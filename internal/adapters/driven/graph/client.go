// Package graph provides the Microsoft Graph adapters: the upload-session
// client that stores documents in a drive and the retrieval client that
// searches passages scoped to one drive item.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mail2shivb/fileupload/internal/adapters/driven/resilience"
	"github.com/mail2shivb/fileupload/internal/core/ports/driven"
	"github.com/mail2shivb/fileupload/internal/logger"
)

// DefaultTimeout bounds a single Graph request.
const DefaultTimeout = 60 * time.Second

// Client sends authenticated JSON requests to Graph-style APIs.
// It is safe for concurrent use.
type Client struct {
	http    *http.Client
	tokens  driven.TokenProvider
	limiter *resilience.RateLimiter
	retry   resilience.Policy
	log     *slog.Logger
}

// ClientConfig holds the shared dependencies of the Graph adapters.
type ClientConfig struct {
	// HTTPClient performs requests. Defaults to a client with DefaultTimeout.
	HTTPClient *http.Client

	// Tokens supplies bearer tokens (required).
	Tokens driven.TokenProvider

	// Limiter throttles outbound requests. Optional.
	Limiter *resilience.RateLimiter

	// Retry bounds retries of transient failures.
	Retry resilience.Policy
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("graph: token provider is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		http:    cfg.HTTPClient,
		tokens:  cfg.Tokens,
		limiter: cfg.Limiter,
		retry:   cfg.Retry,
		log:     logger.For("graph"),
	}, nil
}

// postJSON sends body as JSON with a bearer token for scope and decodes a
// 2xx response into out. Non-2xx responses return *resilience.StatusError.
// A 401 evicts the token so the next request for scope acquires a new one.
func (c *Client) postJSON(ctx context.Context, url, scope string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	token, err := c.tokens.GetToken(ctx, scope)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	err = decodeResponse(resp, out)
	if resilience.StatusCode(err) == http.StatusUnauthorized {
		c.invalidate(scope)
	}
	return err
}

func (c *Client) invalidate(scope string) {
	inv, ok := c.tokens.(driven.TokenInvalidator)
	if !ok {
		return
	}
	c.log.Warn("token rejected, evicting", slog.String("scope", scope))
	inv.Invalidate(scope)
}

// decodeResponse decodes a 2xx JSON body into out, or returns a StatusError.
func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resilience.NewStatusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
