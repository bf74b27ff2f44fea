// Package azureopenai provides the chat-completion adapter for Azure OpenAI
// deployments and OpenAI-compatible endpoints.
package azureopenai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mail2shivb/fileupload/internal/adapters/driven/resilience"
	"github.com/mail2shivb/fileupload/internal/core/domain"
	"github.com/mail2shivb/fileupload/internal/core/ports/driven"
	"github.com/mail2shivb/fileupload/internal/logger"
)

// Ensure CompletionClient implements the interface.
var _ driven.CompletionService = (*CompletionClient)(nil)

// Default configuration values.
const (
	DefaultTimeout = domain.DefaultCompletionTimeout
)

// Config holds configuration for the completion client.
type Config struct {
	// Settings selects the endpoint, deployment and key.
	Settings domain.CompletionSettings

	// HTTPClient performs requests. Defaults to a client with Settings.Timeout.
	HTTPClient *http.Client

	// Limiter throttles outbound requests. Optional.
	Limiter *resilience.RateLimiter

	// Retry bounds retries of transient failures.
	Retry resilience.Policy
}

// CompletionClient sends one grounded chat completion per question.
type CompletionClient struct {
	client  *http.Client
	url     string
	apiKey  string
	azure   bool
	model   string
	limiter *resilience.RateLimiter
	retry   resilience.Policy
	log     *slog.Logger
}

// chatCompletionRequest is the /chat/completions request format.
type chatCompletionRequest struct {
	Model    string               `json:"model,omitempty"`
	Messages []domain.ChatMessage `json:"messages"`
}

// chatCompletionResponse is the /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewCompletionClient creates a completion client.
func NewCompletionClient(cfg Config) (*CompletionClient, error) {
	s := cfg.Settings
	if strings.TrimSpace(s.Endpoint) == "" {
		return nil, fmt.Errorf("azureopenai: endpoint is %w", domain.ErrNotConfigured)
	}
	if s.APIKey == "" {
		return nil, fmt.Errorf("azureopenai: API key is %w", domain.ErrNotConfigured)
	}
	if !s.IsAzure() && s.Model == "" {
		return nil, fmt.Errorf("azureopenai: model is %w", domain.ErrNotConfigured)
	}
	if s.APIVersion == "" {
		s.APIVersion = domain.DefaultAPIVersion
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: s.Timeout}
	}

	endpoint := strings.TrimRight(s.Endpoint, "/")
	c := &CompletionClient{
		client:  cfg.HTTPClient,
		apiKey:  s.APIKey,
		azure:   s.IsAzure(),
		limiter: cfg.Limiter,
		retry:   cfg.Retry,
		log:     logger.For("completion"),
	}
	if c.azure {
		c.url = fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			endpoint, url.PathEscape(s.Deployment), url.QueryEscape(s.APIVersion))
		c.model = s.Deployment
	} else {
		c.url = endpoint + "/chat/completions"
		c.model = s.Model
	}
	return c, nil
}

// Complete asks question with chunks as the only permitted context and
// returns the content of the first choice.
func (c *CompletionClient) Complete(ctx context.Context, chunks []domain.Chunk, question string) (string, error) {
	reqBody := chatCompletionRequest{Messages: domain.GroundedPrompt(chunks, question)}
	if !c.azure {
		reqBody.Model = c.model
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", &domain.CompletionError{Kind: domain.CompletionRequestFailed, Err: fmt.Errorf("marshal request: %w", err)}
	}

	var chatResp chatCompletionResponse
	err = resilience.Do(ctx, c.retry, c.limiter, c.log, func(ctx context.Context) error {
		chatResp = chatCompletionResponse{}
		return c.send(ctx, jsonBody, &chatResp)
	})
	if err != nil {
		return "", &domain.CompletionError{
			Kind:       domain.CompletionRequestFailed,
			StatusCode: resilience.StatusCode(err),
			Err:        err,
		}
	}

	if len(chatResp.Choices) == 0 {
		return "", &domain.CompletionError{
			Kind: domain.CompletionNoChoices,
			Err:  errors.New("no response choices returned"),
		}
	}

	c.log.Info("completion received",
		slog.String("model", c.model),
		slog.Int("chunks", len(chunks)),
		slog.Int("total_tokens", chatResp.Usage.TotalTokens),
		slog.String("finish_reason", chatResp.Choices[0].FinishReason))
	return chatResp.Choices[0].Message.Content, nil
}

// send performs one request attempt.
func (c *CompletionClient) send(ctx context.Context, body []byte, out *chatCompletionResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.azure {
		req.Header.Set("api-key", c.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resilience.NewStatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	c.log.Debug("completion request finished", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// ModelName returns the deployment or model answering requests.
func (c *CompletionClient) ModelName() string {
	return c.model
}

// Close releases resources.
func (c *CompletionClient) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
