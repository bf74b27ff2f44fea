package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mail2shivb/fileupload/internal/adapters/driven/resilience"
	"github.com/mail2shivb/fileupload/internal/core/domain"
	"github.com/mail2shivb/fileupload/internal/core/ports/driven"
)

// Ensure RetrievalClient implements the interface.
var _ driven.Retriever = (*RetrievalClient)(nil)

// RetrievalClient queries the retrieval API for passages of one drive item.
type RetrievalClient struct {
	client   *Client
	endpoint string
	scope    string
}

type retrievalRequest struct {
	Query string `json:"query"`
	KQL   string `json:"kql"`
	TopN  int    `json:"topN"`
}

type retrievalResponse struct {
	Chunks []domain.Chunk `json:"chunks"`
}

// NewRetrievalClient creates a RetrievalClient for the configured endpoint.
func NewRetrievalClient(client *Client, cfg domain.RetrievalSettings) (*RetrievalClient, error) {
	if client == nil {
		return nil, errors.New("graph: client is required")
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("graph: retrieval endpoint is %w", domain.ErrNotConfigured)
	}
	scope := cfg.Scope
	if scope == "" {
		scope = domain.DefaultGraphScope
	}
	return &RetrievalClient{client: client, endpoint: cfg.Endpoint, scope: scope}, nil
}

// Retrieve returns at most q.TopN chunks in backend relevance order.
// An empty result is valid. A zero TopN returns no chunks without a request.
func (r *RetrievalClient) Retrieve(ctx context.Context, q domain.RetrievalQuery) ([]domain.Chunk, error) {
	if q.TopN < 0 {
		return nil, fmt.Errorf("%w: topN must not be negative, got %d", domain.ErrInvalidInput, q.TopN)
	}
	if strings.TrimSpace(q.ScopeFilter) == "" {
		return nil, fmt.Errorf("%w: retrieval requires a scope filter", domain.ErrInvalidInput)
	}
	if q.TopN == 0 {
		return []domain.Chunk{}, nil
	}

	body := retrievalRequest{Query: q.Question, KQL: q.ScopeFilter, TopN: q.TopN}

	var resp retrievalResponse
	err := resilience.Do(ctx, r.client.retry, r.client.limiter, r.client.log, func(ctx context.Context) error {
		resp = retrievalResponse{}
		return r.client.postJSON(ctx, r.endpoint, r.scope, body, &resp)
	})
	if err != nil {
		return nil, &domain.RetrievalError{
			Kind:       domain.RetrievalQueryFailed,
			StatusCode: resilience.StatusCode(err),
			Err:        err,
		}
	}

	chunks := resp.Chunks
	if chunks == nil {
		chunks = []domain.Chunk{}
	}
	if len(chunks) > q.TopN {
		r.client.log.Debug("truncating over-returned chunks",
			slog.Int("returned", len(chunks)),
			slog.Int("top_n", q.TopN))
		chunks = chunks[:q.TopN]
	}

	r.client.log.Info("retrieval complete",
		slog.String("kql", q.ScopeFilter),
		slog.Int("chunks", len(chunks)))
	return chunks, nil
}
