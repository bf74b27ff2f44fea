package graph

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mail2shivb/fileupload/internal/adapters/driven/resilience"
)

// mockTokenProvider returns a fixed token and records requested scopes.
type mockTokenProvider struct {
	mu          sync.Mutex
	token       string
	err         error
	scopes      []string
	invalidated []string
}

func (m *mockTokenProvider) Invalidate(scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, scope)
}

func (m *mockTokenProvider) Invalidated() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.invalidated...)
}

func (m *mockTokenProvider) GetToken(_ context.Context, scope string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopes = append(m.scopes, scope)
	if m.err != nil {
		return "", m.err
	}
	return m.token, nil
}

func (m *mockTokenProvider) Scopes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.scopes...)
}

// fastRetry retries quickly so tests stay fast.
func fastRetry(retries int) resilience.Policy {
	return resilience.Policy{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func newTestClient(t *testing.T, httpClient *http.Client, tokens *mockTokenProvider, retries int) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{
		HTTPClient: httpClient,
		Tokens:     tokens,
		Retry:      fastRetry(retries),
	})
	require.NoError(t, err)
	return c
}
