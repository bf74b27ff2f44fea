package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/mail2shivb/fileupload/internal/core/domain"
)

const testScope = "https://graph.microsoft.com/.default"

// fakeFetcher counts acquisitions and can block until released.
type fakeFetcher struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
	err     error
	expiry  func() time.Time
}

func (f *fakeFetcher) FetchToken(ctx context.Context, scope string) (*oauth2.Token, error) {
	n := f.calls.Add(1)
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	expiry := time.Now().Add(time.Hour)
	if f.expiry != nil {
		expiry = f.expiry()
	}
	return &oauth2.Token{
		AccessToken: scope + "#" + string(rune('0'+n)),
		Expiry:      expiry,
	}, nil
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCredentialManager_ReusesValidToken(t *testing.T) {
	clk := &clock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	fetcher := &fakeFetcher{expiry: func() time.Time { return clk.Now().Add(time.Hour) }}
	m := NewCredentialManager(fetcher, Config{Now: clk.Now})

	first, err := m.GetToken(context.Background(), testScope)
	require.NoError(t, err)

	clk.Advance(30 * time.Minute)
	second, err := m.GetToken(context.Background(), testScope)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestCredentialManager_ReacquiresAfterExpiry(t *testing.T) {
	clk := &clock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	fetcher := &fakeFetcher{expiry: func() time.Time { return clk.Now().Add(time.Hour) }}
	m := NewCredentialManager(fetcher, Config{Now: clk.Now})

	first, err := m.GetToken(context.Background(), testScope)
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	second, err := m.GetToken(context.Background(), testScope)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestCredentialManager_ReacquiresInsideRefreshBuffer(t *testing.T) {
	clk := &clock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	fetcher := &fakeFetcher{expiry: func() time.Time { return clk.Now().Add(time.Hour) }}
	m := NewCredentialManager(fetcher, Config{Now: clk.Now, RefreshBuffer: 5 * time.Minute})

	_, err := m.GetToken(context.Background(), testScope)
	require.NoError(t, err)

	// 57 minutes in, the token expires in 3 minutes: inside the buffer.
	clk.Advance(57 * time.Minute)
	_, err = m.GetToken(context.Background(), testScope)
	require.NoError(t, err)

	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestCredentialManager_CachesPerScope(t *testing.T) {
	fetcher := &fakeFetcher{}
	m := NewCredentialManager(fetcher, Config{})

	a, err := m.GetToken(context.Background(), "scope-a")
	require.NoError(t, err)
	b, err := m.GetToken(context.Background(), "scope-b")
	require.NoError(t, err)
	_, err = m.GetToken(context.Background(), "scope-a")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestCredentialManager_SingleFlight(t *testing.T) {
	fetcher := &fakeFetcher{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	m := NewCredentialManager(fetcher, Config{})

	const callers = 20
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.GetToken(context.Background(), testScope)
		}(i)
	}

	<-fetcher.started
	// Give the remaining callers time to join the in-flight acquisition.
	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, tokens[0], tokens[i])
	}
}

func TestCredentialManager_SharedFailure(t *testing.T) {
	cause := errors.New("AADSTS7000215: invalid client secret")
	fetcher := &fakeFetcher{
		err:     cause,
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	m := NewCredentialManager(fetcher, Config{})

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.GetToken(context.Background(), testScope)
		}(i)
	}
	<-fetcher.started
	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.calls.Load())
	for _, err := range errs {
		var authErr *domain.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, testScope, authErr.Scope)
		assert.ErrorIs(t, err, cause)
	}
}

func TestCredentialManager_FailureIsNotCached(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("network down")}
	m := NewCredentialManager(fetcher, Config{})

	_, err := m.GetToken(context.Background(), testScope)
	require.Error(t, err)

	fetcher.err = nil
	token, err := m.GetToken(context.Background(), testScope)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestCredentialManager_CallerCancellation(t *testing.T) {
	fetcher := &fakeFetcher{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	m := NewCredentialManager(fetcher, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := m.GetToken(ctx, testScope)
		errCh <- err
	}()

	<-fetcher.started
	cancel()

	err := <-errCh
	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, err, context.Canceled)

	// The shared acquisition keeps running and serves the next caller.
	close(fetcher.release)
	token, err := m.GetToken(context.Background(), testScope)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestCredentialManager_InvalidateAndClose(t *testing.T) {
	fetcher := &fakeFetcher{}
	m := NewCredentialManager(fetcher, Config{})

	_, err := m.GetToken(context.Background(), testScope)
	require.NoError(t, err)

	m.Invalidate(testScope)
	_, err = m.GetToken(context.Background(), testScope)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetcher.calls.Load())

	require.NoError(t, m.Close())
	_, err = m.GetToken(context.Background(), testScope)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClientCredentialsFetcher_FetchToken(t *testing.T) {
	var gotForm map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contoso/oauth2/v2.0/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "graph-token",
			"token_type":   "Bearer",
			"expires_in":   3599,
		})
	}))
	defer server.Close()

	fetcher := NewClientCredentialsFetcher(domain.GraphSettings{
		AuthorityHost: server.URL,
		TenantID:      "contoso",
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
	}, server.Client())

	tok, err := fetcher.FetchToken(context.Background(), testScope)

	require.NoError(t, err)
	assert.Equal(t, "graph-token", tok.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)
	assert.Equal(t, []string{"client_credentials"}, gotForm["grant_type"])
	assert.Equal(t, []string{"client-id"}, gotForm["client_id"])
	assert.Equal(t, []string{"client-secret"}, gotForm["client_secret"])
	assert.Equal(t, []string{testScope}, gotForm["scope"])
}

func TestClientCredentialsFetcher_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"bad secret"}`))
	}))
	defer server.Close()

	fetcher := NewClientCredentialsFetcher(domain.GraphSettings{
		AuthorityHost: server.URL,
		TenantID:      "contoso",
		ClientID:      "client-id",
		ClientSecret:  "wrong",
	}, server.Client())
	m := NewCredentialManager(fetcher, Config{})

	_, err := m.GetToken(context.Background(), testScope)

	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	var retrieveErr *oauth2.RetrieveError
	assert.ErrorAs(t, err, &retrieveErr)
}
