// Package auth provides bearer tokens for the storage and retrieval backends.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/mail2shivb/fileupload/internal/core/domain"
	"github.com/mail2shivb/fileupload/internal/core/ports/driven"
	"github.com/mail2shivb/fileupload/internal/logger"
)

// Ensure CredentialManager implements the token provider interfaces.
var (
	_ driven.TokenProvider    = (*CredentialManager)(nil)
	_ driven.TokenInvalidator = (*CredentialManager)(nil)
)

// Default configuration values.
const (
	DefaultRefreshBuffer  = 5 * time.Minute
	DefaultAcquireTimeout = 30 * time.Second
)

// ErrClosed is returned by GetToken after Close.
var ErrClosed = errors.New("credential manager closed")

// TokenFetcher performs one token acquisition for a scope.
type TokenFetcher interface {
	FetchToken(ctx context.Context, scope string) (*oauth2.Token, error)
}

// ClientCredentialsFetcher acquires app-only tokens with the OAuth2
// client-credentials grant.
type ClientCredentialsFetcher struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewClientCredentialsFetcher creates a fetcher for the tenant configured in g.
func NewClientCredentialsFetcher(g domain.GraphSettings, httpClient *http.Client) *ClientCredentialsFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultAcquireTimeout}
	}
	return &ClientCredentialsFetcher{
		tokenURL:     g.TokenURL(),
		clientID:     g.ClientID,
		clientSecret: g.ClientSecret,
		httpClient:   httpClient,
	}
}

// FetchToken requests a token for scope from the token endpoint.
func (f *ClientCredentialsFetcher) FetchToken(ctx context.Context, scope string) (*oauth2.Token, error) {
	cfg := clientcredentials.Config{
		ClientID:     f.clientID,
		ClientSecret: f.clientSecret,
		TokenURL:     f.tokenURL,
		Scopes:       []string{scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	return cfg.Token(ctx)
}

// Config tunes a CredentialManager. Zero values select the defaults.
type Config struct {
	// RefreshBuffer treats tokens expiring within this window as expired.
	RefreshBuffer time.Duration

	// AcquireTimeout bounds one shared acquisition, independent of callers.
	AcquireTimeout time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// CredentialManager caches one bearer token per scope and collapses
// concurrent refreshes of the same scope into a single acquisition.
type CredentialManager struct {
	fetcher        TokenFetcher
	refreshBuffer  time.Duration
	acquireTimeout time.Duration
	now            func() time.Time
	log            *slog.Logger

	mu     sync.RWMutex
	tokens map[string]*domain.CachedToken
	closed bool

	group singleflight.Group
}

// NewCredentialManager creates a credential manager backed by fetcher.
func NewCredentialManager(fetcher TokenFetcher, cfg Config) *CredentialManager {
	if cfg.RefreshBuffer <= 0 {
		cfg.RefreshBuffer = DefaultRefreshBuffer
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CredentialManager{
		fetcher:        fetcher,
		refreshBuffer:  cfg.RefreshBuffer,
		acquireTimeout: cfg.AcquireTimeout,
		now:            cfg.Now,
		log:            logger.For("auth"),
		tokens:         make(map[string]*domain.CachedToken),
	}
}

// GetToken returns a valid access token for scope, acquiring one if the
// cached token is missing, expired or about to expire.
func (m *CredentialManager) GetToken(ctx context.Context, scope string) (string, error) {
	// Fast path: check cache with read lock
	if token, ok, err := m.cached(scope); err != nil || ok {
		return token, err
	}

	if err := ctx.Err(); err != nil {
		return "", &domain.AuthError{Scope: scope, Err: err}
	}

	// Slow path: one acquisition per scope, shared by every waiting caller.
	// The acquisition outlives a cancelled caller so the others still get a token.
	detached := context.WithoutCancel(ctx)
	ch := m.group.DoChan(scope, func() (any, error) {
		return m.acquire(detached, scope)
	})

	select {
	case <-ctx.Done():
		return "", &domain.AuthError{Scope: scope, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			var authErr *domain.AuthError
			if errors.As(res.Err, &authErr) {
				return "", authErr
			}
			return "", &domain.AuthError{Scope: scope, Err: res.Err}
		}
		return res.Val.(*domain.CachedToken).AccessToken, nil
	}
}

func (m *CredentialManager) cached(scope string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, &domain.AuthError{Scope: scope, Err: ErrClosed}
	}
	if t := m.tokens[scope]; t.Valid(m.now(), m.refreshBuffer) {
		return t.AccessToken, true, nil
	}
	return "", false, nil
}

// acquire runs inside the single-flight group for scope.
func (m *CredentialManager) acquire(ctx context.Context, scope string) (*domain.CachedToken, error) {
	// Double-check: a flight that finished just before this one may have
	// refreshed the token already.
	m.mu.RLock()
	if t := m.tokens[scope]; t.Valid(m.now(), m.refreshBuffer) {
		m.mu.RUnlock()
		return t, nil
	}
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, m.acquireTimeout)
	defer cancel()

	m.log.Debug("acquiring token", slog.String("scope", scope))
	tok, err := m.fetcher.FetchToken(ctx, scope)
	if err != nil {
		m.log.Warn("token acquisition failed", slog.String("scope", scope), slog.Any("error", err))
		return nil, &domain.AuthError{Scope: scope, Err: err}
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, &domain.AuthError{Scope: scope, Err: errors.New("token endpoint returned no access token")}
	}

	cached := &domain.CachedToken{
		Scope:       scope,
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, &domain.AuthError{Scope: scope, Err: ErrClosed}
	}
	m.tokens[scope] = cached
	m.log.Debug("token cached", slog.String("scope", scope), slog.Time("expiry", tok.Expiry))
	return cached, nil
}

// Invalidate drops the cached token for scope so the next call re-acquires.
func (m *CredentialManager) Invalidate(scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, scope)
}

// Close drops every cached token. Later GetToken calls fail with ErrClosed.
func (m *CredentialManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.tokens = make(map[string]*domain.CachedToken)
	return nil
}
