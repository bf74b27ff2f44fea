package driven

import "context"

// TokenProvider provides bearer tokens for authenticated API calls.
// Implementations cache one token per scope and refresh it transparently.
type TokenProvider interface {
	// GetToken returns a valid access token for the given audience scope.
	// Failures are *domain.AuthError.
	GetToken(ctx context.Context, scope string) (string, error)
}

// TokenInvalidator is implemented by token providers that can drop a cached
// token a backend rejected, so the next GetToken acquires a fresh one.
type TokenInvalidator interface {
	Invalidate(scope string)
}
