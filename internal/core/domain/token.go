package domain

import "time"

// CachedToken is a bearer token cached for one audience scope.
type CachedToken struct {
	// Scope is the audience the token was issued for.
	Scope string

	// AccessToken is the bearer token string.
	AccessToken string

	// Expiry is when the backend stops accepting the token.
	// A zero Expiry means the backend did not report one.
	Expiry time.Time
}

// Valid reports whether the token can still be used at now, treating
// tokens that expire within buffer as already expired.
func (t *CachedToken) Valid(now time.Time, buffer time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.Expiry.IsZero() {
		return true
	}
	return now.Add(buffer).Before(t.Expiry)
}
