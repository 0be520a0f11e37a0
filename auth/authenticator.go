package auth

import "net/http"

// RequestAuthenticator authenticates one HTTP request.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a request without usable credentials returns (nil, err) where err
//   wraps one of the package sentinels.
type RequestAuthenticator interface {
	AuthenticateRequest(r *http.Request) (*Identity, error)
}

// RequestAuthenticatorFunc adapts an ordinary function to RequestAuthenticator.
type RequestAuthenticatorFunc func(r *http.Request) (*Identity, error)

// AuthenticateRequest calls f(r).
func (f RequestAuthenticatorFunc) AuthenticateRequest(r *http.Request) (*Identity, error) {
	return f(r)
}
