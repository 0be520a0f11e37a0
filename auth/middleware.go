package auth

import "net/http"

// Middleware attaches the caller's identity to the request context.
//
// With a nil authenticator every request gets the anonymous identity. With
// one, requests that fail authentication are passed to onError and never
// reach next.
func Middleware(a RequestAuthenticator, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), AnonymousIdentity())))
				return
			}
			id, err := a.AuthenticateRequest(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
