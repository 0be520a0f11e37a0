package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jonwraymond/contractsig/auth"
	"github.com/jonwraymond/contractsig/editgate"
	"github.com/jonwraymond/contractsig/health"
	"github.com/jonwraymond/contractsig/observe"
)

// Options configures the router.
type Options struct {
	// Authenticator checks bearer tokens on /v1 routes. Nil disables
	// authentication.
	Authenticator auth.RequestAuthenticator

	Health *health.Aggregator
	Logger observe.Logger

	// RequestTimeout bounds each request. Default: 15s
	RequestTimeout time.Duration

	// MaxBodyBytes bounds mutation bodies. Default: 2 MiB
	MaxBodyBytes int64
}

// NewRouter creates the HTTP router over svc.
func NewRouter(svc *editgate.Service, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = observe.NopLogger()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 2 << 20
	}
	if opts.Health == nil {
		opts.Health = health.NewAggregator(0)
	}

	h := &handlers{svc: svc, maxBody: opts.MaxBodyBytes}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(opts.Logger.With(observe.Field{Key: "component", Value: "http"})))

	health.Mount(r, opts.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))
		r.Use(auth.Middleware(opts.Authenticator, func(w http.ResponseWriter, r *http.Request, err error) {
			writeError(w, r, http.StatusUnauthorized, CodeUnauthorized, err.Error())
		}))

		r.Route("/contracts/{contractID}", func(r chi.Router) {
			r.Get("/signatures", h.GetSignatures)
			r.Get("/edit-gate", h.GetEditGate)
			r.Put("/signatures/{role}", h.PutSignature)
			r.Delete("/signatures/{role}", h.DeleteSignature)
			r.Post("/cache/invalidate", h.PostInvalidate)
		})
		r.Delete("/cache", h.DeleteCache)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return r
}
