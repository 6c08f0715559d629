package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// RouterOptions controls the construction of the reader API router.
// The zero value is valid: without a service only /health is mounted, and
// without Gate/Authz every route is reachable.
type RouterOptions struct {
	IAMService    identityService // Compile-time verified IAM service contract
	Logger        *logrus.Logger
	Gate          func(http.Handler) http.Handler
	Authz         func(http.Handler) http.Handler
	CORSOptions   *cors.Options
	Middleware    []func(http.Handler) http.Handler
	HealthHandler http.HandlerFunc
	ExtraRoutes   func(chi.Router)
}

// DefaultCORSOptions returns the development CORS policy for the reader web client.
func DefaultCORSOptions() cors.Options {
	return CORSOptionsFor([]string{"http://localhost:3000", "http://127.0.0.1:3000"})
}

// CORSOptionsFor builds the CORS policy for the given origins.
func CORSOptionsFor(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with the baseline middleware, the CORS
// policy, the authentication gate and the access policy stage, in that order,
// followed by the auth, user and admin handlers.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	// The gate populates the security context; the policy stage reads it.
	if opts.Gate != nil {
		r.Use(opts.Gate)
	}
	if opts.Authz != nil {
		r.Use(opts.Authz)
	}

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	if opts.IAMService != nil {
		MountIdentityHandlers(r, opts.IAMService, opts.Logger)
	} else if opts.Logger != nil {
		opts.Logger.Warn("IAM service not available; skipping /auth, /user and /admin routes")
	}

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r
}

// MountIdentityHandlers mounts the token issuance, self-service and
// administration endpoints.
func MountIdentityHandlers(r chi.Router, svc identityService, logger *logrus.Logger) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", HandleRegister(svc, logger))
		r.Post("/login", HandleLogin(svc, logger))
		r.Post("/refresh", HandleRefresh(svc, logger))
	})

	r.Route("/user", func(r chi.Router) {
		r.Get("/profile", HandleProfile(svc, logger))
		r.Put("/nickname", HandleRename(svc, logger))
		r.Put("/password", HandleChangePassword(svc, logger))
	})

	r.Route("/admin/users", func(r chi.Router) {
		r.Get("/", HandleListUsers(svc, logger))
		r.Put("/{id}/role", HandleSetRole(svc, logger))
		r.Delete("/{id}", HandleDeleteUser(svc, logger))
	})
}

// NewH2CHandler wraps the router with an h2c server to provide HTTP/2 over
// cleartext.
func NewH2CHandler(opts RouterOptions) http.Handler {
	return h2c.NewHandler(NewRouter(opts), &http2.Server{})
}
