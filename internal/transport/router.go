package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pitabwire/sdui/internal/config"
	"github.com/pitabwire/sdui/internal/microapp"
	"github.com/pitabwire/sdui/internal/observability"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config    *config.Config
	Service   *microapp.Service
	Metrics   *observability.Metrics
	Readiness observability.ReadinessChecks
	Logger    *zap.Logger

	// Authenticate guards mutating routes. Nil builds a JWTAuthenticator
	// from Config.Identity.
	Authenticate func(http.Handler) http.Handler
}

// NewRouter creates a chi.Router with the middleware pipeline and all route
// registrations. Health, readiness, and metrics endpoints skip request
// logging and authentication.
func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Defaults()
	}
	auth := deps.Authenticate
	if auth == nil {
		auth = JWTAuthenticator(cfg.Identity)
	}

	r := chi.NewRouter()
	r.Use(Recovery(logger))
	r.Use(SecurityHeaders)

	r.Get("/health", observability.HandleHealth())
	r.Get("/ready", observability.HandleReady(deps.Readiness))
	if cfg.Observability.Metrics.Enabled {
		r.Handle(cfg.Observability.Metrics.Path, observability.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(observability.TracingMiddleware)
		if deps.Metrics != nil {
			r.Use(deps.Metrics.MetricsMiddleware)
		}
		r.Use(RequestID)
		r.Use(HandlerTimeout(cfg.Server.HandlerTimeout))
		r.Use(RequestLogging(logger))

		maxBytes := cfg.Server.MaxImportBytes
		svc := deps.Service

		r.Get("/microapps", handleListMicroapps(svc))
		r.Get("/microapps/{code}", handleGetMicroapp(svc))
		r.Post("/microapps/{code}/screens/{screenCode}/render", handleRenderScreen(svc, maxBytes, logger))

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/microapps", handleImportMicroapp(svc, maxBytes))
			r.Delete("/microapps/{code}", handleDeleteMicroapp(svc))
		})
	})

	return r
}
