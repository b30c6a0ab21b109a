// Package server assembles the HTTP surface: global middleware, the JWT
// protected marketplace routes and the API-key metered call gateway.
package server

import (
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/api-marketplace-gateway/internal/handler"
	"github.com/api-marketplace-gateway/internal/handler/supplier"
	"github.com/api-marketplace-gateway/internal/middleware"
	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/service"
)

type Deps struct {
	DB          handler.Pinger
	Version     string
	CORSOrigins []string
	// Sentry wraps every request in a Sentry hub. sentry.Init must have
	// been called.
	Sentry bool

	Verifier    middleware.TokenVerifier
	Attempts    *middleware.AttemptLimiter
	CallLimiter *middleware.CallRateLimiter

	Catalog       *service.CatalogService
	Subscriptions *service.SubscriptionService
	APIKeys       *service.APIKeyService
	Requests      *service.RequestLogService
	Gateway       *service.Gateway
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Observe)
	if d.Sentry {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true, Timeout: 2 * time.Second}).Handle)
	}
	r.Use(middleware.SecurityHeaders)
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", middleware.APIKeyHeader},
			ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			MaxAge:         300,
		}))
	}

	r.Method(http.MethodGet, "/health", handler.NewHealthHandler(d.DB, d.Version))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/apis", func(r chi.Router) {
		// Metered gateway. Authenticated by API key, not JWT, and the
		// body is forwarded as-is whatever its content type.
		// The handler answers 405 itself for verbs it does not forward.
		gw := handler.NewGatewayHandler(d.Gateway, d.CallLimiter, d.Attempts)
		r.Handle("/call/{apiID}/{version}", gw)
		r.Handle("/call/{apiID}/{version}/*", gw)

		// Public
		r.Method(http.MethodPost, "/webhook/chargily", handler.NewWebhookHandler(d.Subscriptions))
		r.Method(http.MethodGet, "/{id}/plans", handler.NewPlansHandler(d.Catalog))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireJSON)
			r.Use(middleware.UserAuth(d.Verifier, d.Attempts))

			// Suppliers
			r.With(middleware.RequireCapability(middleware.CapPublishAPI)).
				Method(http.MethodPost, "/create", supplier.NewCreateAPIHandler(d.Catalog))
			r.With(middleware.RequireCapability(middleware.CapPublishAPI)).
				Method(http.MethodPost, "/{id}/versions/create", supplier.NewCreateVersionHandler(d.Catalog))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(middleware.CapManageCatalog))
				r.Method(http.MethodPatch, "/{id}/activate", supplier.NewAPIStatusHandler(d.Catalog, model.APIActive))
				r.Method(http.MethodPatch, "/{id}/deactivate", supplier.NewAPIStatusHandler(d.Catalog, model.APIInactive))
				r.Method(http.MethodPatch, "/{id}/versions/{version}/activate", supplier.NewVersionStatusHandler(d.Catalog, model.VersionActive))
				r.Method(http.MethodPatch, "/{id}/versions/{version}/deactivate", supplier.NewVersionStatusHandler(d.Catalog, model.VersionSuspended))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(middleware.CapViewUsage))
				r.Method(http.MethodGet, "/subscriptions", handler.NewListSubscriptionsHandler(d.Subscriptions))
				r.Method(http.MethodGet, "/{id}/requests", supplier.NewRequestsHandler(d.Requests))
			})

			// Subscribers
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(middleware.CapSubscribe))
				r.Method(http.MethodPost, "/{id}/{plan}/chargily/checkout", handler.NewCheckoutHandler(d.Subscriptions))
				r.Method(http.MethodGet, "/subscriptions/mine", handler.NewListSubscriptionsHandler(d.Subscriptions))
				r.Method(http.MethodPost, "/subscriptions/{id}/api-keys/create", handler.NewCreateAPIKeyHandler(d.APIKeys))
				r.Method(http.MethodGet, "/subscriptions/{id}/api-keys", handler.NewListAPIKeysHandler(d.APIKeys))
				r.Method(http.MethodPatch, "/api-keys/activate", handler.NewAPIKeyStatusHandler(d.APIKeys, model.KeyActive))
				r.Method(http.MethodPatch, "/api-keys/deactivate", handler.NewAPIKeyStatusHandler(d.APIKeys, model.KeyInactive))
			})

			// Any role; visibility is decided by the service.
			r.Method(http.MethodGet, "/subscriptions/{id}", handler.NewGetSubscriptionHandler(d.Subscriptions))

			// Unmetered test calls for any signed-in user.
			try := handler.NewTryHandler(d.Gateway)
			r.Handle("/test/{apiID}/{version}", try)
			r.Handle("/test/{apiID}/{version}/*", try)
		})
	})

	return r
}
