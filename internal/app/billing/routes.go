// Package billing предоставляет маршруты биллингового сервиса.
package billing

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/resume-billing/internal/config"
	"github.com/magabrotheeeer/resume-billing/internal/http/handlers/billing/health"
	"github.com/magabrotheeeer/resume-billing/internal/http/handlers/billing/receipts"
	"github.com/magabrotheeeer/resume-billing/internal/http/handlers/billing/status"
	"github.com/magabrotheeeer/resume-billing/internal/http/handlers/billing/webhook"
	"github.com/magabrotheeeer/resume-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/resume-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/resume-billing/internal/lib/workerpool"
	"github.com/magabrotheeeer/resume-billing/internal/ratelimit"
	alertservice "github.com/magabrotheeeer/resume-billing/internal/services/alert"
	reconcileservice "github.com/magabrotheeeer/resume-billing/internal/services/reconcile"
	"github.com/magabrotheeeer/resume-billing/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(
	r chi.Router,
	logger *slog.Logger,
	cfg *config.Config,
	reconciler *reconcileservice.Service,
	alerts *alertservice.Service,
	db *repository.Storage,
	pool *workerpool.Pool,
	jwtMaker jwt.Maker,
	gate *ratelimit.SlidingWindow,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	webhookHandler := webhook.New(logger, reconciler, pool, alerts,
		cfg.PaymentProvider.WebhookSecret, cfg.PaymentProvider.SignatureTolerance)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.New(logger, db).ServeHTTP)

		// Webhook endpoint (без аутентификации, с окном допуска)
		r.Route("/billing/webhook", func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(gate, logger))
			r.Post("/", webhookHandler.ServeHTTP)
			r.Options("/", webhookHandler.Preflight)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Get("/billing/status", status.New(logger, reconciler).ServeHTTP)
			r.Get("/billing/receipts", receipts.New(logger, reconciler).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
