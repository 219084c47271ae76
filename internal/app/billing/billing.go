// Package billing собирает биллинговый сервис: хранилище, кеш, очередь
// оповещений, клиент провайдера, пул фоновой сверки и HTTP-сервер.
package billing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/resume-billing/internal/cache"
	"github.com/magabrotheeeer/resume-billing/internal/config"
	"github.com/magabrotheeeer/resume-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/resume-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/resume-billing/internal/lib/sl"
	"github.com/magabrotheeeer/resume-billing/internal/lib/workerpool"
	"github.com/magabrotheeeer/resume-billing/internal/migrations"
	"github.com/magabrotheeeer/resume-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/resume-billing/internal/ratelimit"
	alertservice "github.com/magabrotheeeer/resume-billing/internal/services/alert"
	reconcileservice "github.com/magabrotheeeer/resume-billing/internal/services/reconcile"
	"github.com/magabrotheeeer/resume-billing/internal/storage/repository"
)

// App - собранный биллинговый сервис.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	pool   *workerpool.Pool

	amqpConn *amqp.Connection
	amqpCh   *amqp.Channel
}

// New инициализирует все зависимости и возвращает готовый к запуску App.
// Отсутствие RabbitMQ в конфиге не фатально: оповещения тогда идут
// только в журнал аудита.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	app := &App{logger: logger, db: db}

	var publisher *rabbitmq.Publisher
	if cfg.RabbitConnection.URL != "" {
		conn, ch, err := rabbitmq.Connect(cfg.RabbitConnection.URL, cfg.RabbitConnection.Exchange)
		if err != nil {
			return nil, err
		}
		app.amqpConn = conn
		app.amqpCh = ch
		publisher = rabbitmq.NewPublisher(ch, cfg.RabbitConnection.Exchange)
	} else {
		logger.Warn("rabbitmq url is empty, alerts will not be published")
	}

	providerClient := paymentprovider.NewClient(cfg.PaymentProvider.APIKey,
		cfg.PaymentProvider.APIBaseURL, cfg.PaymentProvider.RequestTimeout)

	alerts := alertservice.New(db, publisherOrNil(publisher), logger)
	reconciler := reconcileservice.New(db, providerClient, cacheRedis, alerts, logger)

	app.pool = workerpool.New(logger, cfg.WorkerPool.Workers, cfg.WorkerPool.QueueSize)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)
	gate := ratelimit.NewSlidingWindow(cfg.RateLimit.Requests, cfg.RateLimit.Window)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, reconciler, alerts, db, app.pool, jwtMaker, gate)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// publisherOrNil прячет типизированный nil за интерфейсом.
func publisherOrNil(p *rabbitmq.Publisher) alertservice.QueuePublisher {
	if p == nil {
		return nil
	}
	return p
}

// Run запускает HTTP-сервер и блокируется до отмены контекста.
// При остановке сперва закрывается сервер, затем дорабатывает пул сверки.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close(ctx)
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close(timeoutCtx)
		return err
	}
}

func (a *App) close(ctx context.Context) {
	if err := a.pool.Shutdown(ctx); err != nil {
		a.logger.Error("worker pool shutdown timed out", sl.Err(err))
	}
	if a.amqpCh != nil {
		_ = a.amqpCh.Close()
	}
	if a.amqpConn != nil {
		_ = a.amqpConn.Close()
	}
	_ = a.db.DB.Close()
}
