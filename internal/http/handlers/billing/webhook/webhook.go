// Package webhook реализует HTTP-обработчик приема webhook-уведомлений
// платежного провайдера.
//
// Handler читает сырое тело запроса, проверяет подпись, разбирает конверт
// события и передает его в фоновый пул на сверку. Ответ 200 означает только
// "доставка принята": сама сверка выполняется асинхронно.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/resume-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/resume-billing/internal/http/response"
	"github.com/magabrotheeeer/resume-billing/internal/lib/sl"
	"github.com/magabrotheeeer/resume-billing/internal/lib/workerpool"
	"github.com/magabrotheeeer/resume-billing/internal/metrics"
	"github.com/magabrotheeeer/resume-billing/internal/paymentprovider"
)

// Потолок размера тела webhook-запроса.
const maxBodyBytes = 1 << 20

// Таймаут одной фоновой сверки. Запросный контекст не используется:
// провайдер закрывает соединение сразу после ответа.
const taskTimeout = 30 * time.Second

// Reconciler описывает интерфейс сервиса сверки.
type Reconciler interface {
	ProcessEvent(ctx context.Context, event paymentprovider.Event) error
}

// TaskPool принимает фоновые задачи без блокировки.
type TaskPool interface {
	Submit(task workerpool.Task) bool
}

// AlertSink принимает уведомления о неудачных проверках подписи.
type AlertSink interface {
	SecurityAlert(ctx context.Context, clientID string, details map[string]string)
}

// Handler обрабатывает POST-запросы webhook-эндпоинта.
type Handler struct {
	log        *slog.Logger // Логгер для записи информации и ошибок
	reconciler Reconciler
	pool       TaskPool
	alerts     AlertSink
	secret     string        // Секрет для проверки подписи
	tolerance  time.Duration // Допустимый возраст отметки времени подписи
}

// New создает новый Handler.
func New(log *slog.Logger, reconciler Reconciler, pool TaskPool, alerts AlertSink, secret string, tolerance time.Duration) *Handler {
	return &Handler{
		log:        log,
		reconciler: reconciler,
		pool:       pool,
		alerts:     alerts,
		secret:     secret,
		tolerance:  tolerance,
	}
}

// ServeHTTP принимает одну webhook-доставку.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	clientID := middlewarectx.ClientID(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		metrics.WebhookEvents.WithLabelValues(metrics.OutcomeBadRequest).Inc()
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read request body"))
		return
	}
	defer func() { _ = r.Body.Close() }()

	sigHeader := r.Header.Get(paymentprovider.SignatureHeader)
	if err := paymentprovider.VerifySignature(body, sigHeader, h.secret, h.tolerance, time.Now()); err != nil {
		log.Error("webhook signature rejected", sl.Err(err), slog.String("client_id", clientID))
		h.alerts.SecurityAlert(r.Context(), clientID, map[string]string{
			"reason": err.Error(),
			"path":   r.URL.Path,
		})
		metrics.WebhookEvents.WithLabelValues(metrics.OutcomeRejectedSig).Inc()
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	event, err := paymentprovider.ParseEvent(body)
	if err != nil {
		log.Error("failed to parse webhook event", sl.Err(err))
		metrics.WebhookEvents.WithLabelValues(metrics.OutcomeBadRequest).Inc()
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("malformed event payload"))
		return
	}

	ev := *event
	accepted := h.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()
		_ = h.reconciler.ProcessEvent(ctx, ev)
	})
	if !accepted {
		log.Warn("task pool full, asking provider to redeliver",
			slog.String("provider_event_id", event.ID))
		metrics.PoolRejections.Inc()
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("busy, retry later"))
		return
	}

	log.Info("webhook accepted",
		slog.String("provider_event_id", event.ID),
		slog.String("event_type", event.Type))
	metrics.WebhookEvents.WithLabelValues(metrics.OutcomeAccepted).Inc()
	render.JSON(w, r, map[string]bool{"received": true})
}

// Preflight отвечает на OPTIONS-запросы провайдера.
func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+paymentprovider.SignatureHeader)
	w.WriteHeader(http.StatusNoContent)
}
