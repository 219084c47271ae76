// Package status реализует HTTP-обработчик для получения состояния биллинга
// текущего пользователя: права на экспорт и зеркало подписки.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/resume-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/resume-billing/internal/http/response"
	"github.com/magabrotheeeer/resume-billing/internal/lib/sl"
	"github.com/magabrotheeeer/resume-billing/internal/models"
)

// Service описывает интерфейс бизнес-логики чтения состояния биллинга.
type Service interface {
	BillingStatus(ctx context.Context, userUID string) (*models.BillingStatus, error)
}

// Handler обрабатывает запросы состояния биллинга.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP возвращает права и подписку пользователя из JWT-контекста.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.User).(string)
	if !ok || userUID == "" {
		log.Error("missing user uid in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	status, err := h.service.BillingStatus(r.Context(), userUID)
	if err != nil {
		log.Error("failed to read billing status", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read billing status"))
		return
	}

	log.Info("billing status served", slog.String("user_uid", userUID))
	render.JSON(w, r, response.OKWithData(status))
}
