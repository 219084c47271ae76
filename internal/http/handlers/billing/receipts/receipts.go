// Package receipts реализует HTTP-обработчик для постраничного списка
// чеков текущего пользователя.
package receipts

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/resume-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/resume-billing/internal/http/response"
	"github.com/magabrotheeeer/resume-billing/internal/lib/sl"
	"github.com/magabrotheeeer/resume-billing/internal/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service описывает интерфейс бизнес-логики чтения чеков.
type Service interface {
	ListReceipts(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentReceipt, error)
}

// Handler обрабатывает запросы списка чеков.
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

// ServeHTTP возвращает страницу чеков пользователя из JWT-контекста.
// Параметры limit и offset читаются из query-строки.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.receipts"

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

	limit, offset, err := parsePage(r)
	if err != nil {
		log.Error("invalid pagination params", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid limit or offset"))
		return
	}

	receipts, err := h.service.ListReceipts(r.Context(), userUID, limit, offset)
	if err != nil {
		log.Error("failed to list receipts", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list receipts"))
		return
	}

	log.Info("receipts served",
		slog.String("user_uid", userUID),
		slog.Int("count", len(receipts)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"receipts": receipts,
		"limit":    limit,
		"offset":   offset,
	}))
}

func parsePage(r *http.Request) (limit, offset int, err error) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, strconv.ErrSyntax
		}
		if limit > maxLimit {
			limit = maxLimit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, strconv.ErrSyntax
		}
	}
	return limit, offset, nil
}
