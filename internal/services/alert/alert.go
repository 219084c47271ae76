// Package alert реализует сервис аудита безопасности: события пишутся
// в журнал аудита и дублируются в очередь оповещений.
package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/resume-billing/internal/lib/sl"
	"github.com/magabrotheeeer/resume-billing/internal/models"
)

// Ключи маршрутизации для обменника оповещений.
const (
	routingKeySecurity  = "security"
	routingKeyException = "exception"
)

// Repository определяет контракт для хранения событий безопасности.
type Repository interface {
	SaveSecurityEvent(ctx context.Context, alert models.SecurityAlert) error
}

// QueuePublisher определяет контракт для публикации оповещений в очередь.
type QueuePublisher interface {
	Publish(routingKey string, message any) error
}

// Service - сервис аудита. Запись события никогда не должна сорвать
// обработку исходного запроса, поэтому ошибки логируются и не возвращаются.
type Service struct {
	repo      Repository
	publisher QueuePublisher
	log       *slog.Logger
}

// New создает Service.
func New(repo Repository, publisher QueuePublisher, log *slog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, log: log}
}

// SecurityAlert фиксирует попытку подделки подписи webhook-запроса.
func (s *Service) SecurityAlert(ctx context.Context, clientID string, details map[string]string) {
	const op = "alert.SecurityAlert"
	log := s.log.With(slog.String("op", op), slog.String("client_id", clientID))

	event := models.SecurityAlert{
		Severity:  models.SeverityWarning,
		EventType: models.AlertSignatureFailure,
		ClientID:  clientID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	s.record(ctx, log, event, routingKeySecurity)
}

// Exception фиксирует необработанную ошибку фоновой сверки.
func (s *Service) Exception(ctx context.Context, stage string, err error) {
	const op = "alert.Exception"
	log := s.log.With(slog.String("op", op), slog.String("stage", stage))

	event := models.SecurityAlert{
		Severity:  models.SeverityCritical,
		EventType: models.AlertException,
		Details: map[string]string{
			"stage": stage,
			"error": err.Error(),
		},
		CreatedAt: time.Now().UTC(),
	}
	s.record(ctx, log, event, routingKeyException)
}

func (s *Service) record(ctx context.Context, log *slog.Logger, event models.SecurityAlert, routingKey string) {
	if err := s.repo.SaveSecurityEvent(ctx, event); err != nil {
		log.Error("failed to save security event", sl.Err(err))
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, event); err != nil {
		log.Error("failed to publish security event", sl.Err(err))
	}
}
