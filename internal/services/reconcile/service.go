// Package reconcile реализует сверку состояния биллинга по webhook-событиям
// платежного провайдера: дедупликацию через журнал, открытие прав после
// разовой покупки, синхронизацию зеркала подписки и запись чеков.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/resume-billing/internal/lib/sl"
	"github.com/magabrotheeeer/resume-billing/internal/metrics"
	"github.com/magabrotheeeer/resume-billing/internal/models"
	"github.com/magabrotheeeer/resume-billing/internal/paymentprovider"
)

// ErrMissingSubject - у оплаченной сессии не удалось определить пользователя.
// Повтор не поможет, событие остается заявленным в журнале.
var ErrMissingSubject = errors.New("checkout session carries no user reference")

const mirrorCacheTTL = 5 * time.Minute

// receiptStatusSucceeded - статус payment intent оплаченной сессии.
const receiptStatusSucceeded = "succeeded"

// Repository определяет контракт хранилища биллинга.
type Repository interface {
	TryClaimEvent(ctx context.Context, entry models.LedgerEntry) (bool, error)
	UpsertEntitlement(ctx context.Context, userUID, customerID string) error
	ReadEntitlement(ctx context.Context, userUID string) (*models.UserEntitlement, error)
	UpsertSubscriptionMirror(ctx context.Context, m models.SubscriptionMirror) error
	ReadSubscriptionMirror(ctx context.Context, customerID string) (*models.SubscriptionMirror, error)
	SaveReceipt(ctx context.Context, receipt models.PaymentReceipt) (int64, error)
	ListReceipts(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentReceipt, error)
}

// ProviderClient определяет контракт клиента API платежного провайдера.
type ProviderClient interface {
	GetCheckoutSession(ctx context.Context, sessionID string) (*paymentprovider.CheckoutSession, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]*paymentprovider.Subscription, error)
}

// Cache определяет контракт кеша чтения зеркала подписки.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// AlertSink принимает уведомления о необработанных ошибках сверки.
type AlertSink interface {
	Exception(ctx context.Context, stage string, err error)
}

// Service - сервис сверки биллинга.
type Service struct {
	repo     Repository
	provider ProviderClient
	cache    Cache
	alerts   AlertSink
	log      *slog.Logger
}

// New создает Service.
func New(repo Repository, provider ProviderClient, cache Cache, alerts AlertSink, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		cache:    cache,
		alerts:   alerts,
		log:      log,
	}
}

// ProcessEvent обрабатывает одно webhook-событие: заявляет его в журнале
// и выполняет выбранное маршрутизацией действие. Повторная доставка
// уже заявленного события завершается без побочных эффектов.
func (s *Service) ProcessEvent(ctx context.Context, event paymentprovider.Event) error {
	const op = "reconcile.ProcessEvent"
	log := s.log.With(
		slog.String("op", op),
		slog.String("provider_event_id", event.ID),
		slog.String("event_type", event.Type),
	)

	decision, err := routeEvent(event)
	if err != nil {
		return s.fail(ctx, log, "route", err)
	}

	// Заявка в журнале идет до проверки действия: нерелевантные события
	// тоже оставляют запись, их повторные доставки гасятся так же.
	entry := models.LedgerEntry{
		ProviderEventID: event.ID,
		EventType:       event.Type,
		CustomerID:      decision.customerID(),
	}
	if decision.session != nil {
		entry.Metadata = decision.session.Metadata
	}
	claimed, err := s.repo.TryClaimEvent(ctx, entry)
	if err != nil {
		return s.fail(ctx, log, "ledger", err)
	}
	if !claimed {
		log.Info("event already claimed, skipping redelivery")
		metrics.WebhookEvents.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return nil
	}

	if decision.action == ActionIgnore {
		log.Info("event claimed, no reconciliation required")
		return nil
	}

	switch decision.action {
	case ActionUnlockExport:
		return s.fulfillCheckout(ctx, log, decision.session)
	case ActionSyncSubscription:
		return s.syncSubscription(ctx, log, decision.customerID())
	}
	return nil
}

// fulfillCheckout открывает право на экспорт и записывает чек
// по оплаченной разовой сессии.
func (s *Service) fulfillCheckout(ctx context.Context, log *slog.Logger, session *paymentprovider.CheckoutSession) error {
	userUID, err := s.resolveUser(ctx, session)
	if err != nil {
		return s.fail(ctx, log, "resolve_user", err)
	}
	log = log.With(slog.String("user_uid", userUID))

	customerID := session.Customer.ID
	if err := s.repo.UpsertEntitlement(ctx, userUID, customerID); err != nil {
		return s.fail(ctx, log, "entitlement", err)
	}
	log.Info("export unlocked")

	// Чек пишется только после успешного открытия прав: при сбое чека
	// пользователь уже получил оплаченное. Статус чека - статус платежа,
	// а не payment_status сессии.
	receipt := models.PaymentReceipt{
		UserID:            userUID,
		CustomerID:        customerID,
		PaymentIntentID:   session.PaymentIntent.ID,
		CheckoutSessionID: session.ID,
		Amount:            session.AmountTotal,
		Currency:          session.Currency,
		Status:            receiptStatusSucceeded,
	}
	if _, err := s.repo.SaveReceipt(ctx, receipt); err != nil {
		return s.fail(ctx, log, "receipt", err)
	}
	return nil
}

// resolveUser определяет пользователя оплаченной сессии: сперва по полям
// самого события, затем повторным запросом сессии у провайдера.
func (s *Service) resolveUser(ctx context.Context, session *paymentprovider.CheckoutSession) (string, error) {
	const op = "reconcile.resolveUser"

	if session.ClientReferenceID != "" {
		return session.ClientReferenceID, nil
	}
	if uid := session.Metadata["user_id"]; uid != "" {
		return uid, nil
	}

	fetched, err := s.provider.GetCheckoutSession(ctx, session.ID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if fetched.ClientReferenceID != "" {
		return fetched.ClientReferenceID, nil
	}
	if uid := fetched.Metadata["user_id"]; uid != "" {
		return uid, nil
	}
	return "", fmt.Errorf("%s: %w", op, ErrMissingSubject)
}

// syncSubscription перечитывает подписки клиента у провайдера и полностью
// перезаписывает локальное зеркало (last-fetch-wins).
func (s *Service) syncSubscription(ctx context.Context, log *slog.Logger, customerID string) error {
	if customerID == "" {
		log.Warn("subscription event without customer, nothing to sync")
		return nil
	}
	log = log.With(slog.String("customer_id", customerID))

	subs, err := s.provider.ListSubscriptions(ctx, customerID)
	if err != nil {
		return s.fail(ctx, log, "provider", err)
	}

	mirror := models.SubscriptionMirror{
		CustomerID: customerID,
		Status:     models.SubscriptionNotStarted,
	}
	if len(subs) > 0 {
		mirror = mirrorFromSubscription(customerID, subs[0])
	}
	if err := s.repo.UpsertSubscriptionMirror(ctx, mirror); err != nil {
		return s.fail(ctx, log, "mirror", err)
	}
	log.Info("subscription mirror updated", slog.String("status", mirror.Status))

	if s.cache != nil {
		if err := s.cache.Invalidate(mirrorCacheKey(customerID)); err != nil {
			log.Warn("failed to invalidate mirror cache", sl.Err(err))
		}
	}
	return nil
}

// mirrorFromSubscription переводит подписку провайдера в строку зеркала.
func mirrorFromSubscription(customerID string, sub *paymentprovider.Subscription) models.SubscriptionMirror {
	mirror := models.SubscriptionMirror{
		CustomerID:        customerID,
		SubscriptionID:    sub.ID,
		Status:            sub.Status,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodStart > 0 {
		start := time.Unix(sub.CurrentPeriodStart, 0).UTC()
		mirror.CurrentPeriodStart = &start
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		mirror.CurrentPeriodEnd = &end
	}
	if len(sub.Items.Data) > 0 {
		mirror.PriceID = sub.Items.Data[0].Price.ID
	}
	if sub.DefaultPaymentMethod != nil && sub.DefaultPaymentMethod.Card != nil {
		mirror.PaymentMethodBrand = sub.DefaultPaymentMethod.Card.Brand
		mirror.PaymentMethodLast4 = sub.DefaultPaymentMethod.Card.Last4
	}
	return mirror
}

// BillingStatus собирает права и зеркало подписки пользователя.
// Зеркало читается через кеш.
func (s *Service) BillingStatus(ctx context.Context, userUID string) (*models.BillingStatus, error) {
	const op = "reconcile.BillingStatus"

	entitlement, err := s.repo.ReadEntitlement(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	status := &models.BillingStatus{Entitlement: entitlement}
	if entitlement == nil || entitlement.StripeCustomerID == "" {
		return status, nil
	}

	customerID := entitlement.StripeCustomerID
	key := mirrorCacheKey(customerID)
	if s.cache != nil {
		var cached models.SubscriptionMirror
		found, err := s.cache.Get(key, &cached)
		if err != nil {
			s.log.Warn("failed to read mirror cache", sl.Err(err))
		}
		if found {
			status.Subscription = &cached
			return status, nil
		}
	}

	mirror, err := s.repo.ReadSubscriptionMirror(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	status.Subscription = mirror

	if s.cache != nil && mirror != nil {
		if err := s.cache.Set(key, mirror, mirrorCacheTTL); err != nil {
			s.log.Warn("failed to cache subscription mirror", sl.Err(err))
		}
	}
	return status, nil
}

// ListReceipts возвращает страницу чеков пользователя.
func (s *Service) ListReceipts(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentReceipt, error) {
	const op = "reconcile.ListReceipts"
	receipts, err := s.repo.ListReceipts(ctx, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return receipts, nil
}

// fail логирует сбой стадии, поднимает счетчик и шлет оповещение.
func (s *Service) fail(ctx context.Context, log *slog.Logger, stage string, err error) error {
	log.Error("reconciliation failed", slog.String("stage", stage), sl.Err(err))
	metrics.ReconcileFailures.WithLabelValues(stage).Inc()
	if s.alerts != nil {
		s.alerts.Exception(ctx, stage, err)
	}
	return err
}

func mirrorCacheKey(customerID string) string {
	return "billing:mirror:" + customerID
}
