package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/resume-billing/internal/models"
)

// UpsertSubscriptionMirror полностью перезаписывает зеркало подписки клиента.
// Частичные обновления не поддерживаются: провайдер - источник истины,
// прежнее содержимое строки вытесняется целиком.
func (s *Storage) UpsertSubscriptionMirror(ctx context.Context, m models.SubscriptionMirror) error {
	const op = "storage.UpsertSubscriptionMirror"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscription_mirrors
			      (customer_id, subscription_id, price_id, current_period_start, current_period_end,
			       cancel_at_period_end, status, payment_method_brand, payment_method_last4)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  ON CONFLICT (customer_id) DO UPDATE SET
			      subscription_id = EXCLUDED.subscription_id,
			      price_id = EXCLUDED.price_id,
			      current_period_start = EXCLUDED.current_period_start,
			      current_period_end = EXCLUDED.current_period_end,
			      cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			      status = EXCLUDED.status,
			      payment_method_brand = EXCLUDED.payment_method_brand,
			      payment_method_last4 = EXCLUDED.payment_method_last4`
	_, err := s.DB.ExecContext(ctx, query,
		m.CustomerID, nullString(m.SubscriptionID), nullString(m.PriceID),
		m.CurrentPeriodStart, m.CurrentPeriodEnd, m.CancelAtPeriodEnd,
		m.Status, nullString(m.PaymentMethodBrand), nullString(m.PaymentMethodLast4))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReadSubscriptionMirror возвращает зеркало подписки клиента или nil, если записи нет.
func (s *Storage) ReadSubscriptionMirror(ctx context.Context, customerID string) (*models.SubscriptionMirror, error) {
	const op = "storage.ReadSubscriptionMirror"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT customer_id, subscription_id, price_id, current_period_start, current_period_end,
			      cancel_at_period_end, status, payment_method_brand, payment_method_last4
			  FROM subscription_mirrors WHERE customer_id = $1`

	var result models.SubscriptionMirror
	var subscriptionID, priceID, pmBrand, pmLast4 sql.NullString
	var periodStart, periodEnd sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, customerID).Scan(
		&result.CustomerID, &subscriptionID, &priceID, &periodStart, &periodEnd,
		&result.CancelAtPeriodEnd, &result.Status, &pmBrand, &pmLast4)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result.SubscriptionID = subscriptionID.String
	result.PriceID = priceID.String
	if periodStart.Valid {
		result.CurrentPeriodStart = &periodStart.Time
	}
	if periodEnd.Valid {
		result.CurrentPeriodEnd = &periodEnd.Time
	}
	result.PaymentMethodBrand = pmBrand.String
	result.PaymentMethodLast4 = pmLast4.String
	return &result, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
