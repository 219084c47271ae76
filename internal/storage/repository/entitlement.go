package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/resume-billing/internal/models"
)

// UpsertEntitlement открывает пользователю экспорт документов после разового
// платежа. Идемпотентный upsert по user_id: флаг всегда устанавливается в
// true и никогда не сбрасывается, отметка первого открытия сохраняется.
func (s *Storage) UpsertEntitlement(ctx context.Context, userUID, customerID string) error {
	const op = "storage.UpsertEntitlement"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO user_entitlements (user_id, export_unlocked, export_unlocked_at, stripe_customer_id, updated_at)
			  VALUES ($1, TRUE, NOW(), $2, NOW())
			  ON CONFLICT (user_id) DO UPDATE SET
			      export_unlocked = TRUE,
			      export_unlocked_at = COALESCE(user_entitlements.export_unlocked_at, EXCLUDED.export_unlocked_at),
			      stripe_customer_id = EXCLUDED.stripe_customer_id,
			      updated_at = NOW()`
	_, err := s.DB.ExecContext(ctx, query, userUID, customerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReadEntitlement возвращает права пользователя или nil, если записи нет.
func (s *Storage) ReadEntitlement(ctx context.Context, userUID string) (*models.UserEntitlement, error) {
	const op = "storage.ReadEntitlement"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, export_unlocked, export_unlocked_at, stripe_customer_id, updated_at
			  FROM user_entitlements WHERE user_id = $1`

	var result models.UserEntitlement
	var unlockedAt sql.NullTime
	var customerID sql.NullString
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(
		&result.UserID, &result.ExportUnlocked, &unlockedAt, &customerID, &result.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if unlockedAt.Valid {
		result.ExportUnlockedAt = &unlockedAt.Time
	}
	result.StripeCustomerID = customerID.String
	return &result, nil
}
