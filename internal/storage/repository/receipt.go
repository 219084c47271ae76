package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/resume-billing/internal/models"
)

// SaveReceipt добавляет неизменяемый чек и возвращает его ID.
// Таблица только пополняется; дедупликации сверх журнала событий нет.
func (s *Storage) SaveReceipt(ctx context.Context, receipt models.PaymentReceipt) (int64, error) {
	const op = "storage.SaveReceipt"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payment_receipts
			      (user_id, customer_id, payment_intent_id, checkout_session_id, amount, currency, status, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			  RETURNING id`
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		receipt.UserID, receipt.CustomerID, receipt.PaymentIntentID,
		receipt.CheckoutSessionID, receipt.Amount, receipt.Currency, receipt.Status).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListReceipts возвращает чеки пользователя с пагинацией, свежие первыми.
func (s *Storage) ListReceipts(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentReceipt, error) {
	const op = "storage.ListReceipts"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, customer_id, payment_intent_id, checkout_session_id,
			      amount, currency, status, created_at
			  FROM payment_receipts
			  WHERE user_id = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PaymentReceipt
	for rows.Next() {
		var item models.PaymentReceipt
		if err := rows.Scan(&item.ID, &item.UserID, &item.CustomerID, &item.PaymentIntentID,
			&item.CheckoutSessionID, &item.Amount, &item.Currency, &item.Status, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
