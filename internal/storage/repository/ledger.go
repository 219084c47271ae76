package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/resume-billing/internal/models"
)

// TryClaimEvent пытается вставить запись журнала для события провайдера.
// Возвращает (true, nil), если запись создана и событие принадлежит
// вызывающему; (false, nil), если сработало ограничение уникальности -
// событие уже захвачено этим или конкурентным вызовом и все побочные
// эффекты нужно пропустить. Любая другая ошибка вставки возвращается
// как есть: сбой инфраструктуры нельзя путать с дубликатом.
func (s *Storage) TryClaimEvent(ctx context.Context, entry models.LedgerEntry) (bool, error) {
	const op = "storage.TryClaimEvent"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var customerID sql.NullString
	if entry.CustomerID != "" {
		customerID = sql.NullString{String: entry.CustomerID, Valid: true}
	}

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO webhook_events (provider_event_id, event_type, customer_id, metadata, processed_at)
			  VALUES ($1, $2, $3, $4, NOW())`
	_, err = s.DB.ExecContext(ctx, query,
		entry.ProviderEventID, entry.EventType, customerID, metadata)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// CountLedgerEntries возвращает количество записей журнала для события.
func (s *Storage) CountLedgerEntries(ctx context.Context, providerEventID string) (int, error) {
	const op = "storage.CountLedgerEntries"

	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM webhook_events WHERE provider_event_id = $1`,
		providerEventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
