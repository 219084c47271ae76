package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/resume-billing/internal/models"
)

// SaveSecurityEvent добавляет событие безопасности в журнал аудита.
func (s *Storage) SaveSecurityEvent(ctx context.Context, alert models.SecurityAlert) error {
	const op = "storage.SaveSecurityEvent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	details, err := json.Marshal(alert.Details)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO security_events (severity, event_type, client_id, details, created_at)
			  VALUES ($1, $2, $3, $4, NOW())`
	_, err = s.DB.ExecContext(ctx, query, alert.Severity, alert.EventType, alert.ClientID, details)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
