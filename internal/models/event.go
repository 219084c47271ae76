// Package models содержит структуры данных биллингового сервиса:
// журнал webhook-событий, права пользователя, зеркало подписки и чеки.
package models

import "time"

// LedgerEntry - запись журнала обработанных webhook-событий.
// Создается ровно один раз на каждый уникальный идентификатор события
// провайдера, никогда не изменяется и не удаляется. Само существование
// записи означает, что событие обработано или обрабатывается.
type LedgerEntry struct {
	ProviderEventID string            `json:"provider_event_id"`
	EventType       string            `json:"event_type"`
	CustomerID      string            `json:"customer_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	ProcessedAt     time.Time         `json:"processed_at"`
}
