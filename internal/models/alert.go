package models

import "time"

// Уровни важности событий безопасности.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Типы событий безопасности.
const (
	AlertSignatureFailure = "signature_verification_failure"
	AlertException        = "exception"
)

// SecurityAlert - структурированное уведомление для аудита:
// попытки подделки подписи, необработанные ошибки и т.п.
type SecurityAlert struct {
	Severity  string            `json:"severity"`
	EventType string            `json:"event_type"`
	ClientID  string            `json:"client_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
