package models

import "time"

// UserEntitlement - права пользователя, купленные разовым платежом.
// Одна строка на пользователя. Флаг ExportUnlocked монотонный: после
// установки в true этот сервис никогда не сбрасывает его обратно.
type UserEntitlement struct {
	UserID           string     `json:"user_id"`
	ExportUnlocked   bool       `json:"export_unlocked"`
	ExportUnlockedAt *time.Time `json:"export_unlocked_at,omitempty"`
	StripeCustomerID string     `json:"stripe_customer_id,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
