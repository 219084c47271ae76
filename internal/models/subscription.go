package models

import "time"

// Статусы локального зеркала подписки. Кроме SubscriptionNotStarted
// значения совпадают со статусами платежного провайдера.
const (
	// SubscriptionNotStarted - у клиента нет ни одной подписки у провайдера.
	SubscriptionNotStarted = "not_started"
)

// SubscriptionMirror - локальная копия состояния подписки клиента.
// Источник истины - платежный провайдер; строка полностью перезаписывается
// при каждой синхронизации (last-fetch-wins).
type SubscriptionMirror struct {
	CustomerID         string     `json:"customer_id"`
	SubscriptionID     string     `json:"subscription_id,omitempty"`
	PriceID            string     `json:"price_id,omitempty"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	Status             string     `json:"status"`
	PaymentMethodBrand string     `json:"payment_method_brand,omitempty"`
	PaymentMethodLast4 string     `json:"payment_method_last4,omitempty"`
}

// BillingStatus - агрегированное состояние биллинга пользователя
// для страницы аккаунта.
type BillingStatus struct {
	Entitlement  *UserEntitlement    `json:"entitlement,omitempty"`
	Subscription *SubscriptionMirror `json:"subscription,omitempty"`
}
