package models

import "time"

// PaymentReceipt - неизменяемый чек для бухгалтерии. Записи только
// добавляются; возможные дубликаты разбираются финансовыми инструментами
// вне этого сервиса.
type PaymentReceipt struct {
	ID                int64     `json:"id"`
	UserID            string    `json:"user_id"`
	CustomerID        string    `json:"customer_id"`
	PaymentIntentID   string    `json:"payment_intent_id"`
	CheckoutSessionID string    `json:"checkout_session_id"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}
