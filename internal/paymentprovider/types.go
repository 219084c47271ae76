// Package paymentprovider реализует клиент API платежного провайдера (Stripe)
// и проверку подписи его webhook-уведомлений.
package paymentprovider

import (
	"encoding/json"
	"fmt"
)

// Режимы checkout-сессии.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// Типы событий, участвующие в маршрутизации сверки.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
)

// ExpandableID - ссылка на объект провайдера, которая в JSON приходит либо
// строкой-идентификатором, либо развернутым объектом с полем id.
type ExpandableID struct {
	ID string
}

// UnmarshalJSON принимает "cus_123", null или {"id": "cus_123", ...}.
func (e *ExpandableID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		e.ID = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.ID)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("expandable id: %w", err)
	}
	e.ID = obj.ID
	return nil
}

// MarshalJSON сериализует ссылку обратно в строку-идентификатор.
func (e ExpandableID) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ID)
}

// Event - конверт webhook-события провайдера. Data.Object хранится сырым:
// конкретная структура зависит от типа события.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession - checkout-сессия провайдера.
type CheckoutSession struct {
	ID                string            `json:"id"`
	Mode              string            `json:"mode"`
	PaymentStatus     string            `json:"payment_status"`
	ClientReferenceID string            `json:"client_reference_id"`
	Customer          ExpandableID      `json:"customer"`
	PaymentIntent     ExpandableID      `json:"payment_intent"`
	Invoice           ExpandableID      `json:"invoice"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	Metadata          map[string]string `json:"metadata"`
}

// PaymentIntent - платеж провайдера.
type PaymentIntent struct {
	ID       string       `json:"id"`
	Customer ExpandableID `json:"customer"`
	Invoice  ExpandableID `json:"invoice"`
	Amount   int64        `json:"amount"`
	Currency string       `json:"currency"`
	Status   string       `json:"status"`
}

// Card - данные карты платежного метода.
type Card struct {
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}

// PaymentMethod - платежный метод с развернутыми данными карты.
type PaymentMethod struct {
	ID   string `json:"id"`
	Card *Card  `json:"card"`
}

// SubscriptionItem - позиция подписки с тарифом.
type SubscriptionItem struct {
	Price struct {
		ID string `json:"id"`
	} `json:"price"`
}

// Subscription - подписка провайдера.
type Subscription struct {
	ID                 string       `json:"id"`
	Customer           ExpandableID `json:"customer"`
	Status             string       `json:"status"`
	CancelAtPeriodEnd  bool         `json:"cancel_at_period_end"`
	CurrentPeriodStart int64        `json:"current_period_start"`
	CurrentPeriodEnd   int64        `json:"current_period_end"`
	Items              struct {
		Data []SubscriptionItem `json:"data"`
	} `json:"items"`
	DefaultPaymentMethod *PaymentMethod `json:"default_payment_method"`
}

// subscriptionList - ответ списка подписок.
type subscriptionList struct {
	Data []*Subscription `json:"data"`
}
