package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/resume-billing/internal/paymentprovider"
)

// Action - результат маршрутизации webhook-события.
type Action int

const (
	// ActionIgnore - событие не требует работы.
	ActionIgnore Action = iota
	// ActionUnlockExport - разовая покупка: открыть экспорт и записать чек.
	ActionUnlockExport
	// ActionSyncSubscription - обновить локальное зеркало подписки клиента.
	ActionSyncSubscription
)

// routeDecision - действие вместе с разобранным объектом события.
type routeDecision struct {
	action  Action
	session *paymentprovider.CheckoutSession
	intent  *paymentprovider.PaymentIntent
}

// routeEvent разбирает объект события и выбирает действие сверки.
//
// checkout.session.completed в режиме payment с оплаченной сессией - покупка
// экспорта; остальные завершенные сессии трактуются как изменение подписки.
// payment_intent.succeeded со ссылкой на инвойс порожден подписочным
// списанием и приходит вместе с событием инвойса, поэтому пропускается.
func routeEvent(event paymentprovider.Event) (routeDecision, error) {
	const op = "reconcile.routeEvent"

	switch event.Type {
	case paymentprovider.EventCheckoutSessionCompleted:
		var session paymentprovider.CheckoutSession
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			return routeDecision{}, fmt.Errorf("%s: %w", op, err)
		}
		if session.Mode == paymentprovider.ModePayment && session.PaymentStatus == "paid" {
			return routeDecision{action: ActionUnlockExport, session: &session}, nil
		}
		return routeDecision{action: ActionSyncSubscription, session: &session}, nil

	case paymentprovider.EventPaymentIntentSucceeded:
		var intent paymentprovider.PaymentIntent
		if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
			return routeDecision{}, fmt.Errorf("%s: %w", op, err)
		}
		if intent.Invoice.ID != "" {
			return routeDecision{action: ActionIgnore}, nil
		}
		if intent.Customer.ID != "" {
			return routeDecision{action: ActionSyncSubscription, intent: &intent}, nil
		}
		return routeDecision{action: ActionIgnore}, nil

	default:
		return routeDecision{action: ActionIgnore}, nil
	}
}

// customerID возвращает идентификатор клиента из разобранного объекта.
func (d routeDecision) customerID() string {
	if d.session != nil {
		return d.session.Customer.ID
	}
	if d.intent != nil {
		return d.intent.Customer.ID
	}
	return ""
}
