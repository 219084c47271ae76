// Package rabbitmq содержит подключение к RabbitMQ и публикацию сообщений
// в обменник оповещений биллинга.
package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Connect открывает соединение и канал, объявляет обменник и очереди
// оповещений с привязками по ключам маршрутизации.
func Connect(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	const op = "rabbitmq.Connect"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range GetAlertQueues() {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, exchange, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return conn, ch, nil
}
