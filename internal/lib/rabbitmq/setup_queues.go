package rabbitmq

// QueueConfig описывает очередь и ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetAlertQueues возвращает очереди аудита биллинга.
func GetAlertQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "billing.security", RoutingKey: "security"},
		{QueueName: "billing.exceptions", RoutingKey: "exception"},
	}
}
