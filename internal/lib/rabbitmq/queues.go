package rabbitmq

// prefetch сколько неподтверждённых сообщений брокер отдаёт одному потребителю.
const prefetch = 10

// Ключи маршрутизации событий.
const (
	RoutingMembershipActivate = "membership.activate"
	RoutingMembershipExpiring = "membership.expiring"
)

// Имена очередей.
const (
	QueueMembershipActivate = "gym.membership.activate"
	QueueMembershipExpiring = "gym.notifications.membership_expiring"
)

// QueueConfig очередь и ключ, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetGymQueues возвращает все очереди, которые используют scheduler и worker.
func GetGymQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueMembershipActivate, RoutingKey: RoutingMembershipActivate},
		{QueueName: QueueMembershipExpiring, RoutingKey: RoutingMembershipExpiring},
	}
}
