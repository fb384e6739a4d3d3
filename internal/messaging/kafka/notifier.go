package kafka

import (
	"strconv"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// TopicOrderEvents — топик событий жизненного цикла заказов.
const TopicOrderEvents = "orders.order.events"

// publisher — минимальный контракт producer-а, достаточный для notifier-а.
type publisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// Notifier публикует события заказов в Kafka. Ключом сообщения служит
// order id, поэтому события одного заказа попадают в одну партицию
// и сохраняют порядок.
type Notifier struct {
	producer publisher
	topic    string
}

// NewNotifier создает notifier поверх Kafka producer-а.
func NewNotifier(producer *Producer) *Notifier {
	return &Notifier{producer: producer, topic: TopicOrderEvents}
}

func newNotifierWithPublisher(producer publisher, topic string) *Notifier {
	return &Notifier{producer: producer, topic: topic}
}

// Publish отправляет событие в топик событий заказов.
func (n *Notifier) Publish(event domain.OrderEvent) error {
	key := strconv.FormatInt(event.OrderID, 10)
	if event.OrderID == 0 {
		// Sweep-события не привязаны к конкретному заказу.
		key = event.ID
	}
	return n.producer.PublishEvent(n.topic, key, event)
}

var _ domain.OrderEventSink = (*Notifier)(nil)
