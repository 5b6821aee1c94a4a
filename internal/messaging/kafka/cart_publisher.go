package kafka

import (
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// CartEventPublisher публикует события корзины в Kafka topic.
// Ключом сообщения служит ключ слота корзины, поэтому события одной корзины упорядочены.
type CartEventPublisher struct {
	producer *Producer
	topic    string
}

// NewCartEventPublisher создаёт Kafka-паблишер событий корзины.
func NewCartEventPublisher(producer *Producer, topic string) *CartEventPublisher {
	if topic == "" {
		topic = TopicCartEvents
	}
	return &CartEventPublisher{producer: producer, topic: topic}
}

// Topic возвращает целевой topic.
func (p *CartEventPublisher) Topic() string {
	return p.topic
}

func (p *CartEventPublisher) Publish(event domain.CartEvent) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("%w: kafka publisher is not initialized", domain.ErrEventPublish)
	}
	if !event.Type.Valid() {
		return fmt.Errorf("%w: unknown event type %q", domain.ErrEventPublish, event.Type)
	}

	key := event.CartKey
	if key == "" {
		key = domain.DefaultCartStorageKey
	}

	headers := map[string]string{
		HeaderEventID:   event.ID,
		HeaderEventType: string(event.Type),
	}
	if err := p.producer.PublishEvent(p.topic, key, event, headers); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEventPublish, err)
	}
	return nil
}

// NopPublisher используется, когда Kafka не настроена.
type NopPublisher struct{}

func (NopPublisher) Publish(domain.CartEvent) error { return nil }

var (
	_ domain.CartEventPublisher = (*CartEventPublisher)(nil)
	_ domain.CartEventPublisher = NopPublisher{}
)
