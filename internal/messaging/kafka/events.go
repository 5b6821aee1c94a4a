package kafka

// Topics для Kafka
const (
	TopicCartEvents = "storefront.cart.events"
)

// Kafka headers сообщений корзины
const (
	HeaderEventID   = "x-event-id"
	HeaderEventType = "x-event-type"
)
