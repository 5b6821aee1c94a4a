package domain

import "time"

// CartEventType определяет тип события корзины.
type CartEventType string

const (
	CartEventItemAdded      CartEventType = "cart.item_added"
	CartEventItemRemoved    CartEventType = "cart.item_removed"
	CartEventProductDeleted CartEventType = "cart.product_deleted"
	CartEventReset          CartEventType = "cart.reset"
)

// CartEvent описывает одно изменение корзины.
type CartEvent struct {
	ID         string        `json:"id"`
	Type       CartEventType `json:"event_type"`
	CartKey    string        `json:"cart_key"`
	ProductID  string        `json:"product_id,omitempty"`
	Quantity   int           `json:"quantity"`
	TotalUnits int           `json:"total_units"`
	OccurredAt time.Time     `json:"occurred_at"`
	Product    *Product      `json:"product,omitempty"` // снимок товара, только у cart.item_added
}

// Valid проверяет, что тип события поддерживается.
func (t CartEventType) Valid() bool {
	switch t {
	case CartEventItemAdded, CartEventItemRemoved, CartEventProductDeleted, CartEventReset:
		return true
	default:
		return false
	}
}
