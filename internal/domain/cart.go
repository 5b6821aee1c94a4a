package domain

import (
	"encoding/json"
	"fmt"
)

// DefaultCartStorageKey — логическое имя слота, в котором хранится снимок корзины.
const DefaultCartStorageKey = "cart-store"

// CartItem — позиция корзины: снимок товара и количество.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal возвращает price * quantity без учёта скидки.
func (i CartItem) LineTotal() float64 {
	return i.Product.Price * float64(i.Quantity)
}

// CartState — сериализуемое состояние корзины.
type CartState struct {
	Items []CartItem `json:"items"`
}

// Clone возвращает глубокую копию состояния.
func (s CartState) Clone() CartState {
	if s.Items == nil {
		return CartState{}
	}
	items := make([]CartItem, len(s.Items))
	for i, item := range s.Items {
		items[i] = CartItem{Product: item.Product.Clone(), Quantity: item.Quantity}
	}
	return CartState{Items: items}
}

// IndexOf возвращает позицию товара в корзине или -1.
func (s CartState) IndexOf(productID string) int {
	for i, item := range s.Items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}

// ValidateInvariants проверяет инварианты корзины и возвращает список замечаний.
func (s CartState) ValidateInvariants() []error {
	var errs []error

	seen := make(map[string]struct{}, len(s.Items))
	for _, item := range s.Items {
		if item.Product.ID == "" {
			errs = append(errs, ErrProductIDRequired)
		}
		if item.Quantity < 1 {
			errs = append(errs, fmt.Errorf("%w: %s", ErrCartItemQtyInvalid, item.Product.ID))
		}
		if _, dup := seen[item.Product.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrCartItemDuplicate, item.Product.ID))
		}
		seen[item.Product.ID] = struct{}{}
	}

	return errs
}

// Normalize приводит восстановленное из хранилища состояние к инвариантам:
// отбрасывает позиции без id и с количеством < 1, склеивает дубликаты.
// Порядок первой вставки сохраняется, снимок товара берётся из последней записи.
func (s CartState) Normalize() CartState {
	out := CartState{}
	for _, item := range s.Items {
		if item.Product.ID == "" || item.Quantity < 1 {
			continue
		}
		if idx := out.IndexOf(item.Product.ID); idx >= 0 {
			out.Items[idx].Product = item.Product.Clone()
			out.Items[idx].Quantity += item.Quantity
			continue
		}
		out.Items = append(out.Items, CartItem{Product: item.Product.Clone(), Quantity: item.Quantity})
	}
	return out
}

// EncodeCartState сериализует снимок корзины в формат {"items": [...]}.
func EncodeCartState(state CartState) ([]byte, error) {
	if state.Items == nil {
		state.Items = []CartItem{}
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode cart state: %w", err)
	}
	return data, nil
}

// DecodeCartState разбирает снимок корзины. Пустой payload означает пустую корзину.
func DecodeCartState(data []byte) (CartState, error) {
	if len(data) == 0 {
		return CartState{}, nil
	}
	var state CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return CartState{}, fmt.Errorf("%w: %v", ErrCartSnapshotCorrupted, err)
	}
	return state, nil
}
