// Package cart содержит агрегат корзины: позиции, производные суммы и
// синхронную запись снимка в репозиторий после каждой мутации.
package cart

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Store реализует агрегат корзины. Экземпляр создаётся в composition root и передаётся
// потребителям по ссылке. Store не потокобезопасен: вызывающая сторона
// сериализует доступ, если обслуживает конкурентные запросы.
type Store struct {
	repo   domain.CartRepository
	state  domain.CartState
	logger *log.Entry
}

// Open восстанавливает корзину из репозитория.
// Повреждённый снимок не считается фатальным: корзина стартует пустой.
func Open(repo domain.CartRepository, logger *log.Entry) (*Store, error) {
	if repo == nil {
		return nil, errors.New("cart repository is required")
	}
	if logger == nil {
		logger = log.WithField("component", "cart")
	}

	s := &Store{repo: repo, logger: logger}

	state, err := repo.Load()
	switch {
	case err == nil:
		s.state = state.Normalize()
	case errors.Is(err, domain.ErrCartSnapshotCorrupted):
		logger.WithError(err).Warn("cart snapshot is corrupted, starting with empty cart")
		s.state = domain.CartState{}
	default:
		return nil, fmt.Errorf("load cart: %w", err)
	}

	logger.WithField("items", len(s.state.Items)).Debug("cart rehydrated")
	return s, nil
}

// AddItem увеличивает количество товара на 1 или добавляет новую позицию.
// Для существующей позиции снимок товара заменяется переданным.
// Остаток здесь не проверяется.
func (s *Store) AddItem(product domain.Product) error {
	return s.mutate("add_item", func(next *domain.CartState) {
		if idx := next.IndexOf(product.ID); idx >= 0 {
			next.Items[idx].Product = product.Clone()
			next.Items[idx].Quantity++
			return
		}
		next.Items = append(next.Items, domain.CartItem{Product: product.Clone(), Quantity: 1})
	})
}

// RemoveItem уменьшает количество на 1; позиция с количеством 1 удаляется.
func (s *Store) RemoveItem(productID string) error {
	return s.mutate("remove_item", func(next *domain.CartState) {
		idx := next.IndexOf(productID)
		if idx < 0 {
			return
		}
		if next.Items[idx].Quantity > 1 {
			next.Items[idx].Quantity--
			return
		}
		next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	})
}

// DeleteCartProduct удаляет позицию целиком независимо от количества.
func (s *Store) DeleteCartProduct(productID string) error {
	return s.mutate("delete_product", func(next *domain.CartState) {
		if idx := next.IndexOf(productID); idx >= 0 {
			next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
		}
	})
}

// ResetCart очищает корзину. Повторный вызов эквивалентен одному.
func (s *Store) ResetCart() error {
	return s.mutate("reset", func(next *domain.CartState) {
		next.Items = nil
	})
}

// TotalPrice — сумма price * quantity без учёта скидки.
func (s *Store) TotalPrice() float64 {
	var total float64
	for _, item := range s.state.Items {
		total += item.LineTotal()
	}
	return total
}

// SubTotalPrice — сумма (price + discount% от price) * quantity.
// Скидка увеличивает сумму; формула совпадает с отображаемой "старой" ценой.
func (s *Store) SubTotalPrice() float64 {
	var total float64
	for _, item := range s.state.Items {
		total += item.Product.ListPrice() * float64(item.Quantity)
	}
	return total
}

// ItemCount возвращает количество товара в корзине или 0.
func (s *Store) ItemCount(productID string) int {
	if idx := s.state.IndexOf(productID); idx >= 0 {
		return s.state.Items[idx].Quantity
	}
	return 0
}

// GroupedItems возвращает копию позиций в порядке первого добавления.
func (s *Store) GroupedItems() []domain.CartItem {
	return s.state.Clone().Items
}

// TotalUnits — суммарное количество единиц во всех позициях.
func (s *Store) TotalUnits() int {
	var units int
	for _, item := range s.state.Items {
		units += item.Quantity
	}
	return units
}

// mutate применяет изменение к копии состояния и синхронно сохраняет её.
// При ошибке записи состояние в памяти не меняется.
func (s *Store) mutate(op string, apply func(next *domain.CartState)) error {
	next := s.state.Clone()
	apply(&next)

	if err := s.repo.Save(next); err != nil {
		s.logger.WithError(err).WithField("operation", op).Error("failed to persist cart")
		return fmt.Errorf("%w: %s: %v", domain.ErrCartPersist, op, err)
	}

	s.state = next
	return nil
}
