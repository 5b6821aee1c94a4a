package sqlite

import (
	"context"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// CartRepository хранит снимок корзины в слоте kv_slots.
type CartRepository struct {
	store *Store
	key   string
}

// NewCartRepository создаёт SQLite-реализацию CartRepository.
func NewCartRepository(store *Store, key string) *CartRepository {
	if key == "" {
		key = domain.DefaultCartStorageKey
	}
	return &CartRepository{store: store, key: key}
}

// Load возвращает снимок или пустую корзину, если слот ещё не записан.
func (r *CartRepository) Load() (domain.CartState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()

	data, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		return domain.CartState{}, err
	}
	if !ok {
		return domain.CartState{}, nil
	}
	return domain.DecodeCartState(data)
}

// Save синхронно перезаписывает слот.
func (r *CartRepository) Save(state domain.CartState) error {
	data, err := domain.EncodeCartState(state)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()
	return r.store.Put(ctx, r.key, data)
}

// Clear удаляет слот целиком (аналог очистки local storage).
func (r *CartRepository) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()
	return r.store.Delete(ctx, r.key)
}

// Ping проверяет доступность базы для health check.
func (r *CartRepository) Ping() error {
	return r.store.Ping(context.Background())
}

var _ domain.CartRepository = (*CartRepository)(nil)
