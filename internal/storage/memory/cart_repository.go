package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// CartRepository — in-memory слот со снимком корзины.
// Хранит сериализованные байты, как это делает local storage.
type CartRepository struct {
	mu    sync.RWMutex
	key   string
	slots map[string][]byte
}

// NewCartRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewCartRepository(key string) *CartRepository {
	if key == "" {
		key = domain.DefaultCartStorageKey
	}
	return &CartRepository{
		key:   key,
		slots: make(map[string][]byte),
	}
}

// Load возвращает снимок или пустую корзину, если слот ещё не записан.
func (r *CartRepository) Load() (domain.CartState, error) {
	r.mu.RLock()
	data, ok := r.slots[r.key]
	r.mu.RUnlock()

	if !ok {
		return domain.CartState{}, nil
	}
	return domain.DecodeCartState(data)
}

// Save перезаписывает слот целиком.
func (r *CartRepository) Save(state domain.CartState) error {
	data, err := domain.EncodeCartState(state)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[r.key] = data
	return nil
}

// Raw возвращает сохранённые байты слота (для отладки и тестов).
func (r *CartRepository) Raw() ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.slots[r.key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Put записывает произвольные байты в слот, минуя кодек.
func (r *CartRepository) Put(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[r.key] = append([]byte(nil), data...)
}

// Ping всегда успешен: хранилище живёт в памяти процесса.
func (r *CartRepository) Ping() error {
	return nil
}

var _ domain.CartRepository = (*CartRepository)(nil)
