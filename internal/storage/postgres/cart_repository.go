package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

// CartRepository хранит снимок корзины в строке cart_snapshots по ключу слота.
type CartRepository struct {
	store *Store
	key   string
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store, key string) *CartRepository {
	if key == "" {
		key = domain.DefaultCartStorageKey
	}
	return &CartRepository{store: store, key: key}
}

// Load читает снимок; отсутствие строки означает пустую корзину.
func (r *CartRepository) Load() (domain.CartState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var payload []byte
	err := r.store.DB().QueryRowContext(ctx, `
		SELECT payload
		FROM cart_snapshots
		WHERE storage_key = $1
	`, r.key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CartState{}, nil
		}
		return domain.CartState{}, fmt.Errorf("select cart snapshot: %w", err)
	}

	return domain.DecodeCartState(payload)
}

// Save перезаписывает снимок (upsert). Конкурентные писатели: выигрывает последний.
func (r *CartRepository) Save(state domain.CartState) error {
	payload, err := domain.EncodeCartState(state)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.store.DB().ExecContext(ctx, `
		INSERT INTO cart_snapshots (storage_key, payload, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (storage_key) DO UPDATE
		SET payload = EXCLUDED.payload,
		    updated_at = EXCLUDED.updated_at
	`, r.key, string(payload)); err != nil {
		return fmt.Errorf("upsert cart snapshot: %w", err)
	}

	return nil
}

// Ping проверяет доступность базы для health check.
func (r *CartRepository) Ping() error {
	return r.store.Ping(context.Background())
}

var _ domain.CartRepository = (*CartRepository)(nil)
