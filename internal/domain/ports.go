package domain

import "time"

// CartRepository — шлюз к долговременному слоту, в котором лежит снимок корзины.
type CartRepository interface {
	// Load возвращает сохранённый снимок. Пустой слот означает пустую корзину без ошибки.
	Load() (CartState, error)
	// Save синхронно перезаписывает снимок целиком.
	Save(state CartState) error
}

// ProductCatalog описывает read-only доступ к контент-сервису с товарами.
type ProductCatalog interface {
	// Get возвращает товар по id или ErrProductNotFound.
	Get(id string) (Product, error)
	// Query возвращает товары, подходящие под фильтр.
	Query(q ProductQuery) ([]Product, error)
	// Categories возвращает навигационный список категорий.
	Categories() ([]Category, error)
}

// CartEventPublisher публикует события изменения корзины.
type CartEventPublisher interface {
	Publish(event CartEvent) error
}

// IdempotencyRepository хранит результаты мутаций, выполненных с idempotency-key.
type IdempotencyRepository interface {
	// CreateProcessing регистрирует ключ. Для существующего ключа возвращает запись
	// и ErrIdempotencyKeyAlreadyExists либо ErrIdempotencyHashMismatch.
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, response []byte) error
	MarkFailed(key string, response []byte, code uint32) error
	// Delete освобождает ключ, чтобы запрос можно было повторить.
	Delete(key string) error
	// DeleteExpired удаляет не более limit записей с TTLAt <= before (limit <= 0 без ограничения).
	DeleteExpired(before time.Time, limit int) (int, error)
}

// Category — элемент навигации по каталогу.
type Category struct {
	Title string `json:"title" yaml:"title"`
	Slug  string `json:"slug" yaml:"slug"`
}

// ProductQuery — параметры выборки из каталога. Пустые поля не фильтруют.
type ProductQuery struct {
	Category   string
	NamePrefix string
	Variant    string
	Limit      int
}
