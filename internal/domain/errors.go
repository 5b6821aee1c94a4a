package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора товара.
	ErrProductIDRequired = errors.New("product id is required")
	// Ошибка некорректного количества позиции (< 1).
	ErrCartItemQtyInvalid = errors.New("cart item quantity must be at least one")
	// Ошибка повторяющегося товара в корзине.
	ErrCartItemDuplicate = errors.New("cart item is duplicated")
	// ErrProductNotFound возвращается каталогом, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductOutOfStock — товар нельзя добавить, остаток равен нулю.
	ErrProductOutOfStock = errors.New("product out of stock")
	// ErrCartPersist — снимок корзины не удалось записать в хранилище.
	ErrCartPersist = errors.New("cart persist failed")
	// ErrCartSnapshotCorrupted — снимок в хранилище не удалось разобрать.
	ErrCartSnapshotCorrupted = errors.New("cart snapshot corrupted")
	// ErrEventPublish возвращается при ошибке публикации события корзины.
	ErrEventPublish = errors.New("cart event publish failed")
)

var (
	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован с тем же запросом.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ повторно использован с другим запросом.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")
	ErrIdempotencyKeyNotFound  = errors.New("idempotency key not found")
)

// IsPersistError проверяет, является ли ошибка ошибкой записи снимка.
func IsPersistError(err error) bool {
	return errors.Is(err, ErrCartPersist)
}

// IsProductNotFound проверяет, что товар отсутствует в каталоге.
func IsProductNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}
