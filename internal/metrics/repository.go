package metrics

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// instrumentedRepository замеряет время Load/Save вложенного хранилища.
type instrumentedRepository struct {
	next    domain.CartRepository
	metrics *CartMetrics
	now     func() time.Time
}

// InstrumentRepository оборачивает хранилище корзины сбором метрик.
// При nil metrics возвращает repo без изменений.
func InstrumentRepository(repo domain.CartRepository, metrics *CartMetrics) domain.CartRepository {
	if repo == nil || metrics == nil {
		return repo
	}
	return &instrumentedRepository{next: repo, metrics: metrics, now: time.Now}
}

func (r *instrumentedRepository) Load() (domain.CartState, error) {
	started := r.now()
	state, err := r.next.Load()
	r.metrics.RecordPersistDuration("load", r.now().Sub(started))
	return state, err
}

func (r *instrumentedRepository) Save(state domain.CartState) error {
	started := r.now()
	err := r.next.Save(state)
	r.metrics.RecordPersistDuration("save", r.now().Sub(started))
	return err
}

// Ping пробрасывает проверку доступности, если вложенное хранилище её поддерживает.
func (r *instrumentedRepository) Ping() error {
	if pinger, ok := r.next.(interface{ Ping() error }); ok {
		return pinger.Ping()
	}
	return nil
}
