package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

var errForeignCart = errors.New("event belongs to another cart")

type replayStats struct {
	processed  int
	applied    int
	skipped    int
	mismatches int
}

func (s *replayStats) add(other replayStats) {
	s.processed += other.processed
	s.applied += other.applied
	s.skipped += other.skipped
	s.mismatches += other.mismatches
}

// replayer применяет события корзины к агрегату в порядке смещений партиции.
type replayer struct {
	cfg     config
	store   *cart.Store
	catalog domain.ProductCatalog
	logger  *log.Entry
}

func (r *replayer) run(ctx context.Context, client offsetClient, consumer partitionConsumerSource) (replayStats, error) {
	var total replayStats
	if client == nil || consumer == nil {
		return total, fmt.Errorf("kafka client and consumer are required")
	}

	partitions, err := client.Partitions(r.cfg.topic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", r.cfg.topic, err)
	}
	if len(partitions) == 0 {
		r.logger.WithField("topic", r.cfg.topic).Warn("topic has no partitions")
		return total, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if total.processed >= r.cfg.limit {
			break
		}
		stats, err := r.processPartition(ctx, client, consumer, partition, r.cfg.limit-total.processed)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *replayer) processPartition(
	ctx context.Context,
	client offsetClient,
	consumer partitionConsumerSource,
	partition int32,
	limit int,
) (replayStats, error) {
	var stats replayStats
	if limit <= 0 {
		return stats, nil
	}

	oldest, err := client.GetOffset(r.cfg.topic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := client.GetOffset(r.cfg.topic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	pc, err := consumer.ConsumePartition(r.cfg.topic, partition, oldest)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idleTimer := time.NewTimer(r.cfg.idleTimeout)
	defer idleTimer.Stop()

	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case consumerErr := <-pc.Errors():
			if consumerErr != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, consumerErr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil {
				return stats, nil
			}

			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			idleTimer.Reset(r.cfg.idleTimeout)

			if msg.Offset >= newest {
				return stats, nil
			}

			stats.processed++
			if err := r.handleMessage(msg, &stats); err != nil {
				return stats, err
			}

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		case <-idleTimer.C:
			return stats, nil
		}
	}

	return stats, nil
}

// handleMessage возвращает ошибку только при сбое сохранения корзины;
// нечитаемые и чужие события пропускаются.
func (r *replayer) handleMessage(msg *sarama.ConsumerMessage, stats *replayStats) error {
	fields := log.Fields{"partition": msg.Partition, "offset": msg.Offset}

	event, err := decodeCartEvent(msg, r.cfg.cartKey)
	if err != nil {
		stats.skipped++
		if !errors.Is(err, errForeignCart) {
			r.logger.WithError(err).WithFields(fields).Warn("skip unsupported cart event")
		}
		return nil
	}

	applied, err := applyEvent(r.store, r.catalog, event)
	if err != nil {
		if domain.IsPersistError(err) {
			return fmt.Errorf("apply event %s: %w", event.ID, err)
		}
		stats.skipped++
		r.logger.WithError(err).WithFields(fields).WithField("event_id", event.ID).Warn("skip cart event")
		return nil
	}
	if !applied {
		stats.skipped++
		return nil
	}
	stats.applied++

	if !matchesEvent(r.store, event) {
		stats.mismatches++
		r.logger.WithFields(fields).WithFields(log.Fields{
			"event_id":          event.ID,
			"expected_units":    event.TotalUnits,
			"replayed_units":    r.store.TotalUnits(),
			"expected_quantity": event.Quantity,
		}).Warn("replayed cart diverges from event")
	}
	return nil
}

// decodeCartEvent читает событие из сообщения; тип берётся из заголовка,
// если в теле он отсутствует.
func decodeCartEvent(msg *sarama.ConsumerMessage, cartKey string) (domain.CartEvent, error) {
	var event domain.CartEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return domain.CartEvent{}, fmt.Errorf("decode cart event: %w", err)
	}

	if event.Type == "" {
		event.Type = domain.CartEventType(headerValue(msg, kafka.HeaderEventType))
	}
	if event.ID == "" {
		event.ID = headerValue(msg, kafka.HeaderEventID)
	}
	if !event.Type.Valid() {
		return domain.CartEvent{}, fmt.Errorf("unsupported event type %q", event.Type)
	}

	key := event.CartKey
	if key == "" {
		key = string(msg.Key)
	}
	if key != cartKey {
		return domain.CartEvent{}, errForeignCart
	}
	return event, nil
}

func headerValue(msg *sarama.ConsumerMessage, name string) string {
	for _, header := range msg.Headers {
		if header != nil && string(header.Key) == name {
			return string(header.Value)
		}
	}
	return ""
}

// applyEvent переносит событие на агрегат. Добавление берёт снимок товара
// из каталога; false означает, что применять нечего.
func applyEvent(store *cart.Store, products domain.ProductCatalog, event domain.CartEvent) (bool, error) {
	switch event.Type {
	case domain.CartEventItemAdded:
		if event.ProductID == "" {
			return false, domain.ErrProductIDRequired
		}
		product, err := eventProduct(products, event)
		if err != nil {
			return false, err
		}
		return true, store.AddItem(product)
	case domain.CartEventItemRemoved:
		if event.ProductID == "" {
			return false, domain.ErrProductIDRequired
		}
		return true, store.RemoveItem(event.ProductID)
	case domain.CartEventProductDeleted:
		if event.ProductID == "" {
			return false, domain.ErrProductIDRequired
		}
		return true, store.DeleteCartProduct(event.ProductID)
	case domain.CartEventReset:
		return true, store.ResetCart()
	default:
		return false, nil
	}
}

// eventProduct берёт снимок товара из события. Старые события без снимка
// разрешаются через каталог.
func eventProduct(products domain.ProductCatalog, event domain.CartEvent) (domain.Product, error) {
	if event.Product != nil {
		product := event.Product.Clone()
		product.ID = event.ProductID
		return product, nil
	}
	return products.Get(event.ProductID)
}

func matchesEvent(store *cart.Store, event domain.CartEvent) bool {
	if store.TotalUnits() != event.TotalUnits {
		return false
	}
	if event.ProductID == "" {
		return true
	}
	return store.ItemCount(event.ProductID) == event.Quantity
}
