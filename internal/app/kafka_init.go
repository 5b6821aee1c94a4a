package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// initEventPublisher создаёт Kafka-паблишер событий корзины.
// Без brokers или при ошибке подключения возвращается NopPublisher и nil producer:
// сервис корзины продолжает работать без событий.
func initEventPublisher(cfg Config, logger *log.Entry) (domain.CartEventPublisher, *kafka.Producer, error) {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		logger.Info("kafka brokers are not configured, cart events are disabled")
		return kafka.NopPublisher{}, nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return kafka.NopPublisher{}, nil, err
	}

	publisher := kafka.NewCartEventPublisher(producer, cfg.EventsTopic)
	logger.WithFields(log.Fields{
		"brokers": brokers,
		"topic":   publisher.Topic(),
	}).Info("kafka producer initialized")
	return publisher, producer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
