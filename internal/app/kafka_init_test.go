package app

import (
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

func TestInitEventPublisher_EmptyBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	publisher, producer, err := initEventPublisher(Config{}, logger)
	if err != nil {
		t.Errorf("expected no error for empty brokers, got %v", err)
	}
	if producer != nil {
		t.Error("expected nil producer for empty brokers")
	}
	if _, ok := publisher.(kafka.NopPublisher); !ok {
		t.Errorf("expected NopPublisher, got %T", publisher)
	}
}

func TestInitEventPublisher_InvalidBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	// несуществующие brokers: ошибка, но сервис продолжает работу без событий
	publisher, producer, err := initEventPublisher(Config{KafkaBrokers: "broker1:9092, broker2:9092"}, logger)
	if err == nil {
		t.Error("expected error for invalid brokers")
	}
	if producer != nil {
		t.Error("expected nil producer on error")
	}
	if _, ok := publisher.(kafka.NopPublisher); !ok {
		t.Errorf("expected NopPublisher fallback, got %T", publisher)
	}
}

func TestCloseKafka_NilProducer(t *testing.T) {
	logger := log.WithField("test", "kafka")

	// Не должно паниковать
	closeKafka(nil, logger)
}
