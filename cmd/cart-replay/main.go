package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/sqlite"
)

const (
	defaultReplayLimit = 1000
	defaultIdleTimeout = 2 * time.Second
	openTimeout        = 10 * time.Second
)

type config struct {
	brokers     []string
	topic       string
	cartKey     string
	catalogFile string
	sqlitePath  string
	limit       int
	execute     bool
	idleTimeout time.Duration
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type saramaConsumerAdapter struct {
	consumer sarama.Consumer
}

func (a saramaConsumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	pc, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a saramaConsumerAdapter) Close() error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Close()
}

var newKafkaDependencies = func(cfg config) (offsetClient, partitionConsumerSource, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.ClientID = "storefront-cart-replay"
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka client: %w", err)
	}

	rawConsumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return client, saramaConsumerAdapter{consumer: rawConsumer}, nil
}

// replayTarget возвращает репозиторий, в который собирается корзина.
// В dry-run это память процесса, в режиме execute файл SQLite.
var replayTarget = func(ctx context.Context, cfg config) (domain.CartRepository, func() error, error) {
	if !cfg.execute {
		return memory.NewCartRepository(cfg.cartKey), func() error { return nil }, nil
	}

	store, err := sqlite.Open(ctx, cfg.sqlitePath)
	if err != nil {
		return nil, nil, err
	}
	repo := sqlite.NewCartRepository(store, cfg.cartKey)
	if err := repo.Clear(); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("clear cart snapshot: %w", err)
	}
	return repo, store.Close, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		fail("cart replay failed: %v", err)
	}
}

func readConfig() (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: "+app.EnvKafkaBrokers+")")
	flag.StringVar(&cfg.topic, "topic", kafka.TopicCartEvents, "cart events topic")
	flag.StringVar(&cfg.cartKey, "cart-key", domain.DefaultCartStorageKey, "storage key of the cart to rebuild")
	flag.StringVar(&cfg.catalogFile, "catalog", "", "YAML catalog file (default: embedded catalog)")
	flag.StringVar(&cfg.sqlitePath, "sqlite", "cart.db", "SQLite file written in execute mode")
	flag.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of events to scan")
	flag.BoolVar(&cfg.execute, "execute", false, "write the rebuilt cart to SQLite; default is dry-run")
	flag.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv(app.EnvKafkaBrokers)
	}
	cfg.brokers = parseBrokers(brokersRaw)
	cfg.topic = strings.TrimSpace(cfg.topic)
	cfg.cartKey = strings.TrimSpace(cfg.cartKey)
	cfg.sqlitePath = strings.TrimSpace(cfg.sqlitePath)

	switch {
	case len(cfg.brokers) == 0:
		return config{}, fmt.Errorf("kafka brokers are required (-brokers or %s)", app.EnvKafkaBrokers)
	case cfg.topic == "":
		return config{}, fmt.Errorf("topic is required")
	case cfg.cartKey == "":
		return config{}, fmt.Errorf("cart-key is required")
	case cfg.execute && cfg.sqlitePath == "":
		return config{}, fmt.Errorf("sqlite path is required in execute mode")
	case cfg.limit <= 0:
		return config{}, fmt.Errorf("limit must be > 0")
	case cfg.idleTimeout <= 0:
		return config{}, fmt.Errorf("idle-timeout must be > 0")
	}

	return cfg, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func loadReplayCatalog(path string) (domain.ProductCatalog, error) {
	if strings.TrimSpace(path) == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func run(ctx context.Context, cfg config) error {
	logger := log.WithField("component", "cart-replay")
	logger.WithFields(log.Fields{
		"topic":    cfg.topic,
		"cart_key": cfg.cartKey,
		"limit":    cfg.limit,
		"execute":  cfg.execute,
	}).Info("starting cart replay")

	products, err := loadReplayCatalog(cfg.catalogFile)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	openCtx, cancel := context.WithTimeout(ctx, openTimeout)
	repo, closeRepo, err := replayTarget(openCtx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("open replay target: %w", err)
	}
	defer func() { _ = closeRepo() }()

	store, err := cart.Open(repo, logger)
	if err != nil {
		return err
	}

	client, consumer, err := newKafkaDependencies(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if consumer != nil {
			_ = consumer.Close()
		}
		if client != nil {
			_ = client.Close()
		}
	}()

	r := &replayer{cfg: cfg, store: store, catalog: products, logger: logger}
	stats, err := r.run(ctx, client, consumer)
	if err != nil {
		return err
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	logger.WithFields(log.Fields{
		"mode":        mode,
		"processed":   stats.processed,
		"applied":     stats.applied,
		"skipped":     stats.skipped,
		"mismatches":  stats.mismatches,
		"items":       len(store.GroupedItems()),
		"total_units": store.TotalUnits(),
	}).Info("cart replay finished")

	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
