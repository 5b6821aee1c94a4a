package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// Драйверы хранилища корзины.
const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

// Переменные окружения.
const (
	EnvConfigFile          = "CART_CONFIG_FILE"
	EnvGRPCAddr            = "CART_GRPC_ADDR"
	EnvMetricsAddr         = "CART_METRICS_ADDR"
	EnvStorageDriver       = "CART_STORAGE_DRIVER"
	EnvStorageKey          = "CART_STORAGE_KEY"
	EnvSQLitePath          = "CART_SQLITE_PATH"
	EnvPostgresDSN         = "CART_POSTGRES_DSN"
	EnvPostgresAutoMigrate = "CART_POSTGRES_AUTO_MIGRATE"
	EnvCatalogFile         = "CART_CATALOG_FILE"
	EnvKafkaBrokers        = "KAFKA_BROKERS"
	EnvEventsTopic         = "CART_EVENTS_TOPIC"
	EnvLogLevel            = "CART_LOG_LEVEL"

	EnvIdempotencyTTL             = "CART_IDEMPOTENCY_TTL"
	EnvIdempotencyCleanupInterval = "CART_IDEMPOTENCY_CLEANUP_INTERVAL"
)

// Config описывает настройки запуска cart-service.
type Config struct {
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	StorageDriver       string `yaml:"storage_driver"`
	StorageKey          string `yaml:"storage_key"`
	SQLitePath          string `yaml:"sqlite_path"`
	PostgresDSN         string `yaml:"postgres_dsn"`
	PostgresAutoMigrate bool   `yaml:"postgres_auto_migrate"`

	// CatalogFile — YAML-каталог товаров; пустое значение включает встроенный.
	CatalogFile string `yaml:"catalog_file"`

	// KafkaBrokers — список через запятую; пустое значение отключает события.
	KafkaBrokers string `yaml:"kafka_brokers"`
	EventsTopic  string `yaml:"events_topic"`

	LogLevel string `yaml:"log_level"`

	// IdempotencyTTL определяет, сколько хранится результат запроса с idempotency-key.
	IdempotencyTTL             time.Duration `yaml:"idempotency_ttl"`
	IdempotencyCleanupInterval time.Duration `yaml:"idempotency_cleanup_interval"`
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverSQLite,
		StorageKey:          domain.DefaultCartStorageKey,
		SQLitePath:          "cart.db",
		PostgresAutoMigrate: true,
		EventsTopic:         kafka.TopicCartEvents,
		LogLevel:            "info",

		IdempotencyTTL:             24 * time.Hour,
		IdempotencyCleanupInterval: 10 * time.Minute,
	}
}

// LoadConfigFromEnv собирает конфигурацию: значения по умолчанию, затем файл
// из CART_CONFIG_FILE (если задан), затем переменные окружения.
func LoadConfigFromEnv() (Config, error) {
	return LoadConfig(os.Getenv(EnvConfigFile))
}

// LoadConfig читает YAML-файл поверх значений по умолчанию и применяет env.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	fields := map[string]*string{
		EnvGRPCAddr:      &c.GRPCAddr,
		EnvMetricsAddr:   &c.MetricsAddr,
		EnvStorageDriver: &c.StorageDriver,
		EnvStorageKey:    &c.StorageKey,
		EnvSQLitePath:    &c.SQLitePath,
		EnvPostgresDSN:   &c.PostgresDSN,
		EnvCatalogFile:   &c.CatalogFile,
		EnvKafkaBrokers:  &c.KafkaBrokers,
		EnvEventsTopic:   &c.EventsTopic,
		EnvLogLevel:      &c.LogLevel,
	}
	for name, target := range fields {
		if value, ok := lookup(name); ok {
			*target = value
		}
	}

	if raw, ok := lookup(EnvPostgresAutoMigrate); ok && raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", EnvPostgresAutoMigrate, raw, err)
		}
		c.PostgresAutoMigrate = value
	}

	durations := map[string]*time.Duration{
		EnvIdempotencyTTL:             &c.IdempotencyTTL,
		EnvIdempotencyCleanupInterval: &c.IdempotencyCleanupInterval,
	}
	for name, target := range durations {
		raw, ok := lookup(name)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		value, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", name, raw, err)
		}
		*target = value
	}
	return nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory, StorageDriverSQLite, StorageDriverPostgres:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if c.StorageDriver == StorageDriverPostgres && strings.TrimSpace(c.PostgresDSN) == "" {
		return fmt.Errorf("%s is required for postgres storage driver", EnvPostgresDSN)
	}
	if c.StorageDriver == StorageDriverSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("%s is required for sqlite storage driver", EnvSQLitePath)
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("%s must be positive, got %s", EnvIdempotencyTTL, c.IdempotencyTTL)
	}
	if c.IdempotencyCleanupInterval <= 0 {
		return fmt.Errorf("%s must be positive, got %s", EnvIdempotencyCleanupInterval, c.IdempotencyCleanupInterval)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level возвращает уровень логирования; пустое значение означает info.
func (c Config) Level() (log.Level, error) {
	if strings.TrimSpace(c.LogLevel) == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Brokers разбирает KafkaBrokers в список адресов.
func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
