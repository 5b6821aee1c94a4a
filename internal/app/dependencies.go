package app

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	"github.com/vladislavdragonenkov/storefront/internal/storage/sqlite"
)

// runtimeDependencies — зависимости, зависящие от выбранного драйвера хранилища.
type runtimeDependencies struct {
	repo           domain.CartRepository
	idempotency    domain.IdempotencyRepository
	catalog        domain.ProductCatalog
	storageChecker healthcheck.Checker
	closeFn        func() error
}

// initRuntimeDependencies открывает хранилище корзины и загружает каталог.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	products, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	// ключи идемпотентности переживают рестарт только вместе с PostgreSQL
	deps := &runtimeDependencies{catalog: products, idempotency: memory.NewIdempotencyRepository()}

	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		repo := memory.NewCartRepository(cfg.StorageKey)
		deps.repo = repo
		deps.storageChecker = healthcheck.NewPingChecker("storage", repo)
		logger.Warn("memory storage selected, cart will not survive restart")

	case StorageDriverSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, fmt.Errorf("%s is required for sqlite storage driver", EnvSQLitePath)
		}
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		repo := sqlite.NewCartRepository(store, cfg.StorageKey)
		deps.repo = repo
		deps.storageChecker = healthcheck.NewPingChecker("storage", repo)
		deps.closeFn = store.Close
		logger.WithField("path", store.Path()).Info("sqlite storage initialized")

	case StorageDriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, fmt.Errorf("%s is required for postgres storage driver", EnvPostgresDSN)
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		repo := postgres.NewCartRepository(store, cfg.StorageKey)
		deps.repo = repo
		deps.idempotency = postgres.NewIdempotencyRepository(store)
		deps.storageChecker = healthcheck.NewPingChecker("storage", repo)
		deps.closeFn = store.Close
		logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("postgres storage initialized")

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	return deps, nil
}

func loadCatalog(path string) (domain.ProductCatalog, error) {
	if strings.TrimSpace(path) == "" {
		products, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("load default catalog: %w", err)
		}
		return products, nil
	}
	products, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return products, nil
}

// close освобождает ресурсы хранилища.
func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}
