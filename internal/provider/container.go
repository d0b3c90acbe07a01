package provider

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tabiguide-next/internal/cache"
	"github.com/tabiguide-next/internal/config"
	"github.com/tabiguide-next/internal/constants"
	"github.com/tabiguide-next/internal/logger"
	"github.com/tabiguide-next/internal/models"
	"github.com/tabiguide-next/internal/queue"
	"github.com/tabiguide-next/internal/repository"
	"github.com/tabiguide-next/internal/service"
)

// Container dependency container
type Container struct {
	Config    *config.Config
	Publisher *queue.Publisher

	// Repositories
	ReferralStore repository.ReferralStore

	// Services
	ReferralService *service.ReferralService
}

// NewContainer opens the configured ledger store and wires the services
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	c := &Container{
		Config:    cfg,
		Publisher: queue.NewPublisher(&cfg.Queue),
	}
	if err := c.initRepositories(); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.initServices()
	return c, nil
}

// NewContainerWithStore wires services around an already opened store
func NewContainerWithStore(cfg *config.Config, store repository.ReferralStore) *Container {
	c := &Container{Config: cfg, ReferralStore: store}
	c.initServices()
	return c
}

func (c *Container) initRepositories() error {
	store, err := openReferralStore(c.Config)
	if err != nil {
		return err
	}
	c.ReferralStore = store
	logger.Infow("provider_referral_store_opened",
		"driver", c.Config.Ledger.Driver,
		"location", store.Location(),
	)
	return nil
}

func (c *Container) initServices() {
	ledger := c.Config.Ledger
	options := make([]service.ReferralServiceOption, 0, 2)
	if c.Publisher.Enabled() {
		options = append(options, service.WithEventPublisher(c.Publisher))
	}
	if cache.Enabled() {
		options = append(options, service.WithDashboardCache(cache.JSONCache{}, c.Config.Cache.DashboardTTL()))
	}
	c.ReferralService = service.NewReferralService(c.ReferralStore, service.ReferralLedgerOptions{
		FailOpenReads:         ledger.FailOpenReads,
		RecentLimit:           ledger.RecentLimit,
		DefaultCommissionRate: ledger.DefaultCommissionRate,
		DefaultReferralSource: ledger.DefaultReferralSource,
	}, options...)
}

// Close releases the store, the event publisher and the redis client
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.ReferralStore != nil {
		if err := c.ReferralStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close referral store: %w", err))
		}
	}
	if err := c.Publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event publisher: %w", err))
	}
	if err := cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	return errors.Join(errs...)
}

func openReferralStore(cfg *config.Config) (repository.ReferralStore, error) {
	switch cfg.Ledger.Driver {
	case "", constants.LedgerDriverJSON:
		return repository.NewJSONReferralStore(cfg.Ledger.Path), nil
	case constants.LedgerDriverBolt:
		return repository.OpenBoltReferralStore(cfg.Ledger.BoltPath)
	case constants.LedgerDriverSQLite, constants.LedgerDriverPostgres:
		if cfg.Ledger.Driver == constants.LedgerDriverSQLite {
			ensureSQLiteDir(cfg.Database.DSN)
		}
		db, err := models.OpenDB(cfg.Ledger.Driver, cfg.Database.DSN, models.DBPoolConfig{
			MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
			MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
			ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
			ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s ledger database: %w", cfg.Ledger.Driver, err)
		}
		if err := models.AutoMigrate(db); err != nil {
			_ = models.CloseDB(db)
			return nil, fmt.Errorf("migrate ledger database: %w", err)
		}
		return repository.NewGormReferralStore(db, cfg.Ledger.Driver), nil
	default:
		return nil, fmt.Errorf("unsupported ledger driver: %q", cfg.Ledger.Driver)
	}
}

// ensureSQLiteDir creates the parent directory of a file-backed sqlite DSN
func ensureSQLiteDir(dsn string) {
	path := strings.TrimPrefix(strings.TrimSpace(dsn), "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warnw("provider_sqlite_dir_create_failed", "path", path, "error", err)
	}
}
