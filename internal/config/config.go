package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/tabiguide-next/internal/constants"
	"github.com/tabiguide-next/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig HTTP listener settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release

	// ShutdownTimeoutSeconds bounds graceful shutdown before the ledger store is closed
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// ShutdownTimeout returns the graceful shutdown budget
func (c ServerConfig) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// LogConfig log output settings
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions converts to logger options
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		Level:      c.Level,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// LedgerConfig referral ledger settings
type LedgerConfig struct {
	Driver                string `mapstructure:"driver"` // json / sqlite / postgres / bolt
	Path                  string `mapstructure:"path"`
	BoltPath              string `mapstructure:"bolt_path"`
	FailOpenReads         bool   `mapstructure:"fail_open_reads"`
	RecentLimit           int    `mapstructure:"recent_limit"`
	DefaultCommissionRate string `mapstructure:"default_commission_rate"`
	DefaultReferralSource string `mapstructure:"default_referral_source"`
}

// DatabasePoolConfig connection pool settings
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig gorm connection settings, used by the sqlite and postgres ledger drivers
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"`
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig redis connection settings
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// CacheConfig cache TTLs
type CacheConfig struct {
	DashboardTTLSeconds int `mapstructure:"dashboard_ttl_seconds"`
}

// DashboardTTL returns the dashboard cache TTL
func (c CacheConfig) DashboardTTL() time.Duration {
	if c.DashboardTTLSeconds <= 0 {
		return constants.DashboardCacheTTLDefault * time.Second
	}
	return time.Duration(c.DashboardTTLSeconds) * time.Second
}

// QueueConfig asynq settings for ledger event notifications
type QueueConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	Concurrency int    `mapstructure:"concurrency"`
	Queue       string `mapstructure:"queue"`
	MaxRetry    int    `mapstructure:"max_retry"`
}

// SnapshotConfig periodic ledger snapshot settings
type SnapshotConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
	Dir      string `mapstructure:"dir"`
	Keep     int    `mapstructure:"keep"`
}

// CORSConfig cross-origin settings
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig request protection settings
type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig fixed-window limiter applied to ledger writes
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// Load reads config.yml, .env and environment overrides
func Load() *Config {
	cfg, err := load(viper.New())
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(err)
	}
	return cfg
}

func load(v *viper.Viper) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warnw("config_dotenv_load_failed", "error", err)
		}
	} else {
		logger.Infow("config_dotenv_loaded", "file", ".env")
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../") // when started from cmd/server
	v.AddConfigPath("./etc")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // ledger.path -> LEDGER_PATH

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}
	cfg.Ledger.Driver = strings.ToLower(strings.TrimSpace(cfg.Ledger.Driver))
	switch cfg.Ledger.Driver {
	case constants.LedgerDriverJSON, constants.LedgerDriverSQLite, constants.LedgerDriverPostgres, constants.LedgerDriverBolt:
	default:
		return nil, fmt.Errorf("unsupported ledger driver: %q", cfg.Ledger.Driver)
	}
	if cfg.Ledger.RecentLimit <= 0 {
		cfg.Ledger.RecentLimit = constants.DefaultRecentReferralLimit
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "ledger.log")
	v.SetDefault("log.level", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("ledger.driver", constants.LedgerDriverJSON)
	v.SetDefault("ledger.path", constants.LedgerPathDefault)
	v.SetDefault("ledger.bolt_path", constants.LedgerBoltPathDefault)
	v.SetDefault("ledger.fail_open_reads", true)
	v.SetDefault("ledger.recent_limit", constants.DefaultRecentReferralLimit)
	v.SetDefault("ledger.default_commission_rate", constants.DefaultCommissionRate)
	v.SetDefault("ledger.default_referral_source", constants.DefaultReferralSource)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/ledger.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", constants.RedisPrefixDefault)
	v.SetDefault("cache.dashboard_ttl_seconds", constants.DashboardCacheTTLDefault)
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.queue", constants.QueueLedgerEvents)
	v.SetDefault("queue.max_retry", constants.TaskMaxRetry)
	v.SetDefault("snapshot.enabled", false)
	v.SetDefault("snapshot.schedule", constants.SnapshotScheduleDefault)
	v.SetDefault("snapshot.dir", constants.SnapshotDirDefault)
	v.SetDefault("snapshot.keep", constants.SnapshotKeepDefault)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.rate_limit.window_seconds", 60)
	v.SetDefault("security.rate_limit.max_requests", 30)
}
