package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"

	GatewayHTTP  = "http"
	GatewayMySQL = "mysql"
)

// Config holds all storefront client configuration
type Config struct {
	App     AppConfig
	API     APIConfig
	Session SessionConfig
	Redis   RedisConfig
	Catalog CatalogConfig
	Gateway GatewayConfig
	Log     LogConfig
	Serve   ServeConfig
	Sync    SyncConfig
}

type AppConfig struct {
	Env string
	// Profile names the saved session, so several accounts can be signed in
	// side by side.
	Profile string
}

type APIConfig struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	RateLimit  float64 // requests per second, 0 disables
	RateBurst  int
	MaxRetries int
}

type SessionConfig struct {
	Store     string // redis, memory
	KeyPrefix string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type CatalogConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// GatewayConfig selects where carts are read from and written to.
type GatewayConfig struct {
	Driver   string // http, mysql
	MySQLDSN string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

type ServeConfig struct {
	HTTPAddr string
	GRPCAddr string
}

type SyncConfig struct {
	PushTimeout  time.Duration
	FlushTimeout time.Duration
}

// Load reads configuration from path, or from storefront.toml in the usual
// places when path is empty.
//
// Priority (highest to lowest):
// 1. Environment variables with STOREFRONT_ prefix (e.g. STOREFRONT_API_BASE_URL)
// 2. the config file
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("storefront")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/storefront")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("catalog.cache_enabled", true)

	cfg := &Config{
		App: AppConfig{
			Env:     v.GetString("app.env"),
			Profile: v.GetString("app.profile"),
		},
		API: APIConfig{
			BaseURL:    v.GetString("api.base_url"),
			Timeout:    v.GetDuration("api.timeout"),
			UserAgent:  v.GetString("api.user_agent"),
			RateLimit:  v.GetFloat64("api.rate_limit"),
			RateBurst:  v.GetInt("api.rate_burst"),
			MaxRetries: v.GetInt("api.max_retries"),
		},
		Session: SessionConfig{
			Store:     v.GetString("session.store"),
			KeyPrefix: v.GetString("session.key_prefix"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Catalog: CatalogConfig{
			CacheEnabled: v.GetBool("catalog.cache_enabled"),
			CacheTTL:     v.GetDuration("catalog.cache_ttl"),
		},
		Gateway: GatewayConfig{
			Driver:   v.GetString("gateway.driver"),
			MySQLDSN: v.GetString("gateway.mysql_dsn"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Serve: ServeConfig{
			HTTPAddr: v.GetString("serve.http_addr"),
			GRPCAddr: v.GetString("serve.grpc_addr"),
		},
		Sync: SyncConfig{
			PushTimeout:  v.GetDuration("sync.push_timeout"),
			FlushTimeout: v.GetDuration("sync.flush_timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Profile == "" {
		cfg.App.Profile = "default"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:5000/api"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 15 * time.Second
	}
	if cfg.API.UserAgent == "" {
		cfg.API.UserAgent = "bakery-storefront/1.0"
	}
	if cfg.API.RateBurst == 0 {
		cfg.API.RateBurst = 5
	}
	if cfg.API.MaxRetries == 0 {
		cfg.API.MaxRetries = 2
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = SessionStoreRedis
	}
	if cfg.Session.KeyPrefix == "" {
		cfg.Session.KeyPrefix = "storefront:"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Catalog.CacheTTL == 0 {
		cfg.Catalog.CacheTTL = 10 * time.Minute
	}
	if cfg.Gateway.Driver == "" {
		cfg.Gateway.Driver = GatewayHTTP
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Serve.HTTPAddr == "" {
		cfg.Serve.HTTPAddr = ":8081"
	}
	if cfg.Serve.GRPCAddr == "" {
		cfg.Serve.GRPCAddr = ":9091"
	}
	if cfg.Sync.PushTimeout == 0 {
		cfg.Sync.PushTimeout = 10 * time.Second
	}
	if cfg.Sync.FlushTimeout == 0 {
		cfg.Sync.FlushTimeout = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout cannot be negative")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit cannot be negative")
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries cannot be negative")
	}

	switch c.Session.Store {
	case SessionStoreRedis, SessionStoreMemory:
	default:
		return fmt.Errorf("session.store must be %q or %q, got %q", SessionStoreRedis, SessionStoreMemory, c.Session.Store)
	}

	switch c.Gateway.Driver {
	case GatewayHTTP:
	case GatewayMySQL:
		if c.Gateway.MySQLDSN == "" {
			return fmt.Errorf("gateway.mysql_dsn is required when gateway.driver is %q", GatewayMySQL)
		}
	default:
		return fmt.Errorf("gateway.driver must be %q or %q, got %q", GatewayHTTP, GatewayMySQL, c.Gateway.Driver)
	}

	if strings.ContainsAny(c.App.Profile, ": \t") {
		return fmt.Errorf("app.profile cannot contain spaces or colons")
	}

	if c.App.Env == "production" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must use https in production")
	}

	return nil
}
