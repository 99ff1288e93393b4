package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Feed      FeedConfig
	Sync      SyncConfig
	Dashboard DashboardConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver             string // postgres, mysql, sqlite
	Host               string
	Port               int
	User               string
	Password           string
	DBName             string
	SSLMode            string
	Path               string // sqlite file path
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    int // in minutes
	ConnMaxIdleTime    int // in minutes
	SlowQueryThreshold time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                string
	AccessTokenExpiration time.Duration
	Issuer                string
}

// AuthConfig holds the dashboard credential.
// PasswordHash takes precedence; Password is hashed at startup otherwise.
type AuthConfig struct {
	Email        string
	Password     string
	PasswordHash string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	RateLimitEnabled      bool
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	AuthRateLimitRequests int           // Max login attempts per window
	AuthRateLimitWindow   time.Duration // Login rate limit window
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
}

// FeedConfig holds the upstream storefront feed settings
type FeedConfig struct {
	BaseURL            string
	ProductsPath       string
	OrdersPath         string
	Timeout            time.Duration
	MaxResponseBytes   int64
	BreakerMaxFailures uint32        // consecutive failures before the breaker opens
	BreakerOpenTimeout time.Duration // how long the breaker stays open
}

// SyncConfig holds the sync job settings
type SyncConfig struct {
	Enabled         bool
	Minute          int           // minute of the hour the run fires at
	CheckInterval   time.Duration // how often the trigger checks the clock
	RunOnStart      bool
	IdentityMode    string // bounded, unbounded
	StatusStrategy  string // random, source, fixed:<Status>
	Placement       string // recent, hashed
	PlacementWindow time.Duration
	PlacementDays   int
	MultiplierMin   int
	MultiplierMax   int
	ItemCountMin    int
	ItemCountMax    int
	QuantityMin     int
	QuantityMax     int
	Seed            int64 // 0 means seed from the clock
	LockTTL         time.Duration
}

// DashboardConfig holds reporting settings
type DashboardConfig struct {
	CacheTTL time.Duration
}

// TelemetryConfig holds OpenTelemetry metrics, tracing and logs configuration
type TelemetryConfig struct {
	MetricsEnabled    bool
	TracingEnabled    bool
	LogsEnabled       bool
	CollectorEndpoint string // OTEL Collector endpoint (e.g., "localhost:4317")
	ExportInterval    time.Duration
	SamplingRatio     float64 // 0.0-1.0, fraction of traces kept
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	DBLogFullSQL      bool // Include query variables in database spans
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MAGPIE_ prefix (e.g., MAGPIE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("MAGPIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:             v.GetString("database.driver"),
			Host:               v.GetString("database.host"),
			Port:               v.GetInt("database.port"),
			User:               v.GetString("database.user"),
			Password:           v.GetString("database.password"),
			DBName:             v.GetString("database.dbname"),
			SSLMode:            v.GetString("database.sslmode"),
			Path:               v.GetString("database.path"),
			MaxOpenConns:       v.GetInt("database.max_open_conns"),
			MaxIdleConns:       v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime:    v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime:    v.GetInt("database.conn_max_idle_time"),
			SlowQueryThreshold: v.GetDuration("database.slow_query_threshold"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
			Issuer:                v.GetString("jwt.issuer"),
		},
		Auth: AuthConfig{
			Email:        v.GetString("auth.email"),
			Password:     v.GetString("auth.password"),
			PasswordHash: v.GetString("auth.password_hash"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:     v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:       v.GetDuration("http.rate_limit_window"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
		},
		Feed: FeedConfig{
			BaseURL:            v.GetString("feed.base_url"),
			ProductsPath:       v.GetString("feed.products_path"),
			OrdersPath:         v.GetString("feed.orders_path"),
			Timeout:            v.GetDuration("feed.timeout"),
			MaxResponseBytes:   v.GetInt64("feed.max_response_bytes"),
			BreakerMaxFailures: v.GetUint32("feed.breaker_max_failures"),
			BreakerOpenTimeout: v.GetDuration("feed.breaker_open_timeout"),
		},
		Sync: SyncConfig{
			Enabled:         v.GetBool("sync.enabled"),
			Minute:          v.GetInt("sync.minute"),
			CheckInterval:   v.GetDuration("sync.check_interval"),
			RunOnStart:      v.GetBool("sync.run_on_start"),
			IdentityMode:    v.GetString("sync.identity_mode"),
			StatusStrategy:  v.GetString("sync.status_strategy"),
			Placement:       v.GetString("sync.placement"),
			PlacementWindow: v.GetDuration("sync.placement_window"),
			PlacementDays:   v.GetInt("sync.placement_days"),
			MultiplierMin:   v.GetInt("sync.multiplier_min"),
			MultiplierMax:   v.GetInt("sync.multiplier_max"),
			ItemCountMin:    v.GetInt("sync.item_count_min"),
			ItemCountMax:    v.GetInt("sync.item_count_max"),
			QuantityMin:     v.GetInt("sync.quantity_min"),
			QuantityMax:     v.GetInt("sync.quantity_max"),
			Seed:            v.GetInt64("sync.seed"),
			LockTTL:         v.GetDuration("sync.lock_ttl"),
		},
		Dashboard: DashboardConfig{
			CacheTTL: v.GetDuration("dashboard.cache_ttl"),
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			TracingEnabled:    v.GetBool("telemetry.tracing_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
		},
	}

	// Keep every trace unless a ratio was configured
	if !v.IsSet("telemetry.sampling_ratio") {
		cfg.Telemetry.SamplingRatio = 1.0
	}

	// Sync is on unless explicitly disabled
	if !v.IsSet("sync.enabled") {
		cfg.Sync.Enabled = true
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "magpie-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		switch cfg.Database.Driver {
		case "mysql":
			cfg.Database.Port = 3306
		default:
			cfg.Database.Port = 5432
		}
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "magpie"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "magpie.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.SlowQueryThreshold == 0 {
		cfg.Database.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 24 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "magpie-backend"
	}
	if cfg.Auth.Email == "" {
		cfg.Auth.Email = "demo@magpieiq.com"
	}
	if cfg.Auth.Password == "" && cfg.Auth.PasswordHash == "" {
		cfg.Auth.Password = "magpieiq"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = time.Minute
	}
	// NOTE: CORS origins have no wildcard fallback. An empty list rejects
	// cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Feed.BaseURL == "" {
		cfg.Feed.BaseURL = "https://fake-store-api.mock.beeceptor.com/api"
	}
	if cfg.Feed.ProductsPath == "" {
		cfg.Feed.ProductsPath = "/products"
	}
	if cfg.Feed.OrdersPath == "" {
		cfg.Feed.OrdersPath = "/orders"
	}
	if cfg.Feed.Timeout == 0 {
		cfg.Feed.Timeout = 30 * time.Second
	}
	if cfg.Feed.MaxResponseBytes == 0 {
		cfg.Feed.MaxResponseBytes = 10 << 20 // 10MB
	}
	if cfg.Feed.BreakerMaxFailures == 0 {
		cfg.Feed.BreakerMaxFailures = 5
	}
	if cfg.Feed.BreakerOpenTimeout == 0 {
		cfg.Feed.BreakerOpenTimeout = 10 * time.Minute
	}
	if cfg.Sync.CheckInterval == 0 {
		cfg.Sync.CheckInterval = 30 * time.Second
	}
	if cfg.Sync.IdentityMode == "" {
		cfg.Sync.IdentityMode = "unbounded"
	}
	if cfg.Sync.StatusStrategy == "" {
		cfg.Sync.StatusStrategy = "random"
	}
	if cfg.Sync.Placement == "" {
		cfg.Sync.Placement = "recent"
	}
	if cfg.Sync.PlacementWindow == 0 {
		cfg.Sync.PlacementWindow = time.Hour
	}
	if cfg.Sync.PlacementDays == 0 {
		cfg.Sync.PlacementDays = 14
	}
	if cfg.Sync.MultiplierMin == 0 {
		cfg.Sync.MultiplierMin = 1
	}
	if cfg.Sync.MultiplierMax == 0 {
		cfg.Sync.MultiplierMax = 3
	}
	if cfg.Sync.ItemCountMin == 0 {
		cfg.Sync.ItemCountMin = 1
	}
	if cfg.Sync.ItemCountMax == 0 {
		cfg.Sync.ItemCountMax = 3
	}
	if cfg.Sync.QuantityMin == 0 {
		cfg.Sync.QuantityMin = 1
	}
	if cfg.Sync.QuantityMax == 0 {
		cfg.Sync.QuantityMax = 5
	}
	if cfg.Sync.LockTTL == 0 {
		cfg.Sync.LockTTL = 30 * time.Minute
	}
	if cfg.Dashboard.CacheTTL == 0 {
		cfg.Dashboard.CacheTTL = time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "magpie-backend"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("database.driver must be one of postgres, mysql, sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if err := c.Sync.validate(); err != nil {
		return err
	}

	if _, err := url.ParseRequestURI(c.Feed.BaseURL); err != nil {
		return fmt.Errorf("feed.base_url is invalid: %w", err)
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be within [0, 1], got %v", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Auth.PasswordHash == "" {
			return fmt.Errorf("auth.password_hash is required in production")
		}
		if c.Database.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

func (s *SyncConfig) validate() error {
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("sync.minute must be between 0 and 59, got %d", s.Minute)
	}
	switch s.IdentityMode {
	case "bounded", "unbounded":
	default:
		return fmt.Errorf("sync.identity_mode must be bounded or unbounded, got %q", s.IdentityMode)
	}
	switch s.Placement {
	case "recent", "hashed":
	default:
		return fmt.Errorf("sync.placement must be recent or hashed, got %q", s.Placement)
	}
	if s.StatusStrategy != "random" && s.StatusStrategy != "source" && !strings.HasPrefix(s.StatusStrategy, "fixed:") {
		return fmt.Errorf("sync.status_strategy must be random, source or fixed:<Status>, got %q", s.StatusStrategy)
	}
	ranges := []struct {
		name     string
		min, max int
	}{
		{"multiplier", s.MultiplierMin, s.MultiplierMax},
		{"item_count", s.ItemCountMin, s.ItemCountMax},
		{"quantity", s.QuantityMin, s.QuantityMax},
	}
	for _, r := range ranges {
		if r.min < 1 || r.max < r.min {
			return fmt.Errorf("sync.%s range [%d,%d] is invalid", r.name, r.min, r.max)
		}
	}
	if s.PlacementDays < 1 {
		return fmt.Errorf("sync.placement_days must be positive")
	}
	return nil
}

// DSN returns the connection string for the configured driver with properly escaped values
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "sqlite":
		return d.Path
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true",
			d.User, d.Password, d.Host, d.Port, d.DBName)
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
