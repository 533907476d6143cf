package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	MaxDBConns  int

	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string

	LedgerRPCURL          string
	LedgerPlatformAddress string
	LedgerPlatformSeed    string
	LedgerTimeout         time.Duration
	LedgerSettleTimeout   time.Duration
	LedgerPollInterval    time.Duration

	RedisURL string
	LockTTL  time.Duration

	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	EnableMetrics bool
}

type configFile struct {
	Server struct {
		Port        string   `yaml:"port"`
		Environment string   `yaml:"environment"`
		LogLevel    string   `yaml:"log_level"`
		CORSOrigins []string `yaml:"cors_origins"`
		Metrics     *bool    `yaml:"metrics"`
	} `yaml:"server"`
	Database struct {
		URL      string `yaml:"url"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		MaxConns int    `yaml:"max_conns"`
	} `yaml:"database"`
	Ledger struct {
		RPCURL          string `yaml:"rpc_url"`
		PlatformAddress string `yaml:"platform_address"`
		Timeout         string `yaml:"timeout"`
		SettleTimeout   string `yaml:"settle_timeout"`
		PollInterval    string `yaml:"poll_interval"`
	} `yaml:"ledger"`
	Redis struct {
		URL     string `yaml:"url"`
		LockTTL string `yaml:"lock_ttl"`
	} `yaml:"redis"`
	PubNub struct {
		PublishKey   string `yaml:"publish_key"`
		SubscribeKey string `yaml:"subscribe_key"`
	} `yaml:"pubnub"`
}

// LoadConfig resolves configuration as defaults, then the YAML file at path
// (skipped when absent), then environment variables. Secrets are only read
// from the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Port:                "8080",
		Environment:         "development",
		LogLevel:            "info",
		DBPort:              "5432",
		MaxDBConns:          20,
		TokenTTL:            24 * time.Hour,
		CORSOrigins:         []string{"http://localhost:5173"},
		LedgerRPCURL:        "https://s.altnet.rippletest.net:51234/",
		LedgerTimeout:       60 * time.Second,
		LedgerSettleTimeout: 90 * time.Second,
		LedgerPollInterval:  time.Second,
		LockTTL:             5 * time.Minute,
		EnableMetrics:       true,
	}

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = envOrDefault("PORT", cfg.Port)
	cfg.Environment = envOrDefault("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.DBHost = envOrDefault("DB_HOST", cfg.DBHost)
	cfg.DBPort = envOrDefault("DB_PORT", cfg.DBPort)
	cfg.DBUser = envOrDefault("DB_USER", cfg.DBUser)
	cfg.DBPassword = envOrDefault("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = envOrDefault("DB_NAME", cfg.DBName)
	cfg.MaxDBConns = envInt("DB_MAX_CONNS", cfg.MaxDBConns)
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.CORSOrigins = envCSV("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.LedgerRPCURL = envOrDefault("LEDGER_RPC_URL", cfg.LedgerRPCURL)
	cfg.LedgerPlatformAddress = envOrDefault("LEDGER_PLATFORM_ADDRESS", cfg.LedgerPlatformAddress)
	cfg.LedgerPlatformSeed = os.Getenv("LEDGER_PLATFORM_SEED")
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.PubNubPublishKey = envOrDefault("PUBNUB_PUBLISH_KEY", cfg.PubNubPublishKey)
	cfg.PubNubSubscribeKey = envOrDefault("PUBNUB_SUBSCRIBE_KEY", cfg.PubNubSubscribeKey)
	cfg.PubNubSecretKey = os.Getenv("PUBNUB_SECRET_KEY")
	cfg.EnableMetrics = envBool("ENABLE_METRICS", cfg.EnableMetrics)

	var err error
	if cfg.LedgerTimeout, err = envDuration("LEDGER_TIMEOUT", cfg.LedgerTimeout); err != nil {
		return nil, err
	}
	if cfg.LedgerSettleTimeout, err = envDuration("LEDGER_SETTLE_TIMEOUT", cfg.LedgerSettleTimeout); err != nil {
		return nil, err
	}
	if cfg.LedgerPollInterval, err = envDuration("LEDGER_POLL_INTERVAL", cfg.LedgerPollInterval); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = envDuration("LOCK_TTL", cfg.LockTTL); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&cfg.Port, f.Server.Port)
	setString(&cfg.Environment, f.Server.Environment)
	setString(&cfg.LogLevel, f.Server.LogLevel)
	if len(f.Server.CORSOrigins) > 0 {
		cfg.CORSOrigins = f.Server.CORSOrigins
	}
	if f.Server.Metrics != nil {
		cfg.EnableMetrics = *f.Server.Metrics
	}
	setString(&cfg.DatabaseURL, f.Database.URL)
	setString(&cfg.DBHost, f.Database.Host)
	setString(&cfg.DBPort, f.Database.Port)
	setString(&cfg.DBUser, f.Database.User)
	setString(&cfg.DBPassword, f.Database.Password)
	setString(&cfg.DBName, f.Database.Name)
	if f.Database.MaxConns > 0 {
		cfg.MaxDBConns = f.Database.MaxConns
	}
	setString(&cfg.LedgerRPCURL, f.Ledger.RPCURL)
	setString(&cfg.LedgerPlatformAddress, f.Ledger.PlatformAddress)
	setString(&cfg.RedisURL, f.Redis.URL)
	setString(&cfg.PubNubPublishKey, f.PubNub.PublishKey)
	setString(&cfg.PubNubSubscribeKey, f.PubNub.SubscribeKey)

	for _, d := range []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{f.Ledger.Timeout, &cfg.LedgerTimeout, "ledger.timeout"},
		{f.Ledger.SettleTimeout, &cfg.LedgerSettleTimeout, "ledger.settle_timeout"},
		{f.Ledger.PollInterval, &cfg.LedgerPollInterval, "ledger.poll_interval"},
		{f.Redis.LockTTL, &cfg.LockTTL, "redis.lock_ttl"},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse config file: %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func (cfg *Config) validate() error {
	if cfg.DatabaseURL == "" && (cfg.DBHost == "" || cfg.DBName == "") {
		return fmt.Errorf("missing DATABASE_URL or DB_HOST/DB_NAME")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}
	if cfg.LedgerPlatformAddress == "" || cfg.LedgerPlatformSeed == "" {
		return fmt.Errorf("missing LEDGER_PLATFORM_ADDRESS or LEDGER_PLATFORM_SEED")
	}
	if cfg.LedgerSettleTimeout <= 0 {
		return fmt.Errorf("LEDGER_SETTLE_TIMEOUT must be positive")
	}
	return cfg.validateLock()
}

// validateLock checks that a Redis lease outlives the longest purchase: the
// ledger timeout plus a settle window for both the mint and the transfer.
func (cfg *Config) validateLock() error {
	if cfg.RedisURL == "" {
		return nil
	}
	if cfg.LedgerTimeout <= 0 {
		return fmt.Errorf("LEDGER_TIMEOUT must be positive when REDIS_URL is set")
	}
	if limit := cfg.LedgerTimeout + 2*cfg.LedgerSettleTimeout; cfg.LockTTL <= limit {
		return fmt.Errorf("LOCK_TTL (%s) must exceed LEDGER_TIMEOUT plus two LEDGER_SETTLE_TIMEOUT (%s)", cfg.LockTTL, limit)
	}
	return nil
}

func (cfg *Config) IsProduction() bool {
	return strings.EqualFold(cfg.Environment, "production")
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the
// DB_* settings.
func (cfg *Config) DSN() string {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envDuration accepts Go durations ("90s") and bare seconds ("90").
func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
