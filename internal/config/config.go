package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration is the full application configuration tree. Values come from
// config/config.yaml overridden by VOLTBRIDGE_* environment variables.
type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Roaming    RoamingConfig    `mapstructure:"roaming"`
	Payment    PaymentConfig    `mapstructure:"payment"`
}

type DeploymentMode string

const (
	ModeLocal DeploymentMode = "local"
	ModeAPI   DeploymentMode = "api"
)

type DeploymentConfig struct {
	Mode DeploymentMode `mapstructure:"mode"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

// DSN renders the pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Type string        `mapstructure:"type"` // inmemory | redis
	TTL  time.Duration `mapstructure:"ttl"`
}

type WebhookConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	Secret   string        `mapstructure:"secret"`
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxRetry int           `mapstructure:"max_retry"`
}

type RoamingConfig struct {
	// Provider is the roaming clearinghouse identifier stamped on sessions.
	Provider string `mapstructure:"provider"`
	// TariffCacheTTL bounds how long resolved tariffs are served from cache.
	TariffCacheTTL time.Duration `mapstructure:"tariff_cache_ttl"`
}

type PaymentConfig struct {
	GatewayURL string        `mapstructure:"gateway_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// NewConfig loads configuration from ./config plus environment overrides.
func NewConfig() (*Configuration, error) {
	// Best effort: a missing .env is fine outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("voltbridge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(ModeAPI))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "voltbridge")
	v.SetDefault("postgres.dbname", "voltbridge")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("cache.type", "inmemory")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.timeout", 5*time.Second)
	v.SetDefault("webhook.max_retry", 3)
	v.SetDefault("roaming.provider", "hubject")
	v.SetDefault("roaming.tariff_cache_ttl", 10*time.Minute)
	v.SetDefault("payment.timeout", 10*time.Second)
}

// GetDefaultConfig returns a configuration suitable for tests and scripts.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: "debug"},
		Cache:      CacheConfig{Type: "inmemory", TTL: 5 * time.Minute},
		Roaming:    RoamingConfig{Provider: "hubject", TariffCacheTTL: 10 * time.Minute},
		Webhook:    WebhookConfig{Enabled: false, Timeout: 5 * time.Second, MaxRetry: 3},
	}
}
