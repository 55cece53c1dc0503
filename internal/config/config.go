package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Grpc      GrpcConfig      `mapstructure:"grpc"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout_seconds"`
	WriteTimeout int      `mapstructure:"write_timeout_seconds"`
	IdleTimeout  int      `mapstructure:"idle_timeout_seconds"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

// GrpcConfig configures the gRPC health endpoint. Empty port disables it.
type GrpcConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time_seconds"`
}

type AuthConfig struct {
	JWTSecret          string `mapstructure:"jwt_secret"`
	JWTIssuer          string `mapstructure:"jwt_issuer"`
	AccessTokenMinutes int    `mapstructure:"access_token_minutes"`
	RefreshTokenHours  int    `mapstructure:"refresh_token_hours"`
	SecureCookies      bool   `mapstructure:"secure_cookies"`
	BcryptCost         int    `mapstructure:"bcrypt_cost"`
}

func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenMinutes) * time.Minute
}

func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenHours) * time.Hour
}

// RateLimitConfig limits /api/auth requests per client IP.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type EventsConfig struct {
	// Driver is "nats", "kafka" or empty to disable auth event publishing.
	Driver string      `mapstructure:"driver"`
	NATS   NATSConfig  `mapstructure:"nats"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type TelemetryConfig struct {
	Endpoint        string `mapstructure:"otlp_endpoint"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

func Load() (*Config, error) {
	// Get environment from ENV, default to "local"
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	v := viper.New()
	setDefaults(v, env)

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yaml")
	if dir := os.Getenv("CONFIG_PATH"); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("/configs")      // Kubernetes mount
	v.AddConfigPath("./configs")     // repo root
	v.AddConfigPath("../configs")    // IDE from cmd/
	v.AddConfigPath("../../configs") // IDE from cmd/server

	// Config file is optional - ENV variables cover everything
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables take precedence over the config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("events.nats.url", "NATS_URL")
	v.BindEnv("telemetry.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("env", env)
	v.SetDefault("log.level", "info")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout_seconds", 10)
	v.SetDefault("server.write_timeout_seconds", 10)
	v.SetDefault("server.idle_timeout_seconds", 120)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "college_erp")
	v.SetDefault("auth.jwt_issuer", "college-erp")
	v.SetDefault("auth.access_token_minutes", 15)
	v.SetDefault("auth.refresh_token_hours", 24*7)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("events.nats.subject", "college-erp.auth.events")
	v.SetDefault("events.kafka.topic", "college-erp.auth.events")
	v.SetDefault("telemetry.interval_seconds", 10)
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) is required")
	}
	if c.Auth.AccessTokenMinutes <= 0 || c.Auth.RefreshTokenHours <= 0 {
		return errors.New("auth token lifetimes must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must be positive, got %d", c.RateLimit.RequestsPerMinute)
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit.burst must not be negative, got %d", c.RateLimit.Burst)
	}
	switch c.Events.Driver {
	case "":
	case "nats":
		if c.Events.NATS.URL == "" {
			return errors.New("events.nats.url is required for the nats driver")
		}
	case "kafka":
		if len(c.Events.Kafka.Brokers) == 0 {
			return errors.New("events.kafka.brokers is required for the kafka driver")
		}
	default:
		return fmt.Errorf("unknown events.driver %q", c.Events.Driver)
	}
	return nil
}
