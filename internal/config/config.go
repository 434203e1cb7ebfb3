package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const minSecretKeyLength = 32

var insecureSecretPlaceholders = map[string]struct{}{
	"change_me_in_production":                    {},
	"replace_with_at_least_32_random_characters": {},
}

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	AllowedOrigins  string
}

type DatabaseConfig struct {
	Driver          string
	Path            string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
}

type AuthConfig struct {
	SecretKey     string
	TokenTTL      time.Duration
	AdminEmail    string
	AdminPassword string
}

type LogConfig struct {
	Level  string
	Format string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (cfg KafkaConfig) Enabled() bool {
	return len(cfg.Brokers) > 0
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	SampleRate  float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("RATE_LIMIT_RPS", 20.0)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", "data/telecare.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("DB_SLOW_QUERY_THRESHOLD", 200*time.Millisecond)

	v.SetDefault("SECRET_KEY", "")
	v.SetDefault("TOKEN_TTL", 12*time.Hour)
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "telecare.events")

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "telecare")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLE_RATE", 0.1)
}

// Load reads configuration from the environment and, when CONFIG_FILE is set,
// from that file. Environment variables win over file values.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            strings.TrimSpace(v.GetString("PORT")),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
			RateLimitRPS:    v.GetFloat64("RATE_LIMIT_RPS"),
			RateLimitBurst:  v.GetInt("RATE_LIMIT_BURST"),
			AllowedOrigins:  v.GetString("CORS_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
			Path:            v.GetString("DB_PATH"),
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			SlowThreshold:   v.GetDuration("DB_SLOW_QUERY_THRESHOLD"),
		},
		Auth: AuthConfig{
			SecretKey:     strings.TrimSpace(v.GetString("SECRET_KEY")),
			TokenTTL:      v.GetDuration("TOKEN_TTL"),
			AdminEmail:    strings.ToLower(strings.TrimSpace(v.GetString("ADMIN_EMAIL"))),
			AdminPassword: v.GetString("ADMIN_PASSWORD"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("TRACING_ENABLED"),
			ServiceName: v.GetString("TRACING_SERVICE_NAME"),
			Endpoint:    v.GetString("OTLP_ENDPOINT"),
			SampleRate:  v.GetFloat64("TRACING_SAMPLE_RATE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	var problems []string

	if err := ValidateSecretKey(cfg.Auth.SecretKey); err != nil {
		problems = append(problems, err.Error())
	}
	if err := ValidatePort(cfg.Server.Port); err != nil {
		problems = append(problems, err.Error())
	}
	switch cfg.Database.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.Database.Path) == "" {
			problems = append(problems, "DB_PATH is required for sqlite")
		}
	case "postgres":
		if strings.TrimSpace(cfg.Database.URL) == "" {
			problems = append(problems, "DATABASE_URL is required for postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported DB_DRIVER %q", cfg.Database.Driver))
	}
	if cfg.Auth.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func ValidateSecretKey(secret string) error {
	if secret == "" {
		return errors.New("SECRET_KEY is required")
	}
	if _, insecure := insecureSecretPlaceholders[strings.ToLower(secret)]; insecure {
		return errors.New("SECRET_KEY uses an insecure placeholder value")
	}
	if len(secret) < minSecretKeyLength {
		return fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretKeyLength)
	}
	return nil
}

func ValidatePort(port string) error {
	if port == "" {
		return errors.New("PORT is required")
	}
	for _, char := range port {
		if char < '0' || char > '9' {
			return fmt.Errorf("PORT %q is not numeric", port)
		}
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
