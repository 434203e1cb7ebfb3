package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func TestValidateSecretKey(t *testing.T) {
	cases := map[string]bool{
		"":                        false,
		"change_me_in_production": false,
		"replace_with_at_least_32_random_characters": false,
		"too-short-secret": false,
		validSecret:        true,
	}
	for secret, valid := range cases {
		err := ValidateSecretKey(secret)
		if valid && err != nil {
			t.Fatalf("expected %q to be accepted, got %v", secret, err)
		}
		if !valid && err == nil {
			t.Fatalf("expected %q to be rejected", secret)
		}
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("SECRET_KEY", validSecret)
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("expected sqlite driver by default, got %q", cfg.Database.Driver)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Fatalf("expected 12h token ttl, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Kafka.Enabled() {
		t.Fatal("expected kafka to be disabled without brokers")
	}
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	t.Setenv("SECRET_KEY", validSecret)
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("ADMIN_EMAIL", "  Root@Example.com ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != 90*time.Minute {
		t.Fatalf("expected 90m ttl, got %s", cfg.Auth.TokenTTL)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %#v", cfg.Kafka.Brokers)
	}
	if cfg.Auth.AdminEmail != "root@example.com" {
		t.Fatalf("expected normalized admin email, got %q", cfg.Auth.AdminEmail)
	}
}

func TestLoadRejectsPostgresWithoutURL(t *testing.T) {
	t.Setenv("SECRET_KEY", validSecret)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telecare.yaml")
	content := "port: \"7070\"\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("SECRET_KEY", validSecret)
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected port from file, got %q", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected log level from file, got %q", cfg.Log.Level)
	}
}
