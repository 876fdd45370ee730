package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

// clearOverrides blanks the env vars a test asserts against so ambient
// values cannot leak in. Empty values read as unset.
func clearOverrides(t *testing.T) {
	t.Helper()
	for _, name := range []string{"DB_URL", "POSTGRES_URL", "REDIS_URL", "KAFKA_BROKERS", "HTTP_PORT", "GRPC_PORT", "ADMIN_CODE_HASH", "OUTBOX_POLL_SECONDS"} {
		t.Setenv(name, "")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	clearOverrides(t)
	t.Setenv("ADMIN_CODE_ALLOW_PLAIN", "true")
	t.Setenv("ADMIN_CODE", "dev-code")

	path := writeConfigFile(t, `
service:
  id: invest-core-test
  http_port: 18080
  grpc_port: 19090
dependencies:
  postgres_url: postgres://localhost:5432/test
  redis_url: redis://localhost:6379/1
  kafka_brokers: [localhost:9092]
  kafka_topic: test.events
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceID != "invest-core-test" || cfg.HTTPPort != 18080 || cfg.GRPCPort != 19090 {
		t.Fatalf("service section not applied: %+v", cfg)
	}
	if cfg.DatabaseURL != "postgres://localhost:5432/test" || cfg.RedisURL != "redis://localhost:6379/1" {
		t.Fatalf("dependency urls not applied: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaTopic != "test.events" {
		t.Fatalf("kafka section not applied: %+v", cfg)
	}
	// Untouched fields keep their defaults.
	if cfg.IdempotencyTTL != 24*time.Hour || cfg.OutboxPollInterval != 2*time.Second {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearOverrides(t)
	t.Setenv("DB_URL", "postgres://db-override:5432/app")
	t.Setenv("REDIS_URL", "redis://redis-override:6379/0")
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092")
	t.Setenv("HTTP_PORT", "8888")
	t.Setenv("ADMIN_CODE_HASH", "$2a$10$examplehash")
	t.Setenv("OUTBOX_POLL_SECONDS", "5")

	path := writeConfigFile(t, `
dependencies:
  postgres_url: postgres://file:5432/app
  redis_url: redis://file:6379/0
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DatabaseURL != "postgres://db-override:5432/app" {
		t.Fatalf("env must win over file, got %s", cfg.DatabaseURL)
	}
	if cfg.RedisURL != "redis://redis-override:6379/0" {
		t.Fatalf("env must win over file, got %s", cfg.RedisURL)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b2:9092" {
		t.Fatalf("broker csv not parsed: %+v", cfg.KafkaBrokers)
	}
	if cfg.HTTPPort != 8888 || cfg.OutboxPollInterval != 5*time.Second {
		t.Fatalf("numeric overrides not applied: %+v", cfg)
	}
}

func TestLoadConfigRequiresAdminCredential(t *testing.T) {
	clearOverrides(t)
	t.Setenv("ADMIN_CODE_ALLOW_PLAIN", "false")
	t.Setenv("ADMIN_CODE", "")
	t.Setenv("DB_URL", "postgres://localhost:5432/app")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error without an admin credential")
	}
}

func TestLoadConfigRequiresDatabase(t *testing.T) {
	clearOverrides(t)
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ADMIN_CODE_ALLOW_PLAIN", "true")

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error without a database url")
	}
}
