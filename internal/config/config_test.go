package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "ENVIRONMENT", "KAFKA_BROKERS", "REDIS_ADDR", "CACHE_TTL", "RATE_LIMIT_RPS", "ALLOWED_ORIGINS",
		"AUTO_MIGRATE", "NOTIFY_QUEUE_SIZE", "NOTIFY_ENQUEUE_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "inventory.low-stock", cfg.KafkaTopicLowStock)
	assert.Equal(t, 300*time.Second, cfg.CacheTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 20.0, cfg.RateLimitRPS)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 256, cfg.NotifyQueueSize)
	assert.Equal(t, 50*time.Millisecond, cfg.NotifyEnqueueTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CACHE_TTL", "90")
	t.Setenv("NOTIFY_WORKERS", "not-a-number")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("NOTIFY_ENQUEUE_TIMEOUT", "200ms")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 2, cfg.NotifyWorkers)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 200*time.Millisecond, cfg.NotifyEnqueueTimeout)
}

func TestGetEnvAsBool(t *testing.T) {
	for value, want := range map[string]bool{"1": true, "TRUE": true, "t": true, "0": false, "false": false, "yes": false} {
		t.Setenv("TEST_BOOL", value)
		assert.Equal(t, want, getEnvAsBool("TEST_BOOL", false), value)
	}
	t.Setenv("TEST_BOOL", "")
	assert.True(t, getEnvAsBool("TEST_BOOL", true))
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "5m")
	assert.Equal(t, 5*time.Minute, getEnvAsDuration("TEST_DURATION", time.Second))
	t.Setenv("TEST_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_DURATION", time.Second))
}
