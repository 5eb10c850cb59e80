package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string
	AutoMigrate    bool
	Port           string
	Environment    string
	JWTSecret      string
	AllowedOrigins []string

	// Kafka. An empty broker list selects the log notifier.
	KafkaBrokers       []string
	KafkaTopicLowStock string
	KafkaClientID      string
	KafkaGroupID       string
	KafkaRetries       int

	// Redis. An empty address disables the read cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Low-stock dispatch. The queue holds NotifyQueueSize events (default 256); when
	// it is full Emit waits up to NotifyEnqueueTimeout (default 50ms) before dropping.
	NotifyWorkers        int
	NotifyQueueSize      int
	NotifyEnqueueTimeout time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from the environment, after loading .env when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AutoMigrate:    getEnvAsBool("AUTO_MIGRATE", false),
		Port:           getEnv("SERVER_PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopicLowStock: getEnv("KAFKA_TOPIC_LOW_STOCK", "inventory.low-stock"),
		KafkaClientID:      getEnv("KAFKA_CLIENT_ID", "inventory-transfer"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "low-stock-notifier"),
		KafkaRetries:       getEnvAsInt("KAFKA_RETRIES", 3),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		CacheTTL:      getEnvAsDuration("CACHE_TTL", 300*time.Second),

		NotifyWorkers:        getEnvAsInt("NOTIFY_WORKERS", 2),
		NotifyQueueSize:      getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
		NotifyEnqueueTimeout: getEnvAsDuration("NOTIFY_ENQUEUE_TIMEOUT", 50*time.Millisecond),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 40),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// getEnvAsDuration accepts Go duration strings ("5m") or a plain number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
