package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ServiceName    = "inventory-service"
	ServiceVersion = "0.2.0"
)

const (
	OrderCreatedTopic = "order_created"
	GroupID           = "inventory-service-group"
	BrokerDialTimeout = 10 * time.Second
	BatchTimeout      = 10 * time.Millisecond
	BatchSize         = 100
)

const (
	LogsPath      = "/otlp/v1/logs"   // Grafana Cloud OTLP path
	TracesPath    = "/otlp/v1/traces" // Grafana Cloud OTLP path
	ExportTimeout = 30 * time.Second
	MaxQueueSize  = 2048
)

// AckMode selects when a delivered order event is acknowledged to the broker.
type AckMode string

const (
	// AckOnReceipt commits the offset as soon as the message is read.
	AckOnReceipt AckMode = "auto"
	// AckAfterHandle commits only once the handler has returned.
	AckAfterHandle AckMode = "after_handle"
)

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	RedisHost    string
	RedisPort    int
	StoreTimeout time.Duration
	DefaultStock int64

	BrokerHost        string
	BrokerPort        int
	BrokerMaxRetries  int
	BrokerRetryBase   time.Duration
	BrokerAckMode     AckMode
	BrokerGroupID     string
	OrderCreatedTopic string

	// OTLP export is disabled when OtelEndpoint is empty.
	OtelEndpoint   string
	OtelAuthHeader string
}

// RedisAddr returns host:port of the stock store.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// BrokerAddr returns host:port of the broker.
func (c *Config) BrokerAddr() string {
	return fmt.Sprintf("%s:%d", c.BrokerHost, c.BrokerPort)
}

// OtelEnabled reports whether traces and logs are exported over OTLP.
func (c *Config) OtelEnabled() bool {
	return c.OtelEndpoint != ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	return time.Duration(atoienv(key, defMs)) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	return time.Duration(atoienv(key, defSec)) * time.Second
}

// LoadConfig loads configuration from environment variables with defaults and validation
func LoadConfig() (*Config, error) {
	config := &Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":5001"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 10),

		RedisHost:    getenv("REDIS_HOST", "inventory-db"),
		RedisPort:    atoienv("REDIS_PORT", 6379),
		StoreTimeout: durenvms("REDIS_TIMEOUT_MS", 2000),
		DefaultStock: int64(atoienv("DEFAULT_STOCK", 100)),

		BrokerHost:        getenv("BROKER_HOST", "kafka"),
		BrokerPort:        atoienv("BROKER_PORT", 9092),
		BrokerMaxRetries:  atoienv("BROKER_MAX_RETRIES", 10),
		BrokerRetryBase:   durenvs("BROKER_RETRY_BASE", 2),
		BrokerAckMode:     AckMode(getenv("BROKER_ACK_MODE", string(AckOnReceipt))),
		BrokerGroupID:     getenv("BROKER_GROUP_ID", GroupID),
		OrderCreatedTopic: getenv("ORDER_CREATED_TOPIC", OrderCreatedTopic),

		OtelEndpoint:   os.Getenv("OTEL_ENDPOINT"),
		OtelAuthHeader: os.Getenv("OTEL_AUTH_HEADER"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.DefaultStock < 0 {
		return fmt.Errorf("DEFAULT_STOCK must be >= 0, got %d", c.DefaultStock)
	}
	if c.BrokerMaxRetries < 1 {
		return fmt.Errorf("BROKER_MAX_RETRIES must be >= 1, got %d", c.BrokerMaxRetries)
	}
	if c.BrokerRetryBase < 0 {
		return fmt.Errorf("BROKER_RETRY_BASE must be >= 0, got %s", c.BrokerRetryBase)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("REDIS_TIMEOUT_MS must be > 0, got %s", c.StoreTimeout)
	}
	switch c.BrokerAckMode {
	case AckOnReceipt, AckAfterHandle:
	default:
		return fmt.Errorf("BROKER_ACK_MODE must be %q or %q, got %q", AckOnReceipt, AckAfterHandle, c.BrokerAckMode)
	}
	if c.OtelEndpoint != "" && c.OtelAuthHeader == "" {
		return fmt.Errorf("OTEL_AUTH_HEADER environment variable is required when OTEL_ENDPOINT is set")
	}
	return nil
}
