package redis

import (
	"fmt"

	"inventoryservice/internal/config"

	"github.com/redis/go-redis/extra/redisotel/v9"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

// NewClient builds the stock store client. go-redis connects lazily, so this
// performs no network I/O; every call is bounded by the configured store timeout.
func NewClient(cfg *config.Config, tp trace.TracerProvider) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.RedisAddr(),
		DialTimeout:  cfg.StoreTimeout,
		ReadTimeout:  cfg.StoreTimeout,
		WriteTimeout: cfg.StoreTimeout,
		// Deadlines set by callers bound the whole call, retries included.
		ContextTimeoutEnabled: true,
	})

	if err := redisotel.InstrumentTracing(client, redisotel.WithTracerProvider(tp)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("instrument redis client: %w", err)
	}
	return client, nil
}
