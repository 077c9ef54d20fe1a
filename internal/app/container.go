package app

import (
	"context"
	"fmt"
	"net/http"

	"inventoryservice/internal/broker"
	"inventoryservice/internal/config"
	"inventoryservice/internal/httpapi"
	"inventoryservice/internal/inventory"
	"inventoryservice/internal/platform/kafka"
	"inventoryservice/internal/platform/observability"
	platformredis "inventoryservice/internal/platform/redis"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// Container holds expensive-to-create singleton resources and dependencies.
// Building it performs no network I/O: the store client and the broker
// manager both connect on first use.
type Container struct {
	config          *config.Config
	logger          *zap.Logger
	tracer          observability.Tracer
	registry        *prometheus.Registry
	redisClient     *goredis.Client
	brokerManager   *broker.Manager
	inventory       *inventory.DefaultService
	consumerService *inventory.KafkaConsumerService
	router          http.Handler
	otelShutdown    observability.ShutdownFunc
}

// NewContainer creates and initializes all infrastructure components
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewContainerWithConfig(ctx, cfg)
}

// NewContainerWithConfig is NewContainer with an explicit configuration.
func NewContainerWithConfig(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{config: cfg}

	if err := c.setupObservability(ctx); err != nil {
		return nil, err
	}

	redisClient, err := platformredis.NewClient(cfg, otel.GetTracerProvider())
	if err != nil {
		return nil, err
	}
	c.redisClient = redisClient

	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := inventory.NewMetrics(c.registry)

	c.inventory = inventory.NewService(inventory.NewRedisStore(redisClient), c.logger, c.tracer, metrics, inventory.Options{
		DefaultStock: cfg.DefaultStock,
		StoreTimeout: cfg.StoreTimeout,
	})

	c.brokerManager = broker.NewManager(
		&kafka.SessionDialer{
			Broker:  cfg.BrokerAddr(),
			Topic:   cfg.OrderCreatedTopic,
			GroupID: cfg.BrokerGroupID,
			Timeout: config.BrokerDialTimeout,
		},
		c.logger.With(zap.String("component", "broker"), zap.String("broker", cfg.BrokerAddr())),
		broker.WithMaxAttempts(cfg.BrokerMaxRetries),
		broker.WithRetryBase(cfg.BrokerRetryBase),
	)

	handler := inventory.NewMessageHandler(metrics, c.logger, c.tracer)
	c.consumerService = inventory.NewConsumerService(c.brokerManager, handler, c.logger, cfg.BrokerAckMode)

	gin.SetMode(gin.ReleaseMode)
	c.router = httpapi.NewRouter(c.inventory, c.registry, func() string { return c.brokerManager.State().String() }, c.logger)

	c.logger.Info("Container initialized",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("redis", cfg.RedisAddr()),
		zap.String("broker", cfg.BrokerAddr()),
		zap.String("topic", cfg.OrderCreatedTopic),
		zap.Int64("default_stock", cfg.DefaultStock),
		zap.String("ack_mode", string(cfg.BrokerAckMode)),
	)
	return c, nil
}

// setupObservability configures OpenTelemetry logging and tracing, then the logger on top of them.
func (c *Container) setupObservability(ctx context.Context) error {
	// Console logger until the OTel log provider is in place.
	bootLogger, err := zap.NewProduction()
	if err != nil {
		return err
	}

	otelLogShutdown, err := observability.SetupLoggingSDK(ctx, c.config)
	if err != nil {
		bootLogger.Error("Failed to setup OpenTelemetry logging", zap.Error(err))
	}

	_, otelTraceShutdown, err := observability.SetupTracingSDK(ctx, c.config)
	if err != nil {
		bootLogger.Error("Failed to setup OpenTelemetry tracing", zap.Error(err))
	}
	_ = bootLogger.Sync()

	c.otelShutdown = observability.JoinShutdown(otelTraceShutdown, otelLogShutdown)
	c.logger = observability.NewLogger()
	c.tracer = otel.Tracer(config.ServiceName)
	c.logger.Info("Logger initialized", zap.Bool("otel_export", c.config.OtelEnabled()))
	return nil
}

// Shutdown gracefully shuts down all infrastructure components
func (c *Container) Shutdown(ctx context.Context) {
	c.logger.Info("Shutting down infrastructure...")

	if err := c.brokerManager.Close(); err != nil {
		c.logger.Error("Failed to close broker subscription", zap.Error(err))
	}

	if err := c.redisClient.Close(); err != nil {
		c.logger.Error("Failed to close redis client", zap.Error(err))
	}

	if err := c.otelShutdown(ctx); err != nil {
		c.logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
	}

	c.logger.Info("Infrastructure shutdown complete")

	if err := c.logger.Sync(); err != nil {
		// Can't log this error since logger might be closed
		fmt.Printf("Failed to sync logger: %v\n", err)
	}
}

// Getters for accessing infrastructure components
func (c *Container) Config() *config.Config                           { return c.config }
func (c *Container) Logger() observability.Logger                     { return c.logger }
func (c *Container) BrokerManager() *broker.Manager                   { return c.brokerManager }
func (c *Container) ConsumerService() *inventory.KafkaConsumerService { return c.consumerService }
func (c *Container) Router() http.Handler                             { return c.router }
