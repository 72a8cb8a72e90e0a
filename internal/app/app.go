package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/adapter/memory"
	mongoadapter "github.com/rasuu-adhi/bloodline-streetwear-shop/internal/adapter/mongo"
	natsadapter "github.com/rasuu-adhi/bloodline-streetwear-shop/internal/adapter/nats"
	redisadapter "github.com/rasuu-adhi/bloodline-streetwear-shop/internal/adapter/redis"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/app/config"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/logger"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/metrics"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/tracer"
	grpcserver "github.com/rasuu-adhi/bloodline-streetwear-shop/internal/port/grpc"
	httpport "github.com/rasuu-adhi/bloodline-streetwear-shop/internal/port/http"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/repository"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const metricsNamespace = "storefront"

type App struct {
	cfg            *config.Config
	log            logger.Logger
	httpServer     *httpport.Server
	grpcServer     *grpcserver.Server
	carts          *service.CartRegistry
	mongoClient    *mongo.Client
	redisClient    *redis.Client
	natsConn       *nats.Conn
	tracerProvider *sdktrace.TracerProvider
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	appLogger, err := logger.NewZapLogger(logger.ZapLoggerConfig{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Infof("Configuration loaded: Env=%s, HTTP Port: %s, GRPC Port: %s, Cart store: %s",
		cfg.Env, cfg.HTTPServer.Port, cfg.GRPCServer.Port, cfg.Cart.StoreDriver)

	taxRate, err := decimal.NewFromString(cfg.Cart.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("invalid cart tax rate %q: %w", cfg.Cart.TaxRate, err)
	}

	application := &App{cfg: cfg, log: appLogger}

	tp, err := tracer.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}
	application.tracerProvider = tp
	if tp != nil {
		appLogger.Infof("Tracing enabled, exporting to %s", cfg.Tracing.Endpoint)
	}

	appMetrics := metrics.New(metricsNamespace)

	appLogger.Info("Initializing MongoDB client...")
	mongoClient, err := mongoadapter.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		application.closeResources(ctx)
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	application.mongoClient = mongoClient
	productRepo := mongoadapter.NewProductRepository(mongoClient, cfg.MongoDB)
	appLogger.Info("ProductRepository initialized")

	cartStore, err := application.newCartStore(ctx)
	if err != nil {
		application.closeResources(ctx)
		return nil, err
	}

	events := application.newCartEventPublisher()

	carts, err := service.NewCartRegistry(cartStore, events, appMetrics, appLogger, service.CartRegistryConfig{
		KeyPrefix:       cfg.Cart.KeyPrefix,
		Size:            cfg.Cart.RegistrySize,
		WriteTimeout:    cfg.Cart.WriteTimeout,
		StrictSelection: cfg.Cart.StrictSelection,
	})
	if err != nil {
		application.closeResources(ctx)
		return nil, err
	}
	application.carts = carts
	catalog := service.NewCatalogService(productRepo, appLogger, cfg.Catalog.FeaturedLimit)

	handler := httpport.NewHandler(catalog, carts, taxRate, appLogger)
	router := httpport.NewRouter(handler, httpport.RouterConfig{
		JWTSecret:    cfg.Auth.JWTSecret,
		SecureCookie: cfg.Env == "prod",
	}, appLogger, appMetrics)

	application.httpServer = httpport.NewServer(appLogger, cfg.HTTPServer, router)
	application.grpcServer = grpcserver.NewServer(appLogger, cfg.GRPCServer)
	appLogger.Info("HTTP and gRPC server instances created")

	return application, nil
}

func (a *App) newCartStore(ctx context.Context) (repository.CartStore, error) {
	switch a.cfg.Cart.StoreDriver {
	case config.StoreDriverMemory:
		a.log.Warn("Using in-memory cart store, carts will not survive a restart")
		return memory.NewCartStore(), nil
	case config.StoreDriverRedis:
		a.log.Info("Initializing Redis client...")
		redisClient, err := redisadapter.NewClient(ctx, a.cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
		}
		a.redisClient = redisClient
		a.log.Info("Redis client initialized successfully")
		return redisadapter.NewCartStore(redisClient, a.cfg.Cart.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cart store driver %q", a.cfg.Cart.StoreDriver)
	}
}

// newCartEventPublisher returns nil when events are disabled or NATS is
// unreachable. Cart events are best-effort and never block startup.
func (a *App) newCartEventPublisher() repository.CartEventPublisher {
	if !a.cfg.NATS.Enabled {
		a.log.Info("Cart events disabled")
		return nil
	}

	nc, err := natsadapter.NewConnection(a.cfg.NATS, a.log)
	if err != nil {
		a.log.Warnf("Cart events disabled: %v", err)
		return nil
	}
	publisher, err := natsadapter.NewCartEventPublisher(nc, a.cfg.NATS.Subject)
	if err != nil {
		nc.Close()
		a.log.Warnf("Cart events disabled: %v", err)
		return nil
	}

	a.natsConn = nc
	a.log.Infof("Publishing cart events to %s on %s", a.cfg.NATS.Subject, nc.ConnectedUrl())
	return publisher
}

func (a *App) Run() {
	a.log.Info("Starting application components...")

	go func() {
		if err := a.httpServer.Start(); err != nil {
			a.log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
	go func() {
		if err := a.grpcServer.Start(); err != nil {
			a.log.Fatalf("Failed to start gRPC server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	a.log.Infof("Received shutdown signal: %v. Shutting down application...", receivedSignal)

	a.grpcServer.SetServing(false)

	grace := max(a.cfg.HTTPServer.TimeoutGraceful, a.cfg.GRPCServer.TimeoutGraceful)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace+5*time.Second)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Errorf("Error during HTTP server graceful shutdown: %v", err)
	}
	if err := a.grpcServer.Stop(shutdownCtx); err != nil {
		a.log.Errorf("Error during gRPC server graceful shutdown: %v", err)
	}

	// No handler can mutate a cart past this point.
	if err := a.carts.FlushDirty(shutdownCtx); err != nil {
		a.log.Errorf("Some carts could not be saved before shutdown: %v", err)
	}

	a.closeResources(shutdownCtx)
	a.log.Info("Application shut down successfully")
	_ = a.log.Sync()
}

func (a *App) closeResources(ctx context.Context) {
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.log.Errorf("Error draining NATS connection: %v", err)
		} else {
			a.log.Info("NATS connection drained")
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		} else {
			a.log.Info("Redis client closed successfully")
		}
	}

	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.log.Errorf("Error disconnecting from MongoDB: %v", err)
		} else {
			a.log.Info("MongoDB connection closed successfully")
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			a.log.Errorf("Error shutting down tracer provider: %v", err)
		}
	}
}
