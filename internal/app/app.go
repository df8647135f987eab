package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/pantry-tracker/internal/adapter/handler"
	"github.com/rl1809/pantry-tracker/internal/adapter/storage"
	"github.com/rl1809/pantry-tracker/internal/config"
	"github.com/rl1809/pantry-tracker/internal/core/service"
	"github.com/rl1809/pantry-tracker/internal/port"
)

type closeFunc func(ctx context.Context) error

type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	closeAll  closeFunc
	Inventory *service.InventoryService
	Health    *handler.HealthProber
}

// NewStore connects the configured backend. The returned close function
// releases its connections.
func NewStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.DocumentStore, closeFunc, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Store.Backend {
	case "memory":
		logger.Warn("using in-memory store, inventory is lost on restart")
		return storage.NewMemoryStore(), noop, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
		return storage.NewRedisAdapter(rdb), func(context.Context) error { return rdb.Close() }, nil

	case "mysql":
		if err := storage.MigrateMySQL(cfg.MySQL.DSN); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate mysql: %w", err)
		}
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect mysql: %w", err)
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping mysql: %w", err)
		}
		logger.Info("connected to mysql")
		return storage.NewMySQLAdapter(db), func(context.Context) error { return db.Close() }, nil

	case "mongo":
		mdb, err := storage.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to mongodb", zap.String("database", cfg.Mongo.Database))
		adapter := storage.NewMongoAdapter(mdb)
		return adapter, adapter.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, closeStore, err := NewStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewWithStore(cfg, logger, store, closeStore), nil
}

// NewWithStore wires the service and handlers around an existing store.
func NewWithStore(cfg *config.Config, logger *zap.Logger, store port.DocumentStore, closeStore closeFunc) *App {
	if cfg.Breaker.Enabled {
		store = storage.WithBreaker(store, storage.BreakerSettings{
			Name:        cfg.Store.Backend,
			MaxFailures: uint32(cfg.Breaker.MaxFailures),
			OpenTimeout: cfg.Breaker.OpenTimeout,
		}, func(name string, from, to gobreaker.State) {
			logger.Warn("store circuit breaker changed state",
				zap.String("store", name), zap.Stringer("from", from), zap.Stringer("to", to))
		})
	}

	opts := []service.Option{
		service.WithCollection(cfg.Store.Collection),
		service.WithLogger(logger.Named("inventory")),
	}
	if !cfg.Store.AtomicUpdates {
		opts = append(opts, service.WithReadModifyWrite())
	}
	inventory := service.NewInventoryService(store, opts...)
	if !inventory.Atomic() {
		logger.Warn("add/remove use read-modify-write, concurrent updates to one item can be lost")
	}

	var pinger port.Pinger
	if p, ok := store.(port.Pinger); ok {
		pinger = p
	}
	if closeStore == nil {
		closeStore = func(context.Context) error { return nil }
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		closeAll:  closeStore,
		Inventory: inventory,
		Health:    handler.NewHealthProber(pinger, cfg.Server.HealthInterval, logger.Named("health")),
	}
}

// Handler is the instrumented HTTP handler.
func (a *App) Handler() http.Handler {
	routes := handler.NewHTTPHandler(a.Inventory, a.Health, a.logger.Named("http")).Routes()
	return otelhttp.NewHandler(routes, "pantry-tracker")
}

// Run serves HTTP and gRPC until ctx is canceled, then shuts both down.
func (a *App) Run(ctx context.Context) error {
	if _, err := a.Inventory.ListAll(ctx); err != nil {
		a.logger.Warn("initial inventory load failed", zap.Error(err))
	}

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, a.Health.Server())

	lis, err := net.Listen("tcp", a.cfg.Server.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	httpServer := &http.Server{
		Addr:    a.cfg.Server.HTTPPort,
		Handler: a.Handler(),
	}

	proberCtx, stopProber := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Health.Run(proberCtx)
	}()

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("gRPC server listening", zap.String("addr", a.cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down...")
	case runErr = <-errCh:
		a.logger.Error("server failed, shutting down", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP shutdown", zap.Error(err))
	}
	a.logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	a.logger.Info("gRPC server stopped")

	stopProber()
	wg.Wait()

	if err := a.closeAll(shutdownCtx); err != nil {
		a.logger.Error("close store", zap.Error(err))
	}
	a.logger.Info("connections closed")

	return runErr
}
