package gymapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"google.golang.org/grpc"

	"github.com/magabrotheeeer/gym-management/internal/cache"
	"github.com/magabrotheeeer/gym-management/internal/config"
	grpcserver "github.com/magabrotheeeer/gym-management/internal/grpc/server"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/auth"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/catalog"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/enrollment"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/health"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/membership"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/order"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/outbox"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/user"
	"github.com/magabrotheeeer/gym-management/internal/lib/jwt"
	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
	"github.com/magabrotheeeer/gym-management/internal/lib/tracing"
	"github.com/magabrotheeeer/gym-management/internal/migrations"
	authservice "github.com/magabrotheeeer/gym-management/internal/services/auth"
	catalogservice "github.com/magabrotheeeer/gym-management/internal/services/catalog"
	enrollmentservice "github.com/magabrotheeeer/gym-management/internal/services/enrollment"
	membershipservice "github.com/magabrotheeeer/gym-management/internal/services/membership"
	orderservice "github.com/magabrotheeeer/gym-management/internal/services/order"
	outboxservice "github.com/magabrotheeeer/gym-management/internal/services/outbox"
	userservice "github.com/magabrotheeeer/gym-management/internal/services/user"
	"github.com/magabrotheeeer/gym-management/internal/storage/repository"
)

const (
	serviceName     = "gym-api"
	shutdownTimeout = 15 * time.Second
	healthInterval  = 5 * time.Second
)

// App HTTP API и gRPC health-сервер.
type App struct {
	server     *http.Server
	grpcServer *grpc.Server
	health     *grpcserver.HealthServer
	grpcAddr   string
	logger     *slog.Logger
	db         *repository.Storage
	cache      *cache.Cache
	shutdown   tracing.Shutdown
}

// New подключает хранилища, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	shutdown, err := tracing.Init(ctx, cfg.Tracing, serviceName, cfg.AppVersion)
	if err != nil {
		db.Close()
		cacheRedis.Close()
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	authService := authservice.NewAuthService(db, jwtMaker, cacheRedis, logger)
	userService := userservice.NewUserService(db, logger)
	catalogService := catalogservice.NewCatalogService(db, cacheRedis, logger)
	enrollmentService := enrollmentservice.NewEnrollmentService(db, cfg.Enrollment, logger)
	membershipService := membershipservice.NewMembershipService(db, cacheRedis, logger)
	orderService := orderservice.NewOrderService(db, logger)
	outboxService := outboxservice.NewOutboxService(db, cfg.Outbox, logger)

	if err = userService.EnsureAdmin(ctx, cfg.BootstrapAdmin); err != nil {
		logger.Error("failed to create bootstrap admin", sl.Err(err))
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, jwtMaker, cfg.RateLimit, Handlers{
		Auth:       auth.New(logger, authService),
		User:       user.New(logger, userService),
		Catalog:    catalog.New(logger, catalogService),
		Enrollment: enrollment.New(logger, enrollmentService),
		Membership: membership.New(logger, membershipService),
		Order:      order.New(logger, orderService),
		Outbox:     outbox.New(logger, outboxService),
		Health: health.New(logger, cfg.AppVersion, map[string]health.Pinger{
			"postgres": db,
			"redis":    cacheRedis,
		}),
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	grpcServer := grpc.NewServer()
	healthServer := grpcserver.NewHealthServer(db, healthInterval, logger)
	healthServer.Register(grpcServer)

	return &App{
		server:     srv,
		grpcServer: grpcServer,
		health:     healthServer,
		grpcAddr:   cfg.GRPCAddress,
		logger:     logger,
		db:         db,
		cache:      cacheRedis,
		shutdown:   shutdown,
	}, nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает серверы.
func (a *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.grpcAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()
	go func() {
		a.logger.Info("gRPC health server starting on", slog.String("address", a.grpcAddr))
		errCh <- a.grpcServer.Serve(lis)
	}()

	healthCtx, stopHealth := context.WithCancel(ctx)
	defer stopHealth()
	go a.health.Run(healthCtx)

	select {
	case err = <-errCh:
	case <-ctx.Done():
	}
	stopHealth()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down gracefully")

	if shutdownErr := a.server.Shutdown(timeoutCtx); shutdownErr != nil {
		a.logger.Error("failed to shutdown HTTP server", sl.Err(shutdownErr))
	}
	a.grpcServer.GracefulStop()
	if shutdownErr := a.shutdown(timeoutCtx); shutdownErr != nil {
		a.logger.Error("failed to flush traces", sl.Err(shutdownErr))
	}
	if closeErr := a.cache.Close(); closeErr != nil {
		a.logger.Error("failed to close cache", sl.Err(closeErr))
	}
	if closeErr := a.db.Close(); closeErr != nil {
		a.logger.Error("failed to close storage", sl.Err(closeErr))
	}
	return err
}
