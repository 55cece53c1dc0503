package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"college-erp/common/logger"
	commonmetrics "college-erp/common/metrics"
	"college-erp/common/telemetry"
	"college-erp/internal/account"
	"college-erp/internal/auth"
	"college-erp/internal/config"
	"college-erp/internal/db"
	"college-erp/internal/health"
	"college-erp/internal/kafka"
	"college-erp/internal/messaging"
	"college-erp/internal/metrics"
	"college-erp/internal/middleware"
	"college-erp/internal/profile"
	"college-erp/internal/registration"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
)

const (
	tokenCleanupInterval = time.Hour
	healthCheckInterval  = 15 * time.Second
)

type App struct {
	config    *config.Config
	logger    *slog.Logger
	router    chi.Router
	server    *http.Server
	db        *bun.DB
	telemetry *telemetry.Telemetry

	grpcServer    *grpc.Server
	healthServer  *grpchealth.Server
	healthMonitor *health.Monitor

	authService *auth.Service
	rateLimiter *middleware.RateLimiter
	events      io.Closer

	cancel context.CancelFunc
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	slogLogger := logger.NewWithServiceContext(ServiceName, ServiceVersion, logger.Options{
		Env:   cfg.Env,
		Level: cfg.Log.Level,
	})
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application", "env", cfg.Env)

	tel, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Env:            cfg.Env,
		Endpoint:       cfg.Telemetry.Endpoint,
		Interval:       time.Duration(cfg.Telemetry.IntervalSeconds) * time.Second,
	}, slogLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	common := tel.Metrics

	serviceMetrics, err := metrics.New(otel.Meter(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize service metrics: %w", err)
	}

	database, err := db.New(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(ctx, database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	meter := otel.Meter(ServiceName)
	if err := common.Database.RegisterDB(database.DB, meter); err != nil {
		slogLogger.Warn("failed to register database metrics", "error", err)
	}
	dependencies := []string{health.DependencyPostgres}
	if cfg.Events.Driver != "" {
		dependencies = append(dependencies, cfg.Events.Driver)
	}
	if err := common.Health.RegisterDependencies(ctx, meter, dependencies); err != nil {
		slogLogger.Warn("failed to register dependency metrics", "error", err)
	}

	app := &App{
		config:    cfg,
		logger:    slogLogger,
		router:    chi.NewRouter(),
		db:        database,
		telemetry: tel,
	}

	publisher, err := app.newEventPublisher(common)
	if err != nil {
		slogLogger.Warn("auth events disabled", "driver", cfg.Events.Driver, "error", err)
	}

	accountRepo := account.NewRepository(database, common)
	profileRepo := profile.NewRepository(database, common)
	authRepo := auth.NewRepository(database, common)

	registrationService := registration.NewService(
		registration.NewStore(database, accountRepo, profileRepo, common),
		slogLogger,
		registration.WithMetrics(serviceMetrics),
		registration.WithBcryptCost(cfg.Auth.BcryptCost),
	)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL())
	authOpts := []auth.Option{auth.WithMetrics(serviceMetrics), auth.WithBcryptCost(cfg.Auth.BcryptCost)}
	if publisher != nil {
		authOpts = append(authOpts, auth.WithEvents(publisher))
	}
	app.authService = auth.NewService(authRepo, accountRepo, profileRepo, tokens, cfg.Auth.RefreshTokenTTL(), slogLogger, authOpts...)
	authMiddleware := auth.NewMiddleware(tokens, slogLogger)

	app.rateLimiter = middleware.NewRateLimiter(
		middleware.PerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
		slogLogger,
	)

	app.router.Use(chimw.RequestID)
	app.router.Use(chimw.RealIP)
	app.router.Use(chimw.Recoverer)
	app.router.Use(middleware.Logging(slogLogger))
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	health.NewHandler(database, common, slogLogger).RegisterRoutes(app.router)

	registrationHandler := registration.NewHandler(registrationService, slogLogger)
	authHandler := auth.NewHandler(app.authService, authMiddleware, slogLogger, cfg.Auth.SecureCookies)
	accountHandler := account.NewHandler(accountRepo, slogLogger)

	app.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(app.rateLimiter.Middleware)
			registrationHandler.RegisterRoutes(r)
			authHandler.RegisterRoutes(r)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(auth.RequireRole(account.RoleAdmin))
			accountHandler.RegisterAdminRoutes(r)
		})
	})

	if cfg.Grpc.Port != "" {
		app.grpcServer, app.healthServer = health.NewGrpcServer(common)
		app.healthMonitor = health.NewMonitor(database, app.healthServer, common, slogLogger, healthCheckInterval)
	}

	slogLogger.Info("application initialized successfully")

	return app, nil
}

// newEventPublisher connects the configured auth event driver. A nil publisher
// disables event publishing.
func (a *App) newEventPublisher(m *commonmetrics.Metrics) (auth.EventPublisher, error) {
	switch a.config.Events.Driver {
	case "nats":
		producer, err := messaging.NewProducer(a.config.Events.NATS.URL, a.config.Events.NATS.Subject, a.logger, m)
		if err != nil {
			return nil, err
		}
		a.events = producer
		a.logger.Info("NATS producer initialized successfully")
		return producer, nil
	case "kafka":
		producer, err := kafka.NewProducer(a.config.Events.Kafka.Brokers, a.config.Events.Kafka.Topic, a.logger, m)
		if err != nil {
			return nil, err
		}
		a.events = producer
		a.logger.Info("Kafka producer initialized successfully")
		return producer, nil
	default:
		return nil, nil
	}
}

// Router exposes the HTTP handler, mainly for tests.
func (a *App) Router() http.Handler {
	return a.router
}

// Run serves HTTP (and gRPC health when configured) until Shutdown.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.authService.CleanupExpiredTokens(ctx, tokenCleanupInterval)

	errCh := make(chan error, 2)

	if a.grpcServer != nil {
		go a.healthMonitor.Run(ctx)

		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.config.Grpc.Port))
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		go func() {
			a.logger.Info("gRPC server starting", "port", a.config.Grpc.Port)
			if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	go func() {
		a.logger.Info("server starting", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	return <-errCh
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	if a.cancel != nil {
		a.cancel()
	}

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}
	a.rateLimiter.Stop()

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event producer close: %w", err))
		}
	}
	db.Close(a.db)
	if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
