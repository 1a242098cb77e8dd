package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/core/port"
	"github.com/arklim/signup-iam/internal/infra/config"
	"github.com/arklim/signup-iam/internal/infra/database"
	kafkainfra "github.com/arklim/signup-iam/internal/infra/kafka"
	"github.com/arklim/signup-iam/internal/infra/logger"
	redisinfra "github.com/arklim/signup-iam/internal/infra/redis"
	"github.com/arklim/signup-iam/internal/infra/security"
	"github.com/arklim/signup-iam/internal/infra/telemetry"
	postgresrepo "github.com/arklim/signup-iam/internal/repository/postgres"
	redisrepo "github.com/arklim/signup-iam/internal/repository/redis"
	"github.com/arklim/signup-iam/internal/transport/http/middleware"
	"github.com/arklim/signup-iam/internal/transport/http/routes"
	"github.com/arklim/signup-iam/internal/usecase"
)

const defaultShutdownTimeout = 15 * time.Second

// bootstrapAdminScopes are ensured on the configured bootstrap administrator at startup.
var bootstrapAdminScopes = []string{domain.ScopeAdminRead, domain.ScopeAdminWrite}

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	application := &Application{cfg: cfg, logger: log, tracer: tracer}
	if err := application.wire(ctx); err != nil {
		application.close(context.Background())
		return nil, err
	}
	return application, nil
}

func (a *Application) wire(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, cfg.Postgres, log); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	a.redis = redisClient

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "iam:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	events := a.eventPublisher()

	hasher, err := security.NewPasswordHasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return fmt.Errorf("init password hasher: %w", err)
	}
	policy := security.NewPasswordPolicy(security.PasswordPolicyConfig{
		MinLength:        cfg.Password.MinLength,
		MinStrengthScore: cfg.Password.MinStrengthScore,
	})
	tokens, err := security.NewTokenCodec([]byte(cfg.JWT.Secret), cfg.JWT.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("init token codec: %w", err)
	}
	recheck, err := usecase.ParseGrantRecheckPolicy(cfg.Auth.GrantRecheck)
	if err != nil {
		return fmt.Errorf("parse grant recheck policy: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	authMetrics, err := telemetry.NewAuthMetrics(registry)
	if err != nil {
		return fmt.Errorf("init auth metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	authorizer := usecase.NewScopeAuthorizer(repos.Users, repos.Permissions)

	authService := usecase.NewAuthService(repos.Users, authorizer, hasher, policy, tokens).
		WithTokenTTL(cfg.JWT.AccessTokenTTL).
		WithGrantRecheck(recheck).
		WithEventPublisher(events).
		WithMetrics(authMetrics).
		WithLogger(log)
	registrationService := usecase.NewRegistrationService(repos.PendingUsers, repos.Users, repos.Permissions, hasher, policy).
		WithEventPublisher(events).
		WithMetrics(authMetrics).
		WithLogger(log)
	userService := usecase.NewUserService(repos.Users, repos.Permissions, authorizer).
		WithEventPublisher(events).
		WithMetrics(authMetrics).
		WithLogger(log)
	profileService := usecase.NewProfileService(repos.Profiles).WithLogger(log)

	active, err := userService.CountActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("count active users: %w", err)
	}
	authMetrics.SetActiveUsers(float64(active))

	if admin := cfg.Auth.BootstrapAdmin; admin != "" {
		if err := userService.EnsureGrants(ctx, admin, bootstrapAdminScopes); err != nil {
			if !errors.Is(err, domain.ErrUserNotFound) {
				return fmt.Errorf("bootstrap admin grants: %w", err)
			}
			log.Warn("bootstrap admin is not a validated user yet", zap.String("username", admin))
		}
	}

	a.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		HTTPMetrics: httpMetrics,
		Gatherer:    registry,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Users:        userService,
			Profiles:     profileService,
		},
	})
	return nil
}

// eventPublisher selects Kafka when brokers are configured and a logging stub otherwise.
func (a *Application) eventPublisher() port.EventPublisher {
	if len(a.cfg.Kafka.Brokers) == 0 {
		a.logger.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(a.logger)
	}

	producer, err := kafkainfra.NewProducer(a.cfg.Kafka, a.logger)
	if err != nil {
		a.logger.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(a.logger)
	}
	a.producer = producer
	a.logger.Info("kafka event publisher initialized", zap.Strings("brokers", a.cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, a.cfg.App, a.logger)
}

func (a *Application) Run(ctx context.Context) error {
	defer a.close(context.Background())

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting IAM API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		timeout := a.cfg.App.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		a.logger.Info("shutting down IAM API", zap.Duration("timeout", timeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// close releases resources in reverse acquisition order. Safe on a partially wired application.
func (a *Application) close(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracer", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
