package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/signup-iam/internal/infra/config"
	"github.com/arklim/signup-iam/internal/transport/http/handlers"
	"github.com/arklim/signup-iam/internal/transport/http/middleware"
	"github.com/arklim/signup-iam/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Users        *usecase.UserService
	Profiles     *usecase.ProfileService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	HTTPMetrics *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Services    ServiceSet
	Database    HealthChecker
	Cache       HealthChecker
}

// HealthChecker exposes readiness behaviour for a backing service.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Tracing(middleware.TracingOptions{}))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.HTTPMetrics.Handler())
	r.Use(middleware.CORS(deps.Config.App.CORSAllowedOrigins))

	healthHandler := handlers.NewHealthHandler(deps.Logger)
	if deps.Database != nil {
		healthHandler.WithCheck("postgres", deps.Database.Ping)
	}
	if deps.Cache != nil {
		healthHandler.WithCheck("redis", deps.Cache.Ping)
	}

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	services := deps.Services
	if services.Auth == nil || services.Registration == nil || services.Users == nil || services.Profiles == nil {
		return r
	}

	require := func(operation string) gin.HandlerFunc {
		return middleware.RequireOperation(services.Auth, operation)
	}
	limits := newRateLimits(deps)

	api := r.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(services.Registration, services.Auth)
		authGroup := api.Group("/auth")
		authGroup.POST("/signup", chain(limits.signup, authHandler.Signup)...)
		authGroup.POST("/login", chain(limits.login, authHandler.Login)...)
		authGroup.GET("/me", require(usecase.OpProfileRead), authHandler.Me)
		passwordChain := append([]gin.HandlerFunc{require(usecase.OpPasswordChange)}, limits.password...)
		authGroup.PATCH("/password", chain(passwordChain, authHandler.ChangePassword)...)

		profileHandler := handlers.NewProfileHandler(services.Profiles)
		profile := api.Group("/account/profile")
		profile.POST("", require(usecase.OpProfileWrite), profileHandler.Create)
		profile.GET("", require(usecase.OpProfileRead), profileHandler.Get)
		profile.PATCH("", require(usecase.OpProfileWrite), profileHandler.Update)
		profile.DELETE("/:id", require(usecase.OpProfileDelete), profileHandler.Delete)

		signupHandler := handlers.NewSignupHandler(services.Registration)
		signups := api.Group("/signups")
		signups.GET("", require(usecase.OpSignupList), signupHandler.List)
		signups.POST("/:username/approve", require(usecase.OpSignupApprove), signupHandler.Approve)
		signups.DELETE("/:username", require(usecase.OpSignupDelete), signupHandler.Delete)

		userHandler := handlers.NewUserHandler(services.Users)
		users := api.Group("/users")
		users.GET("", require(usecase.OpUserList), userHandler.List)
		users.DELETE("/:username", require(usecase.OpUserDelete), userHandler.Delete)
		users.PATCH("/:username/activation", require(usecase.OpUserActivation), userHandler.SetActivation)
		users.GET("/:username/permissions",
			middleware.RequireOperationFunc(services.Auth,
				middleware.SelfOrOperation("username", usecase.OpProfileRead, usecase.OpPermissionRead)),
			userHandler.Permissions)
		users.POST("/:username/permissions/:permission", require(usecase.OpPermissionGrant), userHandler.Grant)
		users.DELETE("/:username/permissions/:permission", require(usecase.OpPermissionRevoke), userHandler.Revoke)
	}

	return r
}

type rateLimits struct {
	login    []gin.HandlerFunc
	signup   []gin.HandlerFunc
	password []gin.HandlerFunc
}

func newRateLimits(deps Dependencies) rateLimits {
	if deps.RateLimiter == nil || deps.Config == nil || !deps.Config.RateLimit.Enabled {
		return rateLimits{}
	}

	settings := deps.Config.RateLimit
	window := settings.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := func(name string, limit int, identifier middleware.IdentifierFunc) []gin.HandlerFunc {
		if limit <= 0 {
			return nil
		}
		return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
			Name:       name,
			Limit:      limit,
			Window:     window,
			Identifier: identifier,
		})}
	}

	return rateLimits{
		login:    rule("auth_login_ip", settings.LoginMaxAttempts, middleware.ClientIPIdentifier()),
		signup:   rule("auth_signup_ip", settings.SignupMaxAttempts, middleware.ClientIPIdentifier()),
		password: rule("auth_password_user", settings.PasswordMaxAttempts, middleware.PrincipalIdentifier()),
	}
}

func chain(middlewares []gin.HandlerFunc, handler ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(middlewares)+len(handler))
	out = append(out, middlewares...)
	return append(out, handler...)
}
