package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mlopez-dev/authhub/internal/audit"
	"github.com/mlopez-dev/authhub/internal/auth"
	"github.com/mlopez-dev/authhub/internal/cache"
	"github.com/mlopez-dev/authhub/internal/config"
	"github.com/mlopez-dev/authhub/internal/domain/user"
	"github.com/mlopez-dev/authhub/internal/http/handlers"
	"github.com/mlopez-dev/authhub/internal/http/middlewares"
	"github.com/mlopez-dev/authhub/internal/observability"
	"github.com/mlopez-dev/authhub/internal/queue/redisclient"
	"github.com/mlopez-dev/authhub/internal/repo/postgres"
)

const maxRequestBody = 1 << 20 // 1 MiB

func NewRouter(cfg config.Config, log *slog.Logger, pool *pgxpool.Pool, redisC *redisclient.Client) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// metrics registry is local to the process; /metrics serves it below
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	// middleware, outermost first
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxRequestBody))
	r.Use(otelgin.Middleware("authhub-api"))
	r.Use(prom.GinHandleMiddleware())

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL)
	authMW := middlewares.NewAuthMiddleware(jwtManager)

	// every request learns its session (if any) exactly once
	r.Use(authMW.Identify())

	// repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	auditRepo := postgres.NewAuditLogsRepo(pool, prom)
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	recorder := audit.NewRecorder(auditRepo, log)

	// handlers
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := config.WithTimeout(1 * time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	healthHandler := handlers.NewHealthHandler(ping)
	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, recorder, cfg)
	resetHandler := handlers.NewPasswordResetHandler(usersRepo, jobsRepo, redisC, recorder, cfg, log)
	adminUsersHandler := handlers.NewAdminUsersHandler(usersRepo, recorder, cache.NewSnapshot(30*time.Second))
	adminAuditHandler := handlers.NewAdminAuditHandler(auditRepo)
	pages := handlers.NewPagesHandler()

	// health + metrics
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// pages
	r.GET("/", pages.Home)
	r.GET("/about", pages.About)
	r.GET("/login", pages.Login)
	r.GET("/register", pages.Register)
	r.GET("/forgot-password", pages.ForgotPassword)
	r.GET("/reset-password", pages.ResetPassword)
	r.GET("/dashboard", authMW.RequirePage(), pages.Dashboard)
	r.GET("/admin", authMW.RequireAdminPage(), pages.Admin)

	// credential endpoints share a tight per-IP limiter
	loginLimiter := middlewares.NewRateLimiter(10, time.Minute)
	resetLimiter := middlewares.NewRateLimiter(5, time.Minute)

	api := r.Group("/api")
	api.Use(middlewares.RequireJSON())

	authAPI := api.Group("/auth")
	{
		authAPI.POST("/register", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Register)
		authAPI.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
		authAPI.POST("/logout", authHandler.Logout)
		authAPI.GET("/me", authMW.RequireAuth(), authHandler.Me)
	}

	passwordAPI := api.Group("/password")
	passwordAPI.Use(resetLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		passwordAPI.POST("/forgot", resetHandler.Forgot)
		passwordAPI.GET("/validate", resetHandler.Validate)
		passwordAPI.POST("/reset", resetHandler.Reset)
	}

	adminAPI := api.Group("/admin")
	adminAPI.Use(authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin))
	{
		adminAPI.GET("/users", adminUsersHandler.List)
		adminAPI.POST("/users", adminUsersHandler.Act)
		adminAPI.GET("/audit", adminAuditHandler.List)
	}

	return r
}
