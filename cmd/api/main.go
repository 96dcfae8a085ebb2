package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/greensmil/site_api/internal/cache"
	"github.com/greensmil/site_api/internal/config"
	"github.com/greensmil/site_api/internal/database"
	"github.com/greensmil/site_api/internal/handler"
	"github.com/greensmil/site_api/internal/metrics"
	"github.com/greensmil/site_api/internal/middleware"
	"github.com/greensmil/site_api/internal/ratelimit"
	"github.com/greensmil/site_api/internal/repository"
	"github.com/greensmil/site_api/internal/security"
	"github.com/greensmil/site_api/internal/service"
	"github.com/greensmil/site_api/internal/sse"
	"github.com/greensmil/site_api/internal/utils"
	"github.com/greensmil/site_api/internal/worker"
	"github.com/greensmil/site_api/pkg/recaptcha"
)

const version = "1.0.0"

// main is the entrypoint of the website backend API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting site api")

	// 3. Context for workers and graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var workers sync.WaitGroup
	startWorker := func(start func(context.Context)) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			start(ctx)
		}()
	}

	// 4. Security log and its sinks
	events := security.NewLog(security.Config{
		Capacity:            cfg.Security.Capacity,
		SuspiciousThreshold: cfg.Security.SuspiciousThreshold,
		SuspiciousWindow:    cfg.Security.SuspiciousWindow,
		Retention:           cfg.Security.Retention,
	})
	events.AddSink(security.NewZerologSink(log.Logger, cfg.Env))
	events.AddSink(metrics.SecuritySink(events))

	hub := sse.NewHub()
	events.AddSink(sse.NewSecurityNotifier(hub))

	deps := map[string]handler.Pinger{}

	// 4a. Optional Postgres archive
	if cfg.Security.ArchiveEnabled {
		db, err := database.Connect(ctx, &cfg.DB)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.Migrate(db.DB, "migrations"); err != nil {
			log.Error().Err(err).Msg("migration failed")
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}
		log.Info().Msg("migrations completed successfully")

		archiveRepo := repository.NewSecurityEventRepository(db)
		archiver := worker.NewArchiveWorker(archiveRepo, cfg.Security.ArchiveInterval)
		events.AddSink(archiver)
		deps["database"] = archiveRepo
		startWorker(archiver.Start)
	}

	// 5. Rate limiters
	contactLimiter, authLimiter, closeLimiters, err := setupLimiters(cfg, deps)
	if err != nil {
		log.Error().Err(err).Msg("rate limiter setup failed")
		fmt.Fprintf(os.Stderr, "rate limiter setup failed: %v\n", err)
		os.Exit(1)
	}
	defer closeLimiters()

	throttle := ratelimit.NewThrottle(cfg.RateLimit.APIPerSecond, cfg.RateLimit.APIBurst)
	defer throttle.Stop()

	// 6. External clients
	idp, err := service.NewCognitoProvider(ctx, cfg.Cognito)
	if err != nil {
		log.Error().Err(err).Msg("cognito client initialization failed")
		fmt.Fprintf(os.Stderr, "cognito client initialization failed: %v\n", err)
		os.Exit(1)
	}

	sender, err := service.NewEmailSender(ctx, cfg.Email)
	if err != nil {
		log.Error().Err(err).Msg("email sender initialization failed")
		fmt.Fprintf(os.Stderr, "email sender initialization failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Str("provider", cfg.Email.Provider).Msg("email sender ready")

	captcha := service.NewRecaptchaVerifier(
		recaptcha.NewClient(cfg.Recaptcha.SecretKey),
		cfg.Recaptcha.SecretKey,
		cfg.Recaptcha.MinScore,
	)

	// 7. Initialize services
	issuer := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	contactSvc := service.NewContactService(sender, captcha, events, cfg.Email, cfg.Recaptcha)
	authSvc := service.NewAuthService(idp, issuer, events)
	userSvc := service.NewUserService(idp, events)
	groupSvc := service.NewGroupService(idp, events)
	securitySvc := service.NewSecurityService(events)

	// 8. Initialize handlers
	handlers := &Handlers{
		Health:   handler.NewHealthHandler(version, deps),
		Contact:  handler.NewContactHandler(contactSvc),
		Auth:     handler.NewAuthHandler(authSvc),
		User:     handler.NewUserHandler(userSvc),
		Group:    handler.NewGroupHandler(groupSvc),
		Security: handler.NewSecurityHandler(securitySvc),
		SSE:      handler.NewSSEHandler(hub, issuer, events, cfg.Cognito.AdminGroup),
	}

	// 9. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware(issuer, events)
	limits := &RouteLimits{
		Contact: middleware.RateLimitMiddleware(contactLimiter, events, "Too many messages sent. Please try again later."),
		Auth:    middleware.RateLimitMiddleware(authLimiter, events, "Too many sign-in attempts. Please try again later."),
	}

	// 10. Setup router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedHosts))
	router.Use(middleware.ClientIPMiddleware(cfg.TrustProxyHeaders))
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.ThrottleMiddleware(throttle))
	setupRoutes(router, handlers, limits, jwtMw, cfg.Cognito.AdminGroup)

	// 11. Start workers
	retention, err := worker.NewRetentionWorker(events, cfg.Security.RetentionCron)
	if err != nil {
		log.Error().Err(err).Msg("retention worker setup failed")
		fmt.Fprintf(os.Stderr, "retention worker setup failed: %v\n", err)
		os.Exit(1)
	}
	startWorker(retention.Start)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. End admin streams, then shutdown HTTP server with timeout
	hub.CloseAll()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// 15. Cancel context and wait for workers to flush
	cancel()
	workers.Wait()
	log.Info().Msg("Server exited")
}

// setupLimiters builds the contact and sign-in limiters on the configured
// backend. The returned func releases them.
func setupLimiters(cfg *config.Config, deps map[string]handler.Pinger) (contact, auth ratelimit.Limiter, closeFn func(), err error) {
	contactCfg := ratelimit.Config{
		Name:            "contact",
		Window:          cfg.RateLimit.ContactWindow,
		MaxRequests:     cfg.RateLimit.ContactMax,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
	}
	authCfg := ratelimit.Config{
		Name:            "auth",
		Window:          cfg.RateLimit.AuthWindow,
		MaxRequests:     cfg.RateLimit.AuthMax,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
	}

	if cfg.RateLimit.Backend == "redis" {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info().Msg("redis connected successfully")
		deps["redis"] = redisClient
		return ratelimit.NewRedisLimiter(redisClient.Client(), contactCfg),
			ratelimit.NewRedisLimiter(redisClient.Client(), authCfg),
			func() { _ = redisClient.Close() },
			nil
	}

	c := ratelimit.NewFixedWindowLimiter(contactCfg)
	a := ratelimit.NewFixedWindowLimiter(authCfg)
	return c, a, func() {
		c.Destroy()
		a.Destroy()
	}, nil
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health   *handler.HealthHandler
	Contact  *handler.ContactHandler
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Group    *handler.GroupHandler
	Security *handler.SecurityHandler
	SSE      *handler.SSEHandler
}

// RouteLimits holds the per-route rate limit middleware.
type RouteLimits struct {
	Contact gin.HandlerFunc
	Auth    gin.HandlerFunc
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, limits *RouteLimits, jwtMiddleware *middleware.JWTMiddleware, adminGroup string) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.GET("/metrics", metrics.Handler())

	// Public forms
	router.POST("/v1/contact", limits.Contact, handlers.Contact.Submit)

	// Sessions
	auth := router.Group("/v1/auth")
	{
		auth.POST("/sign-in", limits.Auth, handlers.Auth.SignIn)
		auth.GET("/me", jwtMiddleware.Handle(), handlers.Auth.Me)
	}

	// EventSource cannot send headers; the handler checks the token itself.
	router.GET("/v1/admin/security/stream", handlers.SSE.Stream)

	// Admin routes
	admin := router.Group("/v1/admin")
	admin.Use(jwtMiddleware.Handle(), jwtMiddleware.RequireGroup(adminGroup))
	{
		// User Management
		admin.GET("/users", handlers.User.ListUsers)
		admin.GET("/users/count", handlers.User.CountUsers)
		admin.GET("/users/count/approximate", handlers.User.ApproximateCount)
		admin.GET("/users/active", handlers.User.ActiveUsers)
		admin.GET("/system/status", handlers.User.SystemStatus)
		admin.POST("/users", handlers.User.CreateUser)
		admin.PUT("/users/:username", handlers.User.UpdateUser)
		admin.DELETE("/users/:username", handlers.User.DeleteUser)
		admin.POST("/users/:username/enable", handlers.User.EnableUser)
		admin.POST("/users/:username/disable", handlers.User.DisableUser)
		admin.POST("/users/:username/groups", handlers.User.AddToGroup)
		admin.DELETE("/users/:username/groups/:group", handlers.User.RemoveFromGroup)

		// Group Management
		admin.GET("/groups", handlers.Group.ListGroups)
		admin.POST("/groups", handlers.Group.CreateGroup)
		admin.DELETE("/groups/:group", handlers.Group.DeleteGroup)

		// Security Log
		admin.GET("/security/dashboard", handlers.Security.Dashboard)
		admin.DELETE("/security/events", handlers.Security.ClearOld)
		admin.GET("/security/suspicious", handlers.Security.CheckIP)
	}
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
